package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/srg/oralb/internal/device"
)

// OpKind identifies a request recorded by FakePeripheral.
type OpKind string

const (
	OpRead  OpKind = "read"
	OpWrite OpKind = "write"
)

// Op is one request issued against a FakePeripheral.
type Op struct {
	Kind         OpKind
	Handle       uint16
	Data         []byte
	WithResponse bool
}

func (o Op) String() string {
	if o.Kind == OpRead {
		return fmt.Sprintf("read 0x%04x", o.Handle)
	}
	return fmt.Sprintf("write 0x%04x % x", o.Handle, o.Data)
}

// FakePeripheral is an in-memory device.Peripheral addressed by handle.
// Writes store the value so a later read returns it; hooks override that per handle.
type FakePeripheral struct {
	mu       sync.Mutex
	chars    []device.CharacteristicInfo
	values   map[uint16][]byte
	ops      []Op
	handler  device.NotificationHandler
	readErr  map[uint16]error
	writeErr map[uint16]error

	linkCtx      context.Context
	dropLink     context.CancelCauseFunc
	disconnected bool

	// CharacteristicsErr is returned by Characteristics when set.
	CharacteristicsErr error
	// OnRead, when set, supplies the value of every read.
	OnRead func(handle uint16) ([]byte, error)
	// OnWrite, when set, observes every write after it was recorded.
	OnWrite func(handle uint16, data []byte)
}

// NewFakePeripheral creates a fake exposing chars in the given order.
func NewFakePeripheral(chars ...device.CharacteristicInfo) *FakePeripheral {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &FakePeripheral{
		chars:    chars,
		values:   make(map[uint16][]byte),
		readErr:  make(map[uint16]error),
		writeErr: make(map[uint16]error),
		linkCtx:  ctx,
		dropLink: cancel,
	}
}

// SetValue sets the value returned by reads of handle.
func (f *FakePeripheral) SetValue(handle uint16, data []byte) *FakePeripheral {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[handle] = append([]byte(nil), data...)
	return f
}

// FailRead makes reads of handle return err.
func (f *FakePeripheral) FailRead(handle uint16, err error) *FakePeripheral {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr[handle] = err
	return f
}

// FailWrite makes writes to handle return err. The write is still recorded.
func (f *FakePeripheral) FailWrite(handle uint16, err error) *FakePeripheral {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr[handle] = err
	return f
}

func (f *FakePeripheral) Characteristics() ([]device.CharacteristicInfo, error) {
	if f.CharacteristicsErr != nil {
		return nil, f.CharacteristicsErr
	}
	out := make([]device.CharacteristicInfo, len(f.chars))
	copy(out, f.chars)
	return out, nil
}

func (f *FakePeripheral) ReadCharacteristic(handle uint16) ([]byte, error) {
	f.mu.Lock()
	f.ops = append(f.ops, Op{Kind: OpRead, Handle: handle})
	err := f.readErr[handle]
	value, ok := f.values[handle]
	hook := f.OnRead
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if hook != nil {
		return hook(handle)
	}
	if !ok {
		return nil, &device.NotFoundError{Resource: "handle", ID: fmt.Sprintf("0x%04x", handle)}
	}
	return append([]byte(nil), value...), nil
}

func (f *FakePeripheral) WriteCharacteristic(handle uint16, data []byte, withResponse bool) error {
	f.mu.Lock()
	f.ops = append(f.ops, Op{Kind: OpWrite, Handle: handle, Data: append([]byte(nil), data...), WithResponse: withResponse})
	err := f.writeErr[handle]
	if err == nil {
		f.values[handle] = append([]byte(nil), data...)
	}
	hook := f.OnWrite
	f.mu.Unlock()

	if hook != nil {
		hook(handle, data)
	}
	return err
}

func (f *FakePeripheral) SetNotificationHandler(h device.NotificationHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

// HasHandler reports whether a notification handler is installed.
func (f *FakePeripheral) HasHandler() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

// Notify delivers a notification frame synchronously, as the transport would.
func (f *FakePeripheral) Notify(handle uint16, data []byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(handle, data)
	}
}

// Ops returns every recorded request in order.
func (f *FakePeripheral) Ops() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Op, len(f.ops))
	copy(out, f.ops)
	return out
}

// Writes returns the recorded writes to handle.
func (f *FakePeripheral) Writes(handle uint16) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]byte
	for _, op := range f.ops {
		if op.Kind == OpWrite && op.Handle == handle {
			out = append(out, op.Data)
		}
	}
	return out
}

// ResetOps clears the request log.
func (f *FakePeripheral) ResetOps() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
}

// Disconnect closes the fake link the way an orderly shutdown would.
func (f *FakePeripheral) Disconnect() error {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
	f.dropLink(nil)
	return nil
}

// Disconnected reports whether Disconnect was called.
func (f *FakePeripheral) Disconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

// ConnectionContext is cancelled by Disconnect or Drop.
func (f *FakePeripheral) ConnectionContext() context.Context {
	return f.linkCtx
}

// Drop simulates an unexpected link loss.
func (f *FakePeripheral) Drop() {
	f.dropLink(device.ErrNotConnected)
}
