package goble

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/oralb/internal/device"
	"github.com/srg/oralb/internal/groutine"
)

// ----------------------------
// Transport seams
// ----------------------------

// Client is the part of ble.Client the connection drives.
type Client interface {
	DiscoverProfile(force bool) (*ble.Profile, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
}

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = newPlatformDevice

// DialFunc opens a GATT client to address. Tests replace it with a mocked client.
var DialFunc = func(ctx context.Context, address string) (Client, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	ble.SetDefaultDevice(dev)

	client, err := ble.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, err
	}
	return client, nil
}

const (
	// syntheticHandleBase is the first handle handed out when the platform does not expose ATT handles.
	syntheticHandleBase uint16 = 0xf001

	cccdDisable        uint16 = 0x0000
	cccdEnableNotify   uint16 = 0x0001
	cccdEnableIndicate uint16 = 0x0002
)

// ----------------------------
// Connection
// ----------------------------

// Connection is a go-ble backed device.Peripheral. Characteristics are addressed by
// ATT value handle; a write to value handle + 1 is treated as a CCCD write and mapped
// onto go-ble subscriptions.
type Connection struct {
	client      Client
	logger      *logrus.Logger
	connMutex   sync.RWMutex
	isConnected bool
	readTimeout time.Duration

	chars      []device.CharacteristicInfo
	byHandle   map[uint16]*ble.Characteristic
	subscribed map[uint16]bool // value handle -> subscribed as indication

	handlerMutex sync.RWMutex
	handler      device.NotificationHandler

	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewConnection creates a disconnected connection.
func NewConnection(logger *logrus.Logger) *Connection {
	if logger == nil {
		logger = logrus.New()
	}
	return &Connection{
		logger:     logger,
		byHandle:   make(map[uint16]*ble.Characteristic),
		subscribed: make(map[uint16]bool),
		ctx:        context.Background(),
	}
}

// Connect dials the device, discovers its profile and indexes every characteristic by value handle.
func (c *Connection) Connect(ctx context.Context, address string, opts *device.ConnectOptions) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if strings.TrimSpace(address) == "" {
		c.logger.Error("Connection attempt with empty address")
		return fmt.Errorf("device address is empty")
	}
	if c.isConnectedInternal() {
		c.logger.WithField("address", address).Warn("Connection attempt while already connected")
		return device.ErrAlreadyConnected
	}
	if opts == nil {
		opts = &device.ConnectOptions{}
	}
	c.readTimeout = opts.ReadTimeout

	c.logger.WithFields(logrus.Fields{
		"address": address,
		"timeout": opts.ConnectTimeout,
	}).Info("Connecting to toothbrush...")

	connCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	client, err := DialFunc(connCtx, address)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	c.logger.WithField("address", address).Debug("Discovering services and characteristics...")
	profile, err := client.DiscoverProfile(true)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to discover profile")
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			c.logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection during profile discovery failure")
		}
		return fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	c.indexProfile(profile)
	c.client = client
	c.isConnected = true
	c.ctx, c.cancel = context.WithCancelCause(context.Background())

	// CoreBluetooth reports link loss through Disconnected(); other backends surface it on the next request.
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		connCtx := c.ctx
		cancel := c.cancel
		groutine.Go(context.Background(), "ble-connection-monitor", func(context.Context) {
			select {
			case <-dc.Disconnected():
				c.logger.Warn("Device reported disconnection")
				c.connMutex.Lock()
				c.isConnected = false
				c.connMutex.Unlock()
				cancel(device.ErrNotConnected)
			case <-connCtx.Done():
			}
		})
	} else {
		c.logger.Debug("Client does not support Disconnected() channel")
	}

	c.logger.WithFields(logrus.Fields{
		"address":         address,
		"services":        len(profile.Services),
		"characteristics": len(c.chars),
	}).Info("Toothbrush connected")
	return nil
}

// indexProfile records characteristics in discovery order. Zero value handles
// are replaced with synthetic odd handles two apart so handle+1 never collides.
func (c *Connection) indexProfile(profile *ble.Profile) {
	c.chars = c.chars[:0]
	c.byHandle = make(map[uint16]*ble.Characteristic)
	c.subscribed = make(map[uint16]bool)

	next := syntheticHandleBase
	for _, svc := range profile.Services {
		for _, ch := range svc.Characteristics {
			handle := ch.ValueHandle
			if handle == 0 {
				for c.byHandle[next] != nil {
					next += 2
				}
				handle = next
				next += 2
			}
			if _, dup := c.byHandle[handle]; dup {
				c.logger.WithField("handle", fmt.Sprintf("0x%04x", handle)).Warn("Duplicate value handle, keeping first")
				continue
			}
			c.byHandle[handle] = ch

			info := device.CharacteristicInfo{
				UUID:       device.NormalizeUUID(ch.UUID.String()),
				Handle:     handle,
				Properties: NewProperties(ch.Property),
			}
			c.chars = append(c.chars, info)

			c.logger.WithFields(logrus.Fields{
				"service_uuid": device.NormalizeUUID(svc.UUID.String()),
				"char":         info.String(),
			}).Debug("Found characteristic")
		}
	}
}

// Disconnect drops active subscriptions and closes the link.
func (c *Connection) Disconnect() error {
	c.connMutex.Lock()
	if !c.isConnectedInternal() {
		client := c.client
		c.client = nil
		c.connMutex.Unlock()
		c.logger.Debug("Disconnect called but already disconnected")
		if client != nil {
			return NormalizeError(client.CancelConnection())
		}
		return nil
	}

	client := c.client
	cancel := c.cancel
	subs := make(map[*ble.Characteristic]bool, len(c.subscribed))
	for h, ind := range c.subscribed {
		subs[c.byHandle[h]] = ind
	}
	c.subscribed = make(map[uint16]bool)
	c.client = nil
	c.isConnected = false
	c.connMutex.Unlock()

	c.logger.WithField("subscriptions", len(subs)).Info("Disconnecting toothbrush...")

	for ch, ind := range subs {
		if err := NormalizeError(client.Unsubscribe(ch, ind)); err != nil {
			c.logger.WithFields(logrus.Fields{
				"char_uuid": device.NormalizeUUID(ch.UUID.String()),
				"error":     err,
			}).Warn("Failed to unsubscribe during disconnect")
		}
	}

	if cancel != nil {
		cancel(nil)
	}

	err := NormalizeError(client.CancelConnection())
	if err != nil {
		c.logger.WithField("error", err).Warn("Toothbrush disconnected with errors")
	} else {
		c.logger.Info("Toothbrush disconnected")
	}
	return err
}

// isConnectedInternal checks the connection status without acquiring locks.
func (c *Connection) isConnectedInternal() bool {
	return c.client != nil && c.isConnected
}

// IsConnected reports whether the link is up.
func (c *Connection) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.isConnectedInternal()
}

// ConnectionContext is cancelled with device.ErrNotConnected when the link drops,
// and without a cause on Disconnect.
func (c *Connection) ConnectionContext() context.Context {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.ctx
}

// Characteristics returns every discovered characteristic in discovery order.
func (c *Connection) Characteristics() ([]device.CharacteristicInfo, error) {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	if !c.isConnectedInternal() {
		return nil, device.ErrNotConnected
	}
	out := make([]device.CharacteristicInfo, len(c.chars))
	copy(out, c.chars)
	return out, nil
}

// lookup resolves a value handle under the read lock.
func (c *Connection) lookup(handle uint16) (Client, *ble.Characteristic, error) {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	if !c.isConnectedInternal() {
		return nil, nil, device.ErrNotConnected
	}
	return c.client, c.byHandle[handle], nil
}

// ReadCharacteristic reads the value at handle, bounded by ConnectOptions.ReadTimeout when set.
func (c *Connection) ReadCharacteristic(handle uint16) ([]byte, error) {
	client, ch, err := c.lookup(handle)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, &device.NotFoundError{Resource: "handle", ID: fmt.Sprintf("0x%04x", handle)}
	}

	if c.readTimeout <= 0 {
		data, err := client.ReadCharacteristic(ch)
		return data, NormalizeError(err)
	}

	type readResult struct {
		data []byte
		err  error
	}
	resultCh := make(chan readResult, 1)
	groutine.Go(context.Background(), "ble-read", func(context.Context) {
		data, err := client.ReadCharacteristic(ch)
		resultCh <- readResult{data: data, err: err}
	})

	select {
	case r := <-resultCh:
		return r.data, NormalizeError(r.err)
	case <-time.After(c.readTimeout):
		c.logger.WithFields(logrus.Fields{
			"handle":  fmt.Sprintf("0x%04x", handle),
			"timeout": c.readTimeout,
		}).Warn("Characteristic read timed out")
		return nil, fmt.Errorf("read handle 0x%04x after %s: %w", handle, c.readTimeout, device.ErrTimeout)
	}
}

// WriteCharacteristic writes a value handle, or a CCCD when handle is a value handle + 1.
func (c *Connection) WriteCharacteristic(handle uint16, data []byte, withResponse bool) error {
	client, ch, err := c.lookup(handle)
	if err != nil {
		return err
	}
	if ch != nil {
		c.logger.WithFields(logrus.Fields{
			"handle":        fmt.Sprintf("0x%04x", handle),
			"data":          hex.EncodeToString(data),
			"with_response": withResponse,
		}).Debug("Writing characteristic")
		return NormalizeError(client.WriteCharacteristic(ch, data, !withResponse))
	}

	_, owner, _ := c.lookup(handle - 1)
	if owner == nil {
		return &device.NotFoundError{Resource: "handle", ID: fmt.Sprintf("0x%04x", handle)}
	}
	if len(data) < 2 {
		return fmt.Errorf("cccd write to 0x%04x: want 2 bytes, got %d: %w", handle, len(data), device.ErrUnsupported)
	}
	return c.writeCCCD(client, handle-1, owner, binary.LittleEndian.Uint16(data))
}

func (c *Connection) writeCCCD(client Client, valueHandle uint16, ch *ble.Characteristic, value uint16) error {
	fields := logrus.Fields{
		"handle": fmt.Sprintf("0x%04x", valueHandle),
		"cccd":   fmt.Sprintf("0x%04x", value),
	}

	switch value {
	case cccdEnableNotify, cccdEnableIndicate:
		ind := value == cccdEnableIndicate
		err := NormalizeError(client.Subscribe(ch, ind, func(data []byte) {
			c.deliver(valueHandle, data)
		}))
		if err != nil {
			c.logger.WithFields(fields).WithError(err).Error("Failed to subscribe")
			return err
		}
		c.connMutex.Lock()
		c.subscribed[valueHandle] = ind
		c.connMutex.Unlock()
		c.logger.WithFields(fields).Debug("Subscribed")
		return nil

	case cccdDisable:
		c.connMutex.Lock()
		ind, ok := c.subscribed[valueHandle]
		delete(c.subscribed, valueHandle)
		c.connMutex.Unlock()
		if !ok {
			c.logger.WithFields(fields).Debug("Not subscribed, nothing to disable")
			return nil
		}
		if err := NormalizeError(client.Unsubscribe(ch, ind)); err != nil {
			c.logger.WithFields(fields).WithError(err).Error("Failed to unsubscribe")
			return err
		}
		c.logger.WithFields(fields).Debug("Unsubscribed")
		return nil

	default:
		return fmt.Errorf("cccd value 0x%04x: %w", value, device.ErrUnsupported)
	}
}

// SetNotificationHandler installs the inbound notification entry point.
func (c *Connection) SetNotificationHandler(h device.NotificationHandler) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	c.handler = h
}

// deliver forwards a notification synchronously on go-ble's delivery goroutine.
func (c *Connection) deliver(handle uint16, data []byte) {
	c.handlerMutex.RLock()
	h := c.handler
	c.handlerMutex.RUnlock()

	if h == nil {
		c.logger.WithField("handle", fmt.Sprintf("0x%04x", handle)).Debug("No notification handler installed, dropping")
		return
	}
	h(handle, data)
}
