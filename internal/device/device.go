package device

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError represents an error when a GATT attribute is not known to the connection
type NotFoundError struct {
	Resource string // "characteristic", "handle"
	ID       string // UUID or handle rendered as a string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotInitialized   ConnectionState = "not_initialized"
	BluetoothOff     ConnectionState = "bluetooth_off"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrNotInitialized   = &ConnectionError{State: NotInitialized}
	ErrBluetoothOff     = &ConnectionError{State: BluetoothOff, Msg: "bluetooth is turned off"}
)

// Operation errors
var (
	ErrTimeout     = errors.New("timeout")
	ErrUnsupported = errors.New("unsupported")
)

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// CharacteristicInfo describes one characteristic as enumerated on the connected peripheral.
// Handle is the ATT value handle; the CCCD, when present, lives at Handle+1.
type CharacteristicInfo struct {
	UUID       string // normalized, see NormalizeUUID
	Handle     uint16
	Properties Property
}

// CCCDHandle returns the handle of the Client Characteristic Configuration Descriptor,
// the attribute immediately following the value handle.
func (c CharacteristicInfo) CCCDHandle() uint16 {
	return c.Handle + 1
}

func (c CharacteristicInfo) String() string {
	return fmt.Sprintf("%s@0x%04x[%s]", c.UUID, c.Handle, c.Properties)
}

// NotificationHandler receives server-initiated notification frames.
// The data slice is only valid for the duration of the call.
type NotificationHandler func(handle uint16, data []byte)

// Peripheral is the handle-level access a toothbrush session needs from a BLE transport.
// Every call blocks until the peer responds or the link fails; callers serialize requests.
type Peripheral interface {
	// Characteristics enumerates every characteristic of the connected peripheral in discovery order.
	Characteristics() ([]CharacteristicInfo, error)
	// ReadCharacteristic reads the current value at the given value handle.
	ReadCharacteristic(handle uint16) ([]byte, error)
	// WriteCharacteristic writes data to any attribute handle (value or descriptor).
	// When withResponse is true the call returns after the peer acknowledged the write.
	WriteCharacteristic(handle uint16, data []byte, withResponse bool) error
	// SetNotificationHandler installs the single inbound notification entry point.
	// Passing nil drops all subsequent notifications.
	SetNotificationHandler(h NotificationHandler)
}

// ConnectOptions defines BLE connection options
type ConnectOptions struct {
	Address        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration // 0 = wait for the link layer
}
