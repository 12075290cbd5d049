package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/oralb/internal/device"
	"github.com/srg/oralb/pkg/oralb"
	"github.com/srg/oralb/pkg/oralb/protocol"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the BLE connection was unexpectedly lost during operation.
	// This is distinct from device.ErrNotConnected, which indicates an attempt to use
	// a device that was never connected or was already disconnected.
	ErrConnectionLost = errors.New("connection lost")

	// ErrUnsupported is returned when a command needs a characteristic the firmware does not expose.
	ErrUnsupported = errors.New("not supported by this toothbrush")
)

// FormatUserError turns a command error into a one-line message with a hint where one helps.
func FormatUserError(err error) string {
	var notFound *device.NotFoundError
	switch {
	case errors.Is(err, ErrConnectionLost):
		return "connection to the toothbrush was lost (out of range or switched off)"
	case device.IsConnectionState(err, device.BluetoothOff):
		return "Bluetooth is turned off; enable it and try again"
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%v\n  hint: the toothbrush only advertises while awake; press the power button and retry", err)
	case errors.Is(err, device.ErrTimeout):
		return fmt.Sprintf("%v\n  hint: the toothbrush did not answer in time; try a longer --read-timeout", err)
	case errors.Is(err, oralb.ErrSessionSlot):
		return fmt.Sprintf("failed to read session history: %v", err)
	case errors.Is(err, protocol.ErrTooManyModes):
		return fmt.Sprintf("%v\n  hint: at most %d modes fit on the handle", err, protocol.ModeListCapacity)
	case errors.As(err, &notFound):
		return fmt.Sprintf("%v\n  hint: the firmware may not expose this characteristic", err)
	default:
		return err.Error()
	}
}
