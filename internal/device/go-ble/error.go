package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/srg/oralb/internal/device"
)

// errorPatterns maps go-ble/CoreBluetooth message fragments to device sentinels, checked in order.
var errorPatterns = []struct {
	fragment string
	target   error
}{
	{"is bluetooth turned on", device.ErrBluetoothOff},
	{"bluetooth is turned off", device.ErrBluetoothOff},
	{"device not connected", device.ErrNotConnected},
	{"disconnected", device.ErrNotConnected},
	{"device already connected", device.ErrAlreadyConnected},
	{"connection is not initialized", device.ErrNotInitialized},
}

// NormalizeError maps known go-ble errors to the device error taxonomy.
// The go-ble error text is kept in the message; unknown errors pass through unchanged.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", device.ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(msg, p.fragment) {
			return fmt.Errorf("%w: %v", p.target, err)
		}
	}
	return err
}
