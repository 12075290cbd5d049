// Package protocol holds the byte-level codecs for the Oral-B toothbrush GATT profile:
// value decoders for the vendor characteristics, the control command frames and
// the CCCD values used to toggle notifications. Everything here is pure; no I/O.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrShortPayload is returned when a characteristic value is shorter than its fixed layout.
	ErrShortPayload = errors.New("short payload")
	// ErrTooManyModes is returned when a mode list does not fit the device buffer.
	ErrTooManyModes = errors.New("too many modes")
	// ErrDateOutOfRange is returned when a time cannot be represented in the device clock.
	ErrDateOutOfRange = errors.New("date out of range")
)

// CCCD values, little-endian 16-bit.
var (
	CCCDEnableNotify   = []byte{0x01, 0x00}
	CCCDEnableIndicate = []byte{0x02, 0x00}
	CCCDDisable        = []byte{0x00, 0x00}
)

// CCCDValue decodes a 2-byte Client Characteristic Configuration value.
func CCCDValue(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, shortPayload("cccd", 2, data)
	}
	return binary.LittleEndian.Uint16(data), nil
}

func shortPayload(what string, want int, data []byte) error {
	return fmt.Errorf("%s: want %d bytes, got %d: %w", what, want, len(data), ErrShortPayload)
}

// DecodeBattery returns the battery charge in percent.
func DecodeBattery(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, shortPayload("battery", 1, data)
	}
	return int(data[0]), nil
}

// DecodeBrushingTime returns the current brushing time in seconds from a [minutes, seconds] pair.
func DecodeBrushingTime(data []byte) (int, error) {
	if len(data) < 2 {
		return 0, shortPayload("brushing time", 2, data)
	}
	return int(data[0])*60 + int(data[1]), nil
}

// DecodeModelID returns the model identifier reported by the handle.
func DecodeModelID(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, shortPayload("model id", 1, data)
	}
	return int(data[0]), nil
}
