package protocol

import (
	"fmt"
	"strings"
)

// BrushMode is a brushing program selectable on the handle.
type BrushMode uint8

const (
	ModeOff            BrushMode = 0
	ModeDailyClean     BrushMode = 1
	ModeSensitive      BrushMode = 2
	ModeMassage        BrushMode = 3
	ModeWhitening      BrushMode = 4
	ModeDeepClean      BrushMode = 5
	ModeTongueCleaning BrushMode = 6
	ModeTurbo          BrushMode = 7
	ModeUnknown        BrushMode = 255
)

// ModeListCapacity is the size of the available-modes buffer.
const ModeListCapacity = 8

var modeNames = map[BrushMode]string{
	ModeOff:            "off",
	ModeDailyClean:     "daily_clean",
	ModeSensitive:      "sensitive",
	ModeMassage:        "massage",
	ModeWhitening:      "whitening",
	ModeDeepClean:      "deep_clean",
	ModeTongueCleaning: "tongue_cleaning",
	ModeTurbo:          "turbo",
	ModeUnknown:        "unknown",
}

func (m BrushMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("BrushMode(%d)", uint8(m))
}

// ParseBrushMode parses a mode name as printed by String. Dashes and case are ignored.
func ParseBrushMode(name string) (BrushMode, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for m, s := range modeNames {
		if s == n {
			return m, nil
		}
	}
	return ModeUnknown, fmt.Errorf("unknown brush mode %q", name)
}

// DecodeBrushMode decodes the first byte of the mode characteristic.
func DecodeBrushMode(data []byte) (BrushMode, error) {
	if len(data) < 1 {
		return ModeUnknown, shortPayload("brush mode", 1, data)
	}
	return BrushMode(data[0]), nil
}

// DecodeModes decodes the available-modes buffer up to the first zero byte.
// Off is never a selectable program, so the firmware pads unused slots with it.
func DecodeModes(data []byte) []BrushMode {
	modes := make([]BrushMode, 0, len(data))
	for _, b := range data {
		if BrushMode(b) == ModeOff {
			break
		}
		modes = append(modes, BrushMode(b))
	}
	return modes
}

// DecodeModesPadded decodes every byte of the buffer, padding included.
func DecodeModesPadded(data []byte) []BrushMode {
	modes := make([]BrushMode, len(data))
	for i, b := range data {
		modes[i] = BrushMode(b)
	}
	return modes
}

// EncodeModes lays the modes out in the fixed 8-byte buffer, zero filling the rest.
func EncodeModes(modes []BrushMode) ([]byte, error) {
	if len(modes) > ModeListCapacity {
		return nil, fmt.Errorf("%d modes, device holds %d: %w", len(modes), ModeListCapacity, ErrTooManyModes)
	}
	buf := make([]byte, ModeListCapacity)
	for i, m := range modes {
		buf[i] = byte(m)
	}
	return buf, nil
}
