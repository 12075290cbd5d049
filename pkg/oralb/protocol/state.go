package protocol

import "fmt"

// BrushState is the handle state reported on the status characteristic.
type BrushState uint8

const (
	StateUnknown    BrushState = 0
	StateInit       BrushState = 1
	StateIdle       BrushState = 2
	StateRun        BrushState = 3
	StateCharge     BrushState = 4
	StateSetup      BrushState = 5
	StateFlightMenu BrushState = 6
	StateFinalTest  BrushState = 113
	StatePCBTest    BrushState = 114
	StateSleeping   BrushState = 115
	StateTransport  BrushState = 116
)

var stateNames = map[BrushState]string{
	StateUnknown:    "unknown",
	StateInit:       "init",
	StateIdle:       "idle",
	StateRun:        "run",
	StateCharge:     "charge",
	StateSetup:      "setup",
	StateFlightMenu: "flight_menu",
	StateFinalTest:  "final_test",
	StatePCBTest:    "pcb_test",
	StateSleeping:   "sleeping",
	StateTransport:  "transport",
}

func (s BrushState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("BrushState(%d)", uint8(s))
}

// Known reports whether the ordinal is one the firmware is documented to send.
func (s BrushState) Known() bool {
	_, ok := stateNames[s]
	return ok
}

// DecodeBrushState decodes the first byte of the status characteristic.
// Unknown ordinals are returned as-is.
func DecodeBrushState(data []byte) (BrushState, error) {
	if len(data) < 1 {
		return StateUnknown, shortPayload("brush state", 1, data)
	}
	return BrushState(data[0]), nil
}
