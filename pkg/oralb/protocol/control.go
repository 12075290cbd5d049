package protocol

import "fmt"

// Control command identifiers, first byte of a control frame.
const (
	CmdSelectSession byte = 0x02
	CmdConfigure     byte = 0x37
)

// Parameters of CmdConfigure.
const (
	ParamSetClock byte = 0x26
	ParamSetModes byte = 0x29
)

// ControlFrame is the 2-byte command written to the control characteristic.
type ControlFrame struct {
	Command byte
	Param   byte
}

// Bytes returns the wire form [command, param].
func (f ControlFrame) Bytes() []byte {
	return []byte{f.Command, f.Param}
}

func (f ControlFrame) String() string {
	return fmt.Sprintf("%02x%02x", f.Command, f.Param)
}

// SelectSession selects the history slot exposed on the session-info characteristic.
func SelectSession(index uint8) ControlFrame {
	return ControlFrame{Command: CmdSelectSession, Param: index}
}

// SetClock announces that the next clock write carries a new device date.
func SetClock() ControlFrame {
	return ControlFrame{Command: CmdConfigure, Param: ParamSetClock}
}

// SetModes announces that the next available-modes write carries a new mode list.
func SetModes() ControlFrame {
	return ControlFrame{Command: CmdConfigure, Param: ParamSetModes}
}
