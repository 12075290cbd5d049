package protocol

import (
	"encoding/binary"
	"time"
)

const sessionRecordMinSize = 6

// SessionRecord is one brushing session from the handle history.
type SessionRecord struct {
	Start        time.Time
	Duration     time.Duration
	HighPressure time.Duration // time spent above the pressure threshold
	Mode         BrushMode
	Battery      int // percent at the end of the session, -1 when not reported
	slotUnused   bool
}

// Empty reports whether the history slot holds no session.
func (r SessionRecord) Empty() bool {
	return r.slotUnused
}

// DecodeSessionRecord decodes the session-info characteristic.
//
//	[0:4]  start, device date
//	[4:6]  brushing duration, seconds, little-endian
//	[6:8]  time under high pressure, seconds, little-endian (optional)
//	[8]    brush mode (optional)
//	[9]    battery percent (optional)
func DecodeSessionRecord(data []byte) (SessionRecord, error) {
	if len(data) < sessionRecordMinSize {
		return SessionRecord{}, shortPayload("session record", sessionRecordMinSize, data)
	}

	start, err := DecodeDate(data[0:4])
	if err != nil {
		return SessionRecord{}, err
	}

	r := SessionRecord{
		Start:      start,
		Duration:   time.Duration(binary.LittleEndian.Uint16(data[4:6])) * time.Second,
		Mode:       ModeUnknown,
		Battery:    -1,
		slotUnused: binary.LittleEndian.Uint32(data[0:4]) == 0,
	}
	if len(data) >= 8 {
		r.HighPressure = time.Duration(binary.LittleEndian.Uint16(data[6:8])) * time.Second
	}
	if len(data) >= 9 {
		r.Mode = BrushMode(data[8])
	}
	if len(data) >= 10 {
		r.Battery = int(data[9])
	}
	return r, nil
}
