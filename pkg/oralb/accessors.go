package oralb

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/oralb/pkg/oralb/protocol"
)

// ReadBatteryLevel reads the battery charge in percent.
func (s *Session) ReadBatteryLevel(onRead func(percent int)) error {
	return readValue(s, RoleBattery, protocol.DecodeBattery, onRead)
}

// SetBatteryLevelHandler subscribes fn to battery updates; nil unsubscribes.
func (s *Session) SetBatteryLevelHandler(fn func(percent int)) error {
	return setHandler(s, RoleBattery, protocol.DecodeBattery, fn)
}

// ReadBrushingTime reads the elapsed brushing time in seconds.
func (s *Session) ReadBrushingTime(onRead func(seconds int)) error {
	return readValue(s, RoleBrushingTime, protocol.DecodeBrushingTime, onRead)
}

// SetBrushingTimeHandler subscribes fn to brushing time updates; nil unsubscribes.
func (s *Session) SetBrushingTimeHandler(fn func(seconds int)) error {
	return setHandler(s, RoleBrushingTime, protocol.DecodeBrushingTime, fn)
}

// ReadBrushState reads the handle state.
func (s *Session) ReadBrushState(onRead func(protocol.BrushState)) error {
	return readValue(s, RoleStatus, protocol.DecodeBrushState, onRead)
}

// SetBrushStateHandler subscribes fn to state changes; nil unsubscribes.
func (s *Session) SetBrushStateHandler(fn func(protocol.BrushState)) error {
	return setHandler(s, RoleStatus, protocol.DecodeBrushState, fn)
}

// ReadBrushMode reads the selected brushing mode.
func (s *Session) ReadBrushMode(onRead func(protocol.BrushMode)) error {
	return readValue(s, RoleMode, protocol.DecodeBrushMode, onRead)
}

// SetBrushModeHandler subscribes fn to mode changes; nil unsubscribes.
func (s *Session) SetBrushModeHandler(fn func(protocol.BrushMode)) error {
	return setHandler(s, RoleMode, protocol.DecodeBrushMode, fn)
}

// ReadModelID reads the model identifier.
func (s *Session) ReadModelID(onRead func(id int)) error {
	return readValue(s, RoleModelID, protocol.DecodeModelID, onRead)
}

// ReadClock reads the device clock.
func (s *Session) ReadClock(onRead func(time.Time)) error {
	return readValue(s, RoleClock, protocol.DecodeDate, onRead)
}

// SetClock sets the device clock. Requires the control and clock characteristics.
func (s *Session) SetClock(t time.Time) error {
	payload, err := protocol.EncodeDate(t)
	if err != nil {
		return err
	}
	b := s.bound(RoleControl, RoleClock)
	if b == nil {
		return nil
	}
	if err := s.control(b[0], protocol.SetClock()); err != nil {
		return err
	}
	return s.write(b[1], payload)
}

// ReadAvailableModes reads the ordered list of modes the handle cycles through.
// Zero padding after the last mode is dropped.
func (s *Session) ReadAvailableModes(onRead func([]protocol.BrushMode)) error {
	return readValue(s, RoleAvailableModes, func(data []byte) ([]protocol.BrushMode, error) {
		return protocol.DecodeModes(data), nil
	}, onRead)
}

// SetAvailableModes replaces the ordered mode list, at most protocol.ModeListCapacity entries.
func (s *Session) SetAvailableModes(modes []protocol.BrushMode) error {
	payload, err := protocol.EncodeModes(modes)
	if err != nil {
		return err
	}
	b := s.bound(RoleControl, RoleAvailableModes)
	if b == nil {
		return nil
	}
	if err := s.control(b[0], protocol.SetModes()); err != nil {
		return err
	}
	return s.write(b[1], payload)
}

// ReadSessions walks the history slots 0..SessionSlots-1 in order. Each slot is
// selected with a control write and then read from the session-info characteristic.
// Another client changing the selection between the two requests yields stale data.
func (s *Session) ReadSessions(onRead func([]protocol.SessionRecord)) error {
	b := s.bound(RoleControl, RoleSessionInfo)
	if b == nil {
		return nil
	}
	ctl, info := b[0], b[1]

	records := make([]protocol.SessionRecord, 0, SessionSlots)
	for i := 0; i < SessionSlots; i++ {
		if err := s.control(ctl, protocol.SelectSession(uint8(i))); err != nil {
			return fmt.Errorf("%w %d: %w", ErrSessionSlot, i, err)
		}
		data, err := s.read(info)
		if err != nil {
			return fmt.Errorf("%w %d: %w", ErrSessionSlot, i, err)
		}
		record, err := protocol.DecodeSessionRecord(data)
		if err != nil {
			return fmt.Errorf("%w %d: %w", ErrSessionSlot, i, err)
		}
		records = append(records, record)
	}

	s.logger.WithFields(logrus.Fields{"slots": len(records)}).Debug("Session history read")
	if onRead != nil {
		onRead(records)
	}
	return nil
}
