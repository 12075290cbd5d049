package main

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/srg/oralb/internal/device"
	"github.com/srg/oralb/internal/testutils"
	"github.com/srg/oralb/pkg/oralb"
	"github.com/srg/oralb/pkg/oralb/protocol"
	"github.com/stretchr/testify/suite"
)

type SessionsTestSuite struct {
	CommandTestSuite
	selected atomic.Int32
}

func (s *SessionsTestSuite) SetupTest() {
	s.CommandTestSuite.SetupTest()

	history := map[int32][]byte{
		0: append(append([]byte{}, testClockBytes...), 0x78, 0x00, 0x05, 0x00, byte(protocol.ModeDailyClean), 80),
		1: append(append([]byte{}, testClockBytes...), 0x5a, 0x00),
	}
	s.selected.Store(-1)
	s.peripheral.OnWrite = func(handle uint16, data []byte) {
		if handle == controlHandle && len(data) == 2 && data[0] == protocol.CmdSelectSession {
			s.selected.Store(int32(data[1]))
		}
	}
	s.peripheral.OnRead = func(handle uint16) ([]byte, error) {
		if data, ok := history[s.selected.Load()]; ok && handle == sessionHandle {
			return data, nil
		}
		return make([]byte, 10), nil
	}
}

func (s *SessionsTestSuite) TestSessionsJSON() {
	out, _, err := s.ExecuteCommand("sessions", testDeviceAddress, "-o", "json")
	s.Require().NoError(err)

	expected := []map[string]any{
		{
			"slot": 0, "empty": false, "start": "2024-03-01T12:00:00Z",
			"duration_seconds": 120, "pressure_seconds": 5, "mode": "daily_clean", "battery_percent": 80,
		},
		{
			"slot": 1, "empty": false, "start": "2024-03-01T12:00:00Z",
			"duration_seconds": 90, "pressure_seconds": 0, "mode": nil, "battery_percent": nil,
		},
	}
	for i := 2; i < oralb.SessionSlots; i++ {
		expected = append(expected, map[string]any{
			"slot": i, "empty": true, "start": nil,
			"duration_seconds": nil, "pressure_seconds": nil, "mode": nil, "battery_percent": nil,
		})
	}
	testutils.NewJSONAsserter(s.T()).Assert(out, testutils.MustJSON(expected))

	writes := s.peripheral.Writes(controlHandle)
	s.Require().Len(writes, oralb.SessionSlots)
	for i, w := range writes {
		s.Equal([]byte{0x02, byte(i)}, w)
	}
}

func (s *SessionsTestSuite) TestSessionsText() {
	out, _, err := s.ExecuteCommand("sessions", testDeviceAddress)
	s.Require().NoError(err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	s.Require().Len(lines, oralb.SessionSlots+1)
	s.Equal([]string{"SLOT", "EMPTY", "START", "DURATION_SECONDS", "PRESSURE_SECONDS", "MODE", "BATTERY_PERCENT"}, strings.Fields(lines[0]))
	s.Equal([]string{"0", "false", "2024-03-01T12:00:00Z", "120", "5", "daily_clean", "80"}, strings.Fields(lines[1]))
	s.Equal([]string{"1", "false", "2024-03-01T12:00:00Z", "90", "0", "-", "-"}, strings.Fields(lines[2]))
	s.Equal([]string{"9", "true", "-", "-", "-", "-", "-"}, strings.Fields(lines[10]))
}

func (s *SessionsTestSuite) TestFailingSlotAborts() {
	s.peripheral.OnRead = func(uint16) ([]byte, error) {
		if s.selected.Load() == 4 {
			return nil, device.ErrTimeout
		}
		return make([]byte, 10), nil
	}

	out, _, err := s.ExecuteCommand("sessions", testDeviceAddress)
	s.ErrorIs(err, oralb.ErrSessionSlot)
	s.ErrorIs(err, device.ErrTimeout)
	s.Contains(FormatUserError(err), "session slot 4")
	s.Empty(out, "partial history MUST not be printed")
}

func (s *SessionsTestSuite) TestHistoryUnsupported() {
	s.UsePeripheral(testutils.NewFakePeripheral(toothbrushProfile(oralb.RoleSessionInfo)...))

	_, _, err := s.ExecuteCommand("sessions", testDeviceAddress)
	s.ErrorIs(err, ErrUnsupported)
}

func TestSessionsTestSuite(t *testing.T) {
	suite.Run(t, new(SessionsTestSuite))
}
