package main

import (
	"bytes"
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/srg/oralb/internal/device"
	"github.com/srg/oralb/internal/testutils"
	"github.com/srg/oralb/pkg/config"
	"github.com/srg/oralb/pkg/oralb"
	"github.com/srg/oralb/pkg/oralb/protocol"
	"github.com/stretchr/testify/suite"
)

const testDeviceAddress = "E4:7F:D8:00:00:01"

// Value handles of the fake toothbrush; each CCCD sits at handle+1.
const (
	modelHandle     uint16 = 0x0010
	statusHandle    uint16 = 0x0013
	batteryHandle   uint16 = 0x0016
	modeHandle      uint16 = 0x0019
	brushTimeHandle uint16 = 0x001c
	controlHandle   uint16 = 0x001f
	clockHandle     uint16 = 0x0022
	modesHandle     uint16 = 0x0025
	sessionHandle   uint16 = 0x0028
)

// 2024-03-01T12:00:00Z on the device clock
var testClockBytes = []byte{0xc0, 0x7f, 0x74, 0x2d}

func toothbrushProfile(roles ...oralb.Role) []device.CharacteristicInfo {
	handles := map[oralb.Role]uint16{
		oralb.RoleModelID:        modelHandle,
		oralb.RoleStatus:         statusHandle,
		oralb.RoleBattery:        batteryHandle,
		oralb.RoleMode:           modeHandle,
		oralb.RoleBrushingTime:   brushTimeHandle,
		oralb.RoleControl:        controlHandle,
		oralb.RoleClock:          clockHandle,
		oralb.RoleAvailableModes: modesHandle,
		oralb.RoleSessionInfo:    sessionHandle,
	}
	if len(roles) == 0 {
		roles = oralb.Roles
	}

	chars := make([]device.CharacteristicInfo, 0, len(roles))
	for _, role := range roles {
		props := device.PropRead
		switch role {
		case oralb.RoleStatus, oralb.RoleBattery, oralb.RoleMode, oralb.RoleBrushingTime:
			props |= device.PropNotify
		case oralb.RoleControl, oralb.RoleClock, oralb.RoleAvailableModes:
			props |= device.PropWrite
		}
		chars = append(chars, device.CharacteristicInfo{UUID: role.UUID(), Handle: handles[role], Properties: props})
	}
	return chars
}

// CommandTestSuite runs commands against a fake toothbrush instead of a BLE adapter.
type CommandTestSuite struct {
	suite.Suite
	peripheral *testutils.FakePeripheral

	mu         sync.Mutex
	dialed     []string
	dialConfig *config.Config
	dialErr    error

	origConnector  func(context.Context, string, *config.Config, *logrus.Logger) (Link, error)
	origConfigPath func() string
}

func (s *CommandTestSuite) SetupSuite() {
	s.origConnector = connector
	s.origConfigPath = defaultConfigPath
}

func (s *CommandTestSuite) TearDownSuite() {
	connector = s.origConnector
	defaultConfigPath = s.origConfigPath
}

func (s *CommandTestSuite) SetupTest() {
	s.peripheral = testutils.NewFakePeripheral(toothbrushProfile()...)
	s.peripheral.
		SetValue(modelHandle, []byte{0x22}).
		SetValue(statusHandle, []byte{byte(protocol.StateRun)}).
		SetValue(batteryHandle, []byte{87}).
		SetValue(modeHandle, []byte{byte(protocol.ModeSensitive)}).
		SetValue(brushTimeHandle, []byte{1, 45}).
		SetValue(clockHandle, testClockBytes).
		SetValue(modesHandle, []byte{1, 2, 7, 0, 0, 0, 0, 0})

	s.dialed = nil
	s.dialConfig = nil
	s.dialErr = nil
	connector = func(_ context.Context, address string, cfg *config.Config, _ *logrus.Logger) (Link, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dialed = append(s.dialed, address)
		s.dialConfig = cfg
		if s.dialErr != nil {
			return nil, s.dialErr
		}
		return s.peripheral, nil
	}
	defaultConfigPath = func() string { return "" }

	resetFlags(rootCmd)
}

// UsePeripheral replaces the fake toothbrush for the next command.
func (s *CommandTestSuite) UsePeripheral(p *testutils.FakePeripheral) {
	s.peripheral = p
}

// Dialed returns the addresses the command connected to.
func (s *CommandTestSuite) Dialed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dialed...)
}

// ExecuteCommand runs the root command with args, returns stdout, stderr and error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, string, error) {
	return s.ExecuteCommandContext(context.Background(), args...)
}

// ExecuteCommandContext is ExecuteCommand with a caller-controlled context.
func (s *CommandTestSuite) ExecuteCommandContext(ctx context.Context, args ...string) (string, string, error) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	setContext(rootCmd, ctx)
	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default so commands do not leak state between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setContext pins ctx on every command; cobra only fills a subcommand context that is still unset.
func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(c, ctx)
	}
}
