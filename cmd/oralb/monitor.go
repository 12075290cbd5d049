package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/srg/oralb/internal/device"
	"github.com/srg/oralb/pkg/oralb"
	"github.com/srg/oralb/pkg/oralb/protocol"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor [device-address]",
	Short: "Follow live battery, state, mode and brushing time updates",
	Long: fmt.Sprintf(`Subscribes to every notifying toothbrush characteristic and prints each update
as it arrives, until interrupted with Ctrl+C or the toothbrush goes out of range.

Examples:
  oralb monitor %s
  oralb monitor %s -o json | jq .

%s`, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, args, runMonitor)
	},
}

func runMonitor(ctx context.Context, env *commandEnv) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := env.session
	emit := func(name string, v any) {
		if err := env.out.Event(name, v); err != nil {
			env.logger.WithError(err).Warn("Failed to print update")
		}
	}

	live := []struct {
		role      oralb.Role
		subscribe func() error
	}{
		{oralb.RoleStatus, func() error {
			return s.SetBrushStateHandler(func(v protocol.BrushState) { emit("state", v.String()) })
		}},
		{oralb.RoleMode, func() error {
			return s.SetBrushModeHandler(func(v protocol.BrushMode) { emit("mode", v.String()) })
		}},
		{oralb.RoleBattery, func() error {
			return s.SetBatteryLevelHandler(func(v int) { emit("battery_percent", v) })
		}},
		{oralb.RoleBrushingTime, func() error {
			return s.SetBrushingTimeHandler(func(v int) { emit("brushing_seconds", v) })
		}},
	}

	subscribed := 0
	for _, l := range live {
		if b := s.Bindings().Get(l.role); b == nil || !b.Properties.CanNotify() {
			env.logger.WithField("role", l.role.String()).Info("Skipping live updates, characteristic does not notify")
			continue
		}
		if err := l.subscribe(); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", l.role, err)
		}
		subscribed++
	}
	if subscribed == 0 {
		return fmt.Errorf("live updates %w", ErrUnsupported)
	}

	fmt.Fprintf(env.stderr(), "Monitoring %s (%d characteristics). Press Ctrl+C to stop...\n", env.address, subscribed)

	linkCtx := env.link.ConnectionContext()
	select {
	case <-ctx.Done():
		return nil
	case <-linkCtx.Done():
		if errors.Is(context.Cause(linkCtx), device.ErrNotConnected) {
			return ErrConnectionLost
		}
		return nil
	}
}
