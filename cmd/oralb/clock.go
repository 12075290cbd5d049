package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/oralb/pkg/oralb"
)

// clockCmd represents the clock command
var clockCmd = &cobra.Command{
	Use:   "clock [device-address]",
	Short: "Read or set the toothbrush clock",
	Long: fmt.Sprintf(`Reads the toothbrush clock. With --set, writes a new date first and reads it back.
The handle keeps whole seconds since 2000-01-01 UTC.

Examples:
  oralb clock %s
  oralb clock %s --set now
  oralb clock %s --set 2024-03-01T12:00:00Z

%s`, exampleDeviceAddress, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if clockSet == "" {
			return nil
		}
		_, err := parseClockValue(clockSet, time.Now())
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, args, runClock)
	},
}

var clockSet string

func init() {
	clockCmd.Flags().StringVar(&clockSet, "set", "", "New clock value: 'now' or an RFC3339 timestamp")
}

// parseClockValue accepts "now" or an RFC3339 timestamp.
func parseClockValue(value string, now time.Time) (time.Time, error) {
	if strings.EqualFold(strings.TrimSpace(value), "now") {
		return now.UTC().Truncate(time.Second), nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --set value %q: use 'now' or RFC3339 (e.g. 2024-03-01T12:00:00Z)", value)
	}
	return t.UTC(), nil
}

func runClock(_ context.Context, env *commandEnv) error {
	s := env.session

	if clockSet != "" {
		if !s.Supports(oralb.RoleControl) || !s.Supports(oralb.RoleClock) {
			return fmt.Errorf("setting the clock is %w", ErrUnsupported)
		}
		at, err := parseClockValue(clockSet, time.Now())
		if err != nil {
			return err
		}
		if err := s.SetClock(at); err != nil {
			return fmt.Errorf("failed to set clock: %w", err)
		}
		env.logger.WithField("clock", at.Format(time.RFC3339)).Info("Clock set")
	}

	rec := newRecord()
	rec.Set("clock", nil)
	if err := s.ReadClock(func(t time.Time) { rec.Set("clock", t.Format(time.RFC3339)) }); err != nil {
		return fmt.Errorf("failed to read clock: %w", err)
	}
	return env.out.Record(rec)
}
