package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/oralb/pkg/oralb/protocol"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [device-address]",
	Short: "Show model, battery, state, mode, brushing time and clock",
	Long: fmt.Sprintf(`Reads every known toothbrush characteristic once and prints the decoded values.
Characteristics the firmware does not expose are reported as "unsupported".

Examples:
  oralb status %s
  oralb status %s -o json

%s`, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, args, runStatus)
	},
}

func runStatus(_ context.Context, env *commandEnv) error {
	s := env.session
	rec := newRecord()
	rec.Set("address", env.address)

	// nil stays in place when the role is not bound
	steps := []struct {
		key  string
		read func(set func(any)) error
	}{
		{"model_id", func(set func(any)) error {
			return s.ReadModelID(func(v int) { set(v) })
		}},
		{"state", func(set func(any)) error {
			return s.ReadBrushState(func(v protocol.BrushState) { set(v.String()) })
		}},
		{"mode", func(set func(any)) error {
			return s.ReadBrushMode(func(v protocol.BrushMode) { set(v.String()) })
		}},
		{"battery_percent", func(set func(any)) error {
			return s.ReadBatteryLevel(func(v int) { set(v) })
		}},
		{"brushing_seconds", func(set func(any)) error {
			return s.ReadBrushingTime(func(v int) { set(v) })
		}},
		{"clock", func(set func(any)) error {
			return s.ReadClock(func(v time.Time) { set(v.Format(time.RFC3339)) })
		}},
		{"available_modes", func(set func(any)) error {
			return s.ReadAvailableModes(func(v []protocol.BrushMode) { set(modeNames(v)) })
		}},
	}

	for _, step := range steps {
		rec.Set(step.key, nil)
		if err := step.read(func(v any) { rec.Set(step.key, v) }); err != nil {
			return fmt.Errorf("failed to read %s: %w", step.key, err)
		}
	}
	return env.out.Record(rec)
}

func modeNames(modes []protocol.BrushMode) []string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return names
}
