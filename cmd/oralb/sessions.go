package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/oralb/pkg/oralb"
	"github.com/srg/oralb/pkg/oralb/protocol"
)

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions [device-address]",
	Short: "Dump the brushing session history",
	Long: fmt.Sprintf(`Walks the %d history slots of the handle in slot order.
Unused slots are listed as empty.

Examples:
  oralb sessions %s
  oralb sessions %s -o json

%s`, oralb.SessionSlots, exampleDeviceAddress, exampleDeviceAddress, deviceAddressNote),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, args, runSessions)
	},
}

func runSessions(_ context.Context, env *commandEnv) error {
	if !env.session.Supports(oralb.RoleControl) || !env.session.Supports(oralb.RoleSessionInfo) {
		return fmt.Errorf("session history is %w", ErrUnsupported)
	}

	var records []protocol.SessionRecord
	if err := env.session.ReadSessions(func(v []protocol.SessionRecord) { records = v }); err != nil {
		return err
	}

	rows := make([]*record, len(records))
	for i, r := range records {
		rows[i] = sessionRow(i, r)
	}
	return env.out.Table(rows)
}

func sessionRow(slot int, r protocol.SessionRecord) *record {
	row := newRecord()
	row.Set("slot", slot)
	row.Set("empty", r.Empty())
	row.Set("start", nil)
	row.Set("duration_seconds", nil)
	row.Set("pressure_seconds", nil)
	row.Set("mode", nil)
	row.Set("battery_percent", nil)
	if r.Empty() {
		return row
	}

	row.Set("start", r.Start.Format(time.RFC3339))
	row.Set("duration_seconds", int(r.Duration/time.Second))
	row.Set("pressure_seconds", int(r.HighPressure/time.Second))
	if r.Mode != protocol.ModeUnknown {
		row.Set("mode", r.Mode.String())
	}
	if r.Battery >= 0 {
		row.Set("battery_percent", r.Battery)
	}
	return row
}
