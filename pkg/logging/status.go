package logging

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

const journaldUnit = "systemd-journald.service"

// JournalStatus describes whether records can reach the systemd journal.
type JournalStatus struct {
	SocketAvailable bool
	UnitState       string // e.g. "active/running"; empty when unknown
}

// CheckJournal reports journal availability. The unit state is looked up
// over the system bus; a bus error leaves UnitState empty and is returned.
func CheckJournal(ctx context.Context) (JournalStatus, error) {
	st := JournalStatus{SocketAvailable: journalEnabled()}

	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return st, fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	units, err := conn.ListUnitsByNamesContext(ctx, []string{journaldUnit})
	if err != nil {
		return st, fmt.Errorf("list units: %w", err)
	}
	for _, u := range units {
		if u.Name == journaldUnit {
			st.UnitState = u.ActiveState + "/" + u.SubState
		}
	}
	return st, nil
}
