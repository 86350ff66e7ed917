package modelcheck

import (
	"fmt"

	"github.com/Borislavv/shared-ref/pkg/sharedref"
)

// leakCheck snapshots the process-wide allocation counters so a round can
// be verified in isolation. Rounds must therefore not overlap; the harness
// runs them sequentially.
type leakCheck struct {
	allocated int64
	destroyed int64
	freed     int64
}

func newLeakCheck() leakCheck {
	a, d, f := sharedref.AllocStats()
	return leakCheck{allocated: a, destroyed: d, freed: f}
}

func (c leakCheck) verify() error {
	a, d, f := sharedref.AllocStats()
	allocated, destroyed, freed := a-c.allocated, d-c.destroyed, f-c.freed
	if destroyed != allocated {
		return fmt.Errorf("payload leak: %d blocks allocated, %d payloads destroyed", allocated, destroyed)
	}
	if freed != allocated {
		return fmt.Errorf("block leak: %d blocks allocated, %d freed", allocated, freed)
	}
	return nil
}
