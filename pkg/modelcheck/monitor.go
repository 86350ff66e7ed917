package modelcheck

import (
	"sync/atomic"

	"github.com/Borislavv/shared-ref/pkg/sharedref"
)

// Monitor is an external liveness marker: it observes payload destruction
// from outside the handle pair, so scenarios can assert when exactly the
// last owning handle went away.
type Monitor struct {
	destroys atomic.Int64
}

// NewMonitored allocates a Strong handle whose payload destruction is
// observable through the returned Monitor.
func NewMonitored[T any](value T) (*Monitor, sharedref.Strong[T]) {
	m := &Monitor{}
	return m, sharedref.NewWithFinalizer(value, func(T) { m.destroys.Add(1) })
}

// Destroyed reports whether the payload has been destroyed yet.
func (m *Monitor) Destroyed() bool {
	return m.destroys.Load() > 0
}

// Destroys reports how many times the payload was destroyed. Anything but
// 0 or 1 is a protocol violation.
func (m *Monitor) Destroys() int64 {
	return m.destroys.Load()
}
