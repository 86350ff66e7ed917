// Package scenario contains the soak workloads. Each scenario is a worker
// loop driving the sharedref handle pair through one of its race surfaces:
// clone/drop storms over a shared table, upgrades racing the last drop, and
// cache eviction dropping owners out from under observers.
package scenario

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Payload is what the soak handles carry. Seq is never zero on a live
// payload, so readers can tell a destroyed-then-read value from a real one.
type Payload struct {
	Key uint64
	Seq uint64
}

var seq atomic.Uint64

func nextSeq() uint64 {
	return seq.Add(1)
}

var running atomic.Bool

func init() {
	running.Store(true)
}

// Pause suspends all scenario workers without stopping them.
func Pause() {
	running.Store(false)
}

// Resume lets paused workers continue.
func Resume() {
	running.Store(true)
}

func IsRunning() bool {
	return running.Load()
}

// pauseWait is how long a paused worker sleeps between checks.
const pauseWait = 50 * time.Millisecond

type Scenario interface {
	Name() string
	Run(ctx context.Context)
}

// Spawn starts the given number of workers for a scenario and registers
// them on the wait group.
func Spawn(ctx context.Context, wg *sync.WaitGroup, s Scenario, workers int) {
	log.Info().Msgf("[scenario] %s: starting %d workers", s.Name(), workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Run(ctx)
		}()
	}
}
