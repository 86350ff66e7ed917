// Package modelcheck is a property-style concurrency harness for the
// sharedref handle pair. It has no scheduler of its own: a scenario is run
// for many rounds under the regular Go scheduler so that goroutine
// interleavings vary. After every round the allocation accounting must
// balance: each block allocated during the round had its payload destroyed
// exactly once and its memory freed exactly once.
package modelcheck

import (
	"testing"
)

const (
	defaultRounds = 1_000
	shortRounds   = 50
)

// Run executes scenario for the default number of rounds. The scenario must
// join every goroutine it spawns before returning; the per-round leak check
// relies on it.
func Run(t *testing.T, scenario func()) {
	t.Helper()
	rounds := defaultRounds
	if testing.Short() {
		rounds = shortRounds
	}
	RunRounds(t, rounds, scenario)
}

// RunRounds is Run with an explicit round count.
func RunRounds(t *testing.T, rounds int, scenario func()) {
	t.Helper()
	for round := 0; round < rounds; round++ {
		check := newLeakCheck()
		scenario()
		if err := check.verify(); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
}
