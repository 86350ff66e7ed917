package sharedref

import "sync/atomic"

// Process-wide allocation accounting. Every block passes through exactly
// three phases, monotonically: allocated (Alive) -> payload destroyed
// (Closing) -> freed. The counters below tick once per block per phase and
// back both the debug endpoint and the leak checks in the model tests.
var (
	blocksAllocated   atomic.Int64
	payloadsDestroyed atomic.Int64
	blocksFreed       atomic.Int64
)

// AllocStats reports blocks allocated, payloads destroyed, and blocks freed
// since process start. Diagnostics only: the three loads are not a snapshot
// of a single instant.
func AllocStats() (allocated, destroyed, freed int64) {
	return blocksAllocated.Load(), payloadsDestroyed.Load(), blocksFreed.Load()
}

// LiveBlocks reports how many blocks are currently allocated but not freed.
func LiveBlocks() int64 {
	return blocksAllocated.Load() - blocksFreed.Load()
}
