package sharedref

import (
	"math"
	"sync/atomic"
)

// Strong word bit layout in one uint64:
// [62-bit strong count, in units of 4][1-bit closed][1-bit weakExist]
// weakExist in bit 0, closed in bit 1, count from bit 2 upward.
// The weak word is a plain count in units of 1.

const (
	// weakExist is set once, on the first Downgrade ever performed on a
	// block. It pairs with the implicit weak unit held by the whole
	// strong-handle group and is never cleared while the payload is alive.
	weakExist = 1

	// closed latches 0->1 when the payload has been destroyed.
	// It is never cleared: a closed block never serves a live payload again.
	closed = 2

	// oneStrong is the count unit a single live Strong handle contributes
	// to the strong word. Units of 4 keep the two flag bits clear.
	oneStrong = 4

	// oneWeak is the count unit a single live Weak handle contributes.
	oneWeak = 1

	// maxRefCount guards both words against wrap-around.
	// Exceeding it terminates the process, see fatal.go.
	maxRefCount = uint64(math.MaxInt64)
)

// block is the single heap allocation behind one Strong/Weak family.
// It owns the payload exclusively until the last Strong handle drops.
type block[T any] struct {
	strong    atomic.Uint64
	weak      atomic.Uint64
	value     T
	finalizer func(T)
}

// newBlock allocates a block uniquely owned by one Strong handle:
// one strong unit, zero weak units, payload constructed in place.
func newBlock[T any](value T, finalizer func(T)) *block[T] {
	b := &block[T]{value: value, finalizer: finalizer}
	b.strong.Store(oneStrong)
	blocksAllocated.Add(1)
	return b
}

// destroyPayload runs the finalizer and drops the payload. Reached by
// exactly one goroutine per block, sequenced before free via the weak word.
func (b *block[T]) destroyPayload() {
	if fn := b.finalizer; fn != nil {
		b.finalizer = nil
		fn(b.value)
	}
	var zero T
	b.value = zero
	payloadsDestroyed.Add(1)
}

// free releases the block. Under a collecting runtime the memory itself is
// reclaimed once the last handle lets go of the pointer; accounting marks
// the transition so leak checks can balance allocations against frees.
func (b *block[T]) free() {
	blocksFreed.Add(1)
}

// acquireStrongFromStrong adds one strong unit on behalf of a caller that
// already holds a live Strong handle, so no new visibility is required.
func (b *block[T]) acquireStrongFromStrong() {
	if old := b.strong.Add(oneStrong) - oneStrong; old > maxRefCount {
		overflowAbort("strong")
	}
}

// acquireStrongFromWeak optimistically adds one strong unit and reports
// whether the payload is still alive. On the revival path (zero strong
// units, only the group weak flag set) the implicit group weak unit must
// grow to cover the resurrected handle as well.
//
// When the block is already closed the speculative unit is left behind:
// nothing reads the strong count's magnitude once closed is latched, so
// the overshoot is never observed. A corrective decrement would only
// change diagnostic counter values.
func (b *block[T]) acquireStrongFromWeak() bool {
	old := b.strong.Add(oneStrong) - oneStrong
	if old > maxRefCount {
		overflowAbort("strong")
	}
	if old&closed != 0 {
		return false
	}
	if old < oneStrong {
		if oldWeak := b.weak.Add(oneWeak) - oneWeak; oldWeak > maxRefCount {
			overflowAbort("weak")
		}
	}
	return true
}

// releaseStrong drops one strong unit and, for the last Strong handle,
// walks the block into the Closing phase:
//
//   - no weak ever existed: destroy the payload and free the block outright,
//     nothing else can reference it;
//   - weak exists: a single CAS weakExist -> closed decides destruction
//     responsibility. Losing the CAS means a concurrent Upgrade revived the
//     block first and the payload stays alive. Either way the implicit
//     group weak unit is released, which may in turn free the block.
func (b *block[T]) releaseStrong() {
	old := b.strong.Add(^uint64(oneStrong-1)) + oneStrong
	if old > oneStrong+weakExist {
		return
	}
	if old&weakExist == 0 {
		b.destroyPayload()
		b.free()
		return
	}
	if b.strong.CompareAndSwap(weakExist, closed) {
		b.destroyPayload()
	}
	b.releaseWeak()
}

// acquireWeakFromStrong backs Downgrade. The first downgrade on a block
// creates two weak units in one CAS: the caller's own and the implicit
// unit held collectively by every Strong handle, flagged on the strong word.
func (b *block[T]) acquireWeakFromStrong() {
	if b.weak.Load() == 0 && b.weak.CompareAndSwap(0, 2*oneWeak) {
		b.strong.Add(weakExist)
		return
	}
	b.acquireWeakFromWeak()
}

func (b *block[T]) acquireWeakFromWeak() {
	if old := b.weak.Add(oneWeak) - oneWeak; old > maxRefCount {
		overflowAbort("weak")
	}
}

// releaseWeak drops one weak unit. The goroutine that removes the last
// unit anywhere, the implicit group unit included, frees the block; the
// payload is already gone on every path that reaches zero here.
func (b *block[T]) releaseWeak() {
	if b.weak.Add(^uint64(oneWeak-1))+oneWeak == oneWeak {
		b.free()
	}
}
