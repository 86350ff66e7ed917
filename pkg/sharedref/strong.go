// Package sharedref implements a lock-free, reference-counted smart-pointer
// pair: an owning Strong handle and a non-owning Weak observer over a single
// heap block holding a payload plus two atomic counters. Any number of
// goroutines may concurrently create, clone, drop, and upgrade handles to the
// same block; every operation is a small bounded sequence of atomic
// instructions, never a lock and never an unbounded spin.
//
// The payload is shared read-only across all Strong handles. Callers that
// need mutation must wrap the payload themselves. Handles are dropped
// explicitly: every Clone, successful Upgrade, and constructor result must be
// paired with exactly one Drop, the same discipline the rest of this module
// applies to releasable resources.
package sharedref

// Strong is an owning reference keeping the payload alive. The zero value is
// released; obtain one via New, Clone, or Weak.Upgrade. A Strong must not be
// used after Drop.
type Strong[T any] struct {
	b *block[T]
}

// New allocates a fresh block uniquely owned by the returned handle.
func New[T any](value T) Strong[T] {
	return Strong[T]{b: newBlock(value, nil)}
}

// NewWithFinalizer is New with a destructor hook: finalizer runs exactly
// once, on whichever goroutine drops the last Strong handle, before the
// payload is released.
func NewWithFinalizer[T any](value T, finalizer func(T)) Strong[T] {
	return Strong[T]{b: newBlock(value, finalizer)}
}

// Clone returns a new owning handle on the same block.
func (s Strong[T]) Clone() Strong[T] {
	s.use("Clone")
	s.b.acquireStrongFromStrong()
	return Strong[T]{b: s.b}
}

// Drop releases this handle's strong unit. Dropping the last Strong handle
// destroys the payload; whether the block itself is freed then or later
// depends on outstanding Weak handles. Dropping twice panics.
func (s *Strong[T]) Drop() {
	if s.b == nil {
		panic("sharedref: Drop of released Strong handle")
	}
	b := s.b
	s.b = nil
	b.releaseStrong()
}

// Value returns shared read-only access to the payload. No atomic operation
// is involved: holding a live Strong handle already guarantees the payload
// exists and is not destroyed concurrently. The pointee must not be mutated.
func (s Strong[T]) Value() *T {
	s.use("Value")
	return &s.b.value
}

// Downgrade derives a non-owning observer of the same block.
func (s Strong[T]) Downgrade() Weak[T] {
	s.use("Downgrade")
	s.b.acquireWeakFromStrong()
	return Weak[T]{b: s.b}
}

func (s Strong[T]) use(op string) {
	if s.b == nil {
		panic("sharedref: " + op + " on released Strong handle")
	}
}
