package sharedref

// Weak is a non-owning observer of a block. It keeps the block's memory
// reachable but not the payload: the payload dies with the last Strong
// handle, after which Upgrade reports the value as gone.
//
// The zero Weak is dangling: bound to no block, produced without allocation,
// Clone and Drop are no-ops and Upgrade always fails. A bound Weak becomes
// dangling again after Drop.
type Weak[T any] struct {
	b *block[T]
}

// NewWeak returns a dangling observer. It never allocates and never touches
// shared memory; its only use is to stand in where "the value is already
// gone" is the desired answer.
func NewWeak[T any]() Weak[T] {
	return Weak[T]{}
}

// IsDangling reports whether this observer is bound to a block at all.
func (w Weak[T]) IsDangling() bool {
	return w.b == nil
}

// Clone returns another observer of the same block, or another dangling
// observer when called on one.
func (w Weak[T]) Clone() Weak[T] {
	if w.b != nil {
		w.b.acquireWeakFromWeak()
	}
	return Weak[T]{b: w.b}
}

// Drop releases this observer's weak unit. Dropping the last weak unit
// anywhere frees the block. No-op on a dangling observer.
func (w *Weak[T]) Drop() {
	if w.b == nil {
		return
	}
	b := w.b
	w.b = nil
	b.releaseWeak()
}

// Upgrade attempts to re-obtain an owning handle. The comma-ok result is
// false when the payload has already been destroyed (or the observer is
// dangling); that is the one expected, recoverable failure mode of this
// package and every caller must handle it.
func (w Weak[T]) Upgrade() (Strong[T], bool) {
	if w.b == nil {
		return Strong[T]{}, false
	}
	if !w.b.acquireStrongFromWeak() {
		return Strong[T]{}, false
	}
	return Strong[T]{b: w.b}, true
}
