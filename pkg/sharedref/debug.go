package sharedref

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Debug is a point-in-time view of a block's counters and payload, for
// diagnostics only. The two counter loads are independent, so the view is
// not an atomic snapshot and carries no correctness guarantees.
type Debug[T any] struct {
	Strong    uint64 // live Strong handles
	Weak      uint64 // weak units, the implicit group unit included
	WeakExist bool
	Closed    bool
	Value     T // populated only via Strong.Debug
}

// Debug reports the current state of the block behind this handle,
// payload included: the live strong unit makes the payload read safe.
func (s Strong[T]) Debug() Debug[T] {
	s.use("Debug")
	d := debugOf(s.b)
	d.Value = s.b.value
	return d
}

// Debug reports the counters and flags of the block behind this observer.
// Value stays zero: an observer does not keep the payload alive, so the
// payload may be destroyed concurrently and must not be read here.
// A dangling observer yields the zero view.
func (w Weak[T]) Debug() Debug[T] {
	if w.b == nil {
		return Debug[T]{}
	}
	return debugOf(w.b)
}

func debugOf[T any](b *block[T]) Debug[T] {
	word := b.strong.Load()
	return Debug[T]{
		Strong:    word >> 2,
		Weak:      b.weak.Load(),
		WeakExist: word&weakExist != 0,
		Closed:    word&closed != 0,
	}
}

func (d Debug[T]) String() string {
	return fmt.Sprintf("sharedref{strong: %d, weak: %d, weakExist: %t, closed: %t, value: %v}",
		d.Strong, d.Weak, d.WeakExist, d.Closed, d.Value)
}

// MarshalZerologObject lets a Debug view be attached to log events directly.
func (d Debug[T]) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("strong", d.Strong).
		Uint64("weak", d.Weak).
		Bool("weak_exist", d.WeakExist).
		Bool("closed", d.Closed).
		Interface("value", d.Value)
}
