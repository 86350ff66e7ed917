// Package table is the shared battlefield of the soak scenarios: a sharded
// table of Strong handles. Writers replace slots (dropping the previous
// owner), readers derive Weak observers and upgrade them outside the shard
// lock, so the upgrade-versus-last-drop race runs permanently against real
// traffic shapes.
package table

import (
	"encoding/binary"
	"sync"

	"github.com/Borislavv/shared-ref/pkg/sharedref"
	"github.com/zeebo/xxh3"
)

type Table[T any] struct {
	shards []*shard[T]
	mask   uint64
}

type shard[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
}

type slot[T any] struct {
	occupied bool
	strong   sharedref.Strong[T]
}

func New[T any](shards, slotsPerShard int) *Table[T] {
	n := nextPowOfTwo(shards)
	t := &Table[T]{
		shards: make([]*shard[T], n),
		mask:   uint64(n - 1),
	}
	for i := range t.shards {
		t.shards[i] = &shard[T]{slots: make([]slot[T], slotsPerShard)}
	}
	return t
}

// Hash maps an arbitrary key to its table position.
func Hash(key []byte) uint64 {
	return xxh3.Hash(key)
}

// HashUint64 maps a numeric key to its table position.
func HashUint64(key uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return xxh3.Hash(buf[:])
}

// Put installs a Strong handle, taking ownership of it. The previous
// occupant of the slot, if any, is dropped; outstanding Weak observers of
// it race their upgrades against that drop. Reports whether a previous
// occupant was replaced.
func (t *Table[T]) Put(hash uint64, s sharedref.Strong[T]) (replaced bool) {
	sh, idx := t.locate(hash)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	old := sh.slots[idx]
	sh.slots[idx] = slot[T]{occupied: true, strong: s}
	if old.occupied {
		old.strong.Drop()
		return true
	}
	return false
}

// Acquire clones the Strong handle at the key's slot. The caller owns the
// returned handle and must Drop it.
func (t *Table[T]) Acquire(hash uint64) (sharedref.Strong[T], bool) {
	sh, idx := t.locate(hash)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	if !sh.slots[idx].occupied {
		return sharedref.Strong[T]{}, false
	}
	return sh.slots[idx].strong.Clone(), true
}

// Watch derives a Weak observer of the key's slot without taking ownership.
// Returns a dangling observer when the slot is empty.
func (t *Table[T]) Watch(hash uint64) sharedref.Weak[T] {
	sh, idx := t.locate(hash)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	if !sh.slots[idx].occupied {
		return sharedref.NewWeak[T]()
	}
	return sh.slots[idx].strong.Downgrade()
}

// Drop vacates the key's slot, dropping the owned handle.
func (t *Table[T]) Drop(hash uint64) bool {
	sh, idx := t.locate(hash)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if !sh.slots[idx].occupied {
		return false
	}
	sh.slots[idx].strong.Drop()
	sh.slots[idx] = slot[T]{}
	return true
}

// Len counts occupied slots across all shards.
func (t *Table[T]) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		for i := range sh.slots {
			if sh.slots[i].occupied {
				n++
			}
		}
		sh.mu.RUnlock()
	}
	return n
}

// Close drops every owned handle. Outstanding Weak observers keep failing
// their upgrades gracefully afterwards.
func (t *Table[T]) Close() {
	for _, sh := range t.shards {
		sh.mu.Lock()
		for i := range sh.slots {
			if sh.slots[i].occupied {
				sh.slots[i].strong.Drop()
				sh.slots[i] = slot[T]{}
			}
		}
		sh.mu.Unlock()
	}
}

func (t *Table[T]) locate(hash uint64) (*shard[T], int) {
	sh := t.shards[hash&t.mask]
	return sh, int((hash >> 16) % uint64(len(sh.slots)))
}

func nextPowOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
