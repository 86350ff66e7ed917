package table

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Borislavv/shared-ref/pkg/sharedref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	key uint64
	seq uint64
}

func TestPutAcquireDrop(t *testing.T) {
	tbl := New[payload](4, 16)
	hash := HashUint64(1)

	replaced := tbl.Put(hash, sharedref.New(payload{key: 1, seq: 1}))
	assert.False(t, replaced)
	assert.Equal(t, 1, tbl.Len())

	s, ok := tbl.Acquire(hash)
	require.True(t, ok)
	assert.Equal(t, uint64(1), s.Value().seq)
	s.Drop()

	assert.True(t, tbl.Put(hash, sharedref.New(payload{key: 1, seq: 2})))

	s2, ok := tbl.Acquire(hash)
	require.True(t, ok)
	assert.Equal(t, uint64(2), s2.Value().seq)
	s2.Drop()

	assert.True(t, tbl.Drop(hash))
	assert.False(t, tbl.Drop(hash))
	assert.Equal(t, 0, tbl.Len())
}

func TestPutAcquireByBytesKey(t *testing.T) {
	tbl := New[payload](2, 8)
	hash := Hash([]byte("order-7"))

	tbl.Put(hash, sharedref.New(payload{key: 7, seq: 7}))

	s, ok := tbl.Acquire(hash)
	require.True(t, ok)
	assert.Equal(t, uint64(7), s.Value().seq)
	s.Drop()

	// The same bytes must land in the same slot.
	s2, ok := tbl.Acquire(Hash([]byte("order-7")))
	require.True(t, ok)
	s2.Drop()

	tbl.Close()
}

func TestWatchEmptySlotIsDangling(t *testing.T) {
	tbl := New[payload](2, 8)
	w := tbl.Watch(HashUint64(99))
	assert.True(t, w.IsDangling())
	_, ok := w.Upgrade()
	assert.False(t, ok)
}

func TestWatchOutlivesReplace(t *testing.T) {
	destroys := atomic.Int64{}
	tbl := New[payload](2, 8)
	hash := HashUint64(7)

	tbl.Put(hash, sharedref.NewWithFinalizer(payload{seq: 1}, func(payload) { destroys.Add(1) }))
	w := tbl.Watch(hash)

	u, ok := w.Upgrade()
	require.True(t, ok)
	assert.Equal(t, uint64(1), u.Value().seq)

	// Replacing the slot drops the table's handle, but the upgraded
	// handle keeps the first payload alive.
	tbl.Put(hash, sharedref.New(payload{seq: 2}))
	assert.Equal(t, int64(0), destroys.Load())

	u.Drop()
	assert.Equal(t, int64(1), destroys.Load())

	_, ok = w.Upgrade()
	assert.False(t, ok, "upgrade must fail after the payload is gone")
	w.Drop()

	tbl.Close()
}

// Concurrent readers and writers churning the same table: every payload must
// be destroyed exactly once, and every successful upgrade must observe a
// live payload.
func TestTableConcurrentChurn(t *testing.T) {
	allocatedBefore, destroyedBefore, freedBefore := sharedref.AllocStats()

	const (
		keys       = 64
		writers    = 2
		readers    = 4
		iterations = 5_000
	)

	tbl := New[payload](8, 32)
	var (
		upgradesOK   atomic.Int64
		upgradesGone atomic.Int64
		seq          atomic.Uint64
	)

	wg := &sync.WaitGroup{}

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(worker)))
			for j := 0; j < iterations; j++ {
				key := uint64(rnd.Intn(keys))
				hash := HashUint64(key)
				if rnd.Intn(4) == 0 {
					tbl.Drop(hash)
					continue
				}
				tbl.Put(hash, sharedref.New(payload{key: key, seq: seq.Add(1)}))
			}
		}(i)
	}

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(100 + worker)))
			for j := 0; j < iterations; j++ {
				hash := HashUint64(uint64(rnd.Intn(keys)))
				w := tbl.Watch(hash)
				if u, ok := w.Upgrade(); ok {
					if u.Value().seq == 0 {
						panic("upgraded payload is not alive")
					}
					upgradesOK.Add(1)
					u.Drop()
				} else {
					upgradesGone.Add(1)
				}
				w.Drop()
			}
		}(i)
	}

	wg.Wait()
	tbl.Close()

	allocated, destroyed, freed := sharedref.AllocStats()
	assert.Equal(t, allocated-allocatedBefore, destroyed-destroyedBefore,
		"every payload destroyed exactly once")
	assert.Equal(t, allocated-allocatedBefore, freed-freedBefore,
		"every block freed exactly once")
	assert.Positive(t, upgradesOK.Load())

	t.Logf("upgrades ok: %d, gone: %d, blocks: %d",
		upgradesOK.Load(), upgradesGone.Load(), allocated-allocatedBefore)
}
