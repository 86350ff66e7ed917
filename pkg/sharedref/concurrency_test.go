package sharedref_test

import (
	"sync"
	"testing"

	"github.com/Borislavv/shared-ref/pkg/modelcheck"
	"github.com/Borislavv/shared-ref/pkg/sharedref"
	"github.com/stretchr/testify/assert"
)

// The tests below drive the handle pair through many rounds of real
// goroutine interleavings. Every round is followed by a leak check: each
// block allocated in the round must have had its payload destroyed exactly
// once and its memory freed exactly once.

func TestModelTrivialDrop(t *testing.T) {
	modelcheck.Run(t, func() {
		monitor, v1 := modelcheck.NewMonitored(struct{}{})
		if monitor.Destroyed() {
			t.Fatal("payload destroyed while a handle is alive")
		}
		v1.Drop()
		if !monitor.Destroyed() {
			t.Fatal("payload not destroyed after the last drop")
		}
	})
}

func TestModelTrivialClone(t *testing.T) {
	modelcheck.Run(t, func() {
		monitor, v1 := modelcheck.NewMonitored(struct{}{})
		v2 := v1.Clone()
		v3 := v2.Clone()
		v1.Drop()
		v2.Drop()
		if monitor.Destroyed() {
			t.Fatal("payload destroyed before the last drop")
		}
		v3.Drop()
		if monitor.Destroys() != 1 {
			t.Fatalf("payload destroyed %d times", monitor.Destroys())
		}
	})
}

func TestModelTrivialUpgrade(t *testing.T) {
	modelcheck.Run(t, func() {
		monitor, v1 := modelcheck.NewMonitored(struct{}{})
		w1 := v1.Downgrade()

		if u, ok := w1.Upgrade(); ok {
			u.Drop()
		} else {
			t.Fatal("upgrade failed while a Strong handle is alive")
		}
		if monitor.Destroyed() {
			t.Fatal("payload destroyed while the original handle is alive")
		}
		v1.Drop()
		if !monitor.Destroyed() {
			t.Fatal("payload leaked: last Strong handle dropped, weak still outstanding")
		}
		w1.Drop()
	})
}

// Two goroutines each clone then drop the same handle while a third drops
// the original: the marker must flip to destroyed exactly once, never early.
func TestModelCloneClone(t *testing.T) {
	modelcheck.Run(t, func() {
		monitor, v1 := modelcheck.NewMonitored(struct{}{})

		wg := &sync.WaitGroup{}
		for i := 0; i < 2; i++ {
			v2 := v1.Clone()
			wg.Add(1)
			go func() {
				defer wg.Done()
				v3 := v2.Clone()
				v2.Drop()
				v3.Drop()
			}()
		}

		if monitor.Destroyed() {
			t.Fatal("payload destroyed while the original handle is alive")
		}
		v1.Drop()
		wg.Wait()

		if monitor.Destroys() != 1 {
			t.Fatalf("payload destroyed %d times", monitor.Destroys())
		}
	})
}

// A clone/drop storm races a downgrade/upgrade against the drop of the
// original handle.
func TestModelCloneDropUpgrade(t *testing.T) {
	modelcheck.Run(t, func() {
		monitor, v := modelcheck.NewMonitored(struct{}{})
		wg := &sync.WaitGroup{}

		v2 := v.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			v3 := v2.Clone()
			v2.Drop()
			v3.Drop()
		}()

		w := v.Downgrade()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if u, ok := w.Upgrade(); ok {
				u.Drop()
			}
			w.Drop()
		}()

		if monitor.Destroyed() {
			t.Fatal("payload destroyed while the original handle is alive")
		}
		v.Drop()
		wg.Wait()

		if monitor.Destroys() != 1 {
			t.Fatalf("payload destroyed %d times", monitor.Destroys())
		}
	})
}

// Two observers race their upgrades against the drop of the sole Strong
// handle. Whatever the interleaving, the payload is destroyed exactly once
// and every successful upgrade saw it alive.
func TestModelUpgradeUpgrade(t *testing.T) {
	modelcheck.Run(t, func() {
		monitor, v := modelcheck.NewMonitored(42)
		wg := &sync.WaitGroup{}

		for i := 0; i < 2; i++ {
			w := v.Downgrade()
			wg.Add(1)
			go func() {
				defer wg.Done()
				if u, ok := w.Upgrade(); ok {
					if *u.Value() != 42 {
						panic("upgraded payload is not alive")
					}
					u.Drop()
				}
				w.Drop()
			}()
		}

		v.Drop()
		wg.Wait()

		if monitor.Destroys() != 1 {
			t.Fatalf("payload destroyed %d times", monitor.Destroys())
		}
	})
}

// An observer's debug view races the drop of the sole Strong handle. The
// view reads only the counter words, never the payload, so this must stay
// clean under the race detector while destroyPayload zeroes the value.
func TestModelWeakDebugDuringLastDrop(t *testing.T) {
	modelcheck.Run(t, func() {
		monitor, v := modelcheck.NewMonitored("payload")
		w := v.Downgrade()

		wg := &sync.WaitGroup{}
		wg.Add(2)
		go func() {
			defer wg.Done()
			v.Drop()
		}()
		go func() {
			defer wg.Done()
			d := w.Debug()
			if d.Value != "" {
				panic("observer debug view carried a payload")
			}
		}()
		wg.Wait()

		if monitor.Destroys() != 1 {
			t.Fatalf("payload destroyed %d times", monitor.Destroys())
		}
		w.Drop()
	})
}

// Upgrading a dangling observer from many goroutines allocates nothing.
func TestModelDanglingUpgrade(t *testing.T) {
	allocatedBefore, _, _ := sharedref.AllocStats()

	wg := &sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := sharedref.NewWeak[int]()
			for j := 0; j < 1_000; j++ {
				if _, ok := w.Upgrade(); ok {
					panic("dangling upgrade succeeded")
				}
			}
			w.Drop()
		}()
	}
	wg.Wait()

	allocatedAfter, _, _ := sharedref.AllocStats()
	assert.Equal(t, allocatedBefore, allocatedAfter)
}

// High-contention churn: readers clone and drop, observers upgrade, one
// writer eventually drops the original. Left running for a full model run
// to shake out counter transitions under real parallelism.
func TestModelChurn(t *testing.T) {
	modelcheck.RunRounds(t, 200, func() {
		monitor, v := modelcheck.NewMonitored(struct{}{})
		wg := &sync.WaitGroup{}

		for i := 0; i < 4; i++ {
			c := v.Clone()
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 16; j++ {
					cc := c.Clone()
					w := cc.Downgrade()
					if u, ok := w.Upgrade(); ok {
						u.Drop()
					}
					w.Drop()
					cc.Drop()
				}
				c.Drop()
			}()
		}

		v.Drop()
		wg.Wait()

		if monitor.Destroys() != 1 {
			t.Fatalf("payload destroyed %d times", monitor.Destroys())
		}
	})
}
