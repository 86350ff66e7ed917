package scenario

import (
	"context"
	"math/rand"
	"time"

	"github.com/Borislavv/shared-ref/internal/soak/metrics"
	"github.com/Borislavv/shared-ref/internal/soak/table"
	"github.com/Borislavv/shared-ref/pkg/rate"
	"github.com/Borislavv/shared-ref/pkg/sharedref"
)

// CloneDrop churns a shared table: most iterations acquire a handle, clone
// it, derive an observer, upgrade it, and drop everything; a fraction
// replace or vacate slots so readers keep hitting the last-drop transition.
type CloneDrop struct {
	tbl     *table.Table[Payload]
	limiter *rate.Limiter
	keys    int
}

func NewCloneDrop(tbl *table.Table[Payload], limiter *rate.Limiter, keys int) *CloneDrop {
	return &CloneDrop{tbl: tbl, limiter: limiter, keys: keys}
}

func (s *CloneDrop) Name() string {
	return "clone-drop"
}

func (s *CloneDrop) Run(ctx context.Context) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.limiter.Chan():
			if !ok {
				return
			}
		}
		if !IsRunning() {
			time.Sleep(pauseWait)
			continue
		}

		key := uint64(rnd.Intn(s.keys))
		hash := table.HashUint64(key)

		switch rnd.Intn(8) {
		case 0:
			s.tbl.Put(hash, sharedref.New(Payload{Key: key, Seq: nextSeq()}))
			metrics.Replaces.Inc()
		case 1:
			if s.tbl.Drop(hash) {
				metrics.Drops.Inc()
			}
		case 2, 3, 4:
			// Observe without owning: the upgrade races any concurrent
			// replace/drop of the slot and is allowed to find the value gone.
			w := s.tbl.Watch(hash)
			if !w.IsDangling() {
				metrics.Downgrades.Inc()
			}
			if u, upgraded := w.Upgrade(); upgraded {
				if u.Value().Seq == 0 {
					panic("clone-drop: upgraded payload is not alive")
				}
				metrics.UpgradesOK.Inc()
				u.Drop()
			} else {
				metrics.UpgradesGone.Inc()
			}
			w.Drop()
		default:
			strong, ok := s.tbl.Acquire(hash)
			if !ok {
				s.tbl.Put(hash, sharedref.New(Payload{Key: key, Seq: nextSeq()}))
				metrics.Replaces.Inc()
				continue
			}
			metrics.Clones.Inc()

			c := strong.Clone()
			metrics.Clones.Inc()

			w := strong.Downgrade()
			metrics.Downgrades.Inc()

			if u, upgraded := w.Upgrade(); upgraded {
				if u.Value().Seq == 0 {
					panic("clone-drop: upgraded payload is not alive")
				}
				metrics.UpgradesOK.Inc()
				u.Drop()
			} else {
				metrics.UpgradesGone.Inc()
			}

			w.Drop()
			c.Drop()
			strong.Drop()
			metrics.Drops.Add(3)
		}
	}
}
