package scenario

import (
	"context"
	"sync"
	"time"

	"github.com/Borislavv/shared-ref/internal/soak/metrics"
	"github.com/Borislavv/shared-ref/pkg/rate"
	"github.com/Borislavv/shared-ref/pkg/sharedref"
)

// UpgradeRace reproduces the sharpest transition of the protocol on every
// iteration: two observers upgrade while a third goroutine drops the sole
// owning handle. Each iteration must end with the payload destroyed exactly
// once, whichever side of the race the upgrades landed on.
type UpgradeRace struct {
	limiter *rate.Limiter
}

func NewUpgradeRace(limiter *rate.Limiter) *UpgradeRace {
	return &UpgradeRace{limiter: limiter}
}

func (s *UpgradeRace) Name() string {
	return "upgrade-race"
}

func (s *UpgradeRace) Run(ctx context.Context) {
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
		s.iteration()
	}
}

func (s *UpgradeRace) iteration() {
	strong := sharedref.New(Payload{Seq: nextSeq()})
	w1 := strong.Downgrade()
	w2 := strong.Downgrade()
	metrics.Downgrades.Add(2)

	wg := &sync.WaitGroup{}
	for _, w := range []*sharedref.Weak[Payload]{&w1, &w2} {
		wg.Add(1)
		go func(w *sharedref.Weak[Payload]) {
			defer wg.Done()
			if u, ok := w.Upgrade(); ok {
				if u.Value().Seq == 0 {
					panic("upgrade-race: upgraded payload is not alive")
				}
				metrics.UpgradesOK.Inc()
				u.Drop()
				metrics.Drops.Inc()
			} else {
				metrics.UpgradesGone.Inc()
			}
			w.Drop()
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		strong.Drop()
		metrics.Drops.Inc()
	}()

	wg.Wait()
}
