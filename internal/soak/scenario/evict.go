package scenario

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Borislavv/shared-ref/internal/soak/metrics"
	"github.com/Borislavv/shared-ref/pkg/rate"
	"github.com/Borislavv/shared-ref/pkg/sharedref"
	"github.com/dgraph-io/ristretto"
)

// Evict is the canonical consumer shape for the handle pair: a bounded
// cache owns the Strong handles and drops them on eviction, while readers
// hold only Weak observers and upgrade on access. Whatever the admission
// policy decides, a reader either gets a payload guaranteed alive for the
// length of its upgraded handle, or a clean "gone".
type Evict struct {
	cache   *ristretto.Cache
	limiter *rate.Limiter

	mu      sync.Mutex
	watched []sharedref.Weak[Payload]
	next    int

	closeOnce sync.Once
}

func NewEvict(cacheSize int, limiter *rate.Limiter) (*Evict, error) {
	s := &Evict{
		limiter: limiter,
		watched: make([]sharedref.Weak[Payload], cacheSize/4+1),
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cacheSize) * 10,
		MaxCost:     int64(cacheSize),
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item) {
			metrics.Evictions.Inc()
		},
		// OnExit sees every removal: eviction, rejection, replacement.
		// It is the single place ownership of a cached handle ends.
		OnExit: func(val interface{}) {
			if strong, ok := val.(*sharedref.Strong[Payload]); ok {
				strong.Drop()
				metrics.Drops.Inc()
			}
		},
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

func (s *Evict) Name() string {
	return "evict"
}

func (s *Evict) Run(ctx context.Context) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		select {
		case <-ctx.Done():
			s.close()
			return
		case _, ok := <-s.limiter.Chan():
			if !ok {
				s.close()
				return
			}
		}
		if !IsRunning() {
			time.Sleep(pauseWait)
			continue
		}
		s.iteration(rnd)
	}
}

func (s *Evict) iteration(rnd *rand.Rand) {
	key := nextSeq()
	strong := sharedref.New(Payload{Key: key, Seq: key})
	w := strong.Downgrade()
	metrics.Downgrades.Inc()

	// The cache takes ownership of the Strong handle. Admission rejections
	// reach OnExit, but a Set dropped on a full buffer does not, so that
	// one case is released here.
	if !s.cache.Set(key, &strong, 1) {
		strong.Drop()
		metrics.Drops.Inc()
	}
	s.remember(w)

	// Read side: upgrade a random remembered observer. The owning handle
	// may have been evicted at any point in between.
	target := s.watchedAt(rnd)
	if !target.IsDangling() {
		if u, ok := target.Upgrade(); ok {
			if u.Value().Seq == 0 {
				panic("evict: upgraded payload is not alive")
			}
			metrics.UpgradesOK.Inc()
			u.Drop()
			metrics.Drops.Inc()
		} else {
			metrics.UpgradesGone.Inc()
		}
	}
	target.Drop()
}

// remember keeps the observer in a fixed-size ring, dropping whichever one
// it displaces.
func (s *Evict) remember(w sharedref.Weak[Payload]) {
	s.mu.Lock()
	old := s.watched[s.next]
	s.watched[s.next] = w
	s.next = (s.next + 1) % len(s.watched)
	s.mu.Unlock()
	old.Drop()
}

func (s *Evict) watchedAt(rnd *rand.Rand) sharedref.Weak[Payload] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watched[rnd.Intn(len(s.watched))].Clone()
}

func (s *Evict) close() {
	s.closeOnce.Do(func() {
		s.cache.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.watched {
			s.watched[i].Drop()
		}
	})
}
