package rate

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles scenario churn. A provider goroutine feeds a channel at
// the configured rate so workers can select on it together with their
// context.
type Limiter struct {
	cancel context.CancelFunc
	ch     chan struct{}
	l      *rate.Limiter
	limit  int
}

func NewLimiter(gCtx context.Context, limit, burst int) *Limiter {
	ctx, cancel := context.WithCancel(gCtx)
	limiter := &Limiter{
		cancel: cancel,
		limit:  limit,
		ch:     make(chan struct{}),
		l:      rate.NewLimiter(rate.Limit(limit), burst),
	}
	go limiter.provider(ctx)
	return limiter
}

func (l *Limiter) provider(ctx context.Context) {
	defer close(l.ch)
	for {
		if err := l.l.Wait(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case l.ch <- struct{}{}:
		}
	}
}

// Chan yields one token per permitted operation. Closed on Stop.
func (l *Limiter) Chan() <-chan struct{} {
	return l.ch
}

func (l *Limiter) Allow() bool {
	return l.l.Allow()
}

func (l *Limiter) Limit() int {
	return l.limit
}

func (l *Limiter) Stop() {
	l.cancel()
}
