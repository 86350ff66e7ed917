package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowWithinBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLimiter(ctx, 100, 10)
	defer l.Stop()

	assert.Equal(t, 100, l.Limit())
	assert.True(t, l.Allow(), "the first request must fit into the burst")
}

func TestLimiterChanDeliversTokens(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLimiter(ctx, 1_000, 100)

	select {
	case <-l.Chan():
	case <-time.After(time.Second):
		t.Fatal("no token arrived within a second")
	}

	l.Stop()

	// The provider drains and closes the channel after Stop.
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-l.Chan():
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
