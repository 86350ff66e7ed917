package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrGracefulTimeout = errors.New("graceful shutdown timed out")

// Gracefuller is the slice of Graceful handed to long-running components:
// they register with Add and signal completion with Done.
type Gracefuller interface {
	Add(delta int)
	Done()
}

// Graceful coordinates shutdown: it listens for context cancellation and
// termination signals, then awaits registered components up to a timeout.
type Graceful struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	timeout time.Duration
}

func NewGraceful(ctx context.Context, cancel context.CancelFunc) *Graceful {
	return &Graceful{
		ctx:     ctx,
		cancel:  cancel,
		wg:      &sync.WaitGroup{},
		timeout: time.Minute,
	}
}

func (g *Graceful) SetGracefulTimeout(timeout time.Duration) {
	g.timeout = timeout
}

func (g *Graceful) Add(delta int) {
	g.wg.Add(delta)
}

func (g *Graceful) Done() {
	g.wg.Done()
}

// ListenCancelAndAwait blocks until the context is cancelled or a
// SIGINT/SIGTERM arrives, then waits for every registered component to
// finish. Returns ErrGracefulTimeout if they do not make it in time.
func (g *Graceful) ListenCancelAndAwait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-g.ctx.Done():
	case sig := <-sigCh:
		log.Info().Msgf("[shutdown] received %v, shutting down", sig)
		g.cancel()
	}

	waitCh := make(chan struct{})
	go func() {
		defer close(waitCh)
		g.wg.Wait()
	}()

	select {
	case <-waitCh:
		return nil
	case <-time.After(g.timeout):
		return ErrGracefulTimeout
	}
}
