package liveness

import (
	"context"
	"sync"
	"time"
)

// Liveness is implemented by components that can report their own health.
type Liveness interface {
	IsAlive(ctx context.Context) bool
}

type Prober interface {
	Watch(service Liveness)
	IsAlive() bool
}

// Probe polls registered services on demand, bounding each poll round by
// the configured timeout.
type Probe struct {
	mu       sync.RWMutex
	services []Liveness
	timeout  time.Duration
}

func NewProbe(timeout time.Duration) *Probe {
	return &Probe{timeout: timeout}
}

// Watch registers a service for health checks. Does not block.
func (p *Probe) Watch(service Liveness) {
	p.mu.Lock()
	p.services = append(p.services, service)
	p.mu.Unlock()
}

// IsAlive reports whether every watched service is healthy.
func (p *Probe) IsAlive() bool {
	p.mu.RLock()
	services := make([]Liveness, len(p.services))
	copy(services, p.services)
	p.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	for _, service := range services {
		if !service.IsAlive(ctx) {
			return false
		}
	}
	return true
}
