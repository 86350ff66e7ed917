package modelcheck

import (
	"testing"

	"github.com/Borislavv/shared-ref/pkg/sharedref"
	"github.com/stretchr/testify/assert"
)

func TestLeakCheckDetectsUndroppedHandle(t *testing.T) {
	check := newLeakCheck()

	s := sharedref.New(1)
	assert.Error(t, check.verify(), "a live handle must fail the leak check")

	s.Drop()
	assert.NoError(t, check.verify())
}

func TestLeakCheckDetectsOutstandingWeak(t *testing.T) {
	check := newLeakCheck()

	s := sharedref.New(1)
	w := s.Downgrade()
	s.Drop()

	// Payload is gone but the block is still held by the observer.
	assert.Error(t, check.verify())

	w.Drop()
	assert.NoError(t, check.verify())
}

func TestMonitorObservesDestruction(t *testing.T) {
	monitor, s := NewMonitored("payload")
	assert.False(t, monitor.Destroyed())

	c := s.Clone()
	s.Drop()
	assert.False(t, monitor.Destroyed())

	c.Drop()
	assert.True(t, monitor.Destroyed())
	assert.Equal(t, int64(1), monitor.Destroys())
}

func TestRunRounds(t *testing.T) {
	rounds := 0
	RunRounds(t, 10, func() {
		rounds++
		s := sharedref.New(rounds)
		s.Drop()
	})
	assert.Equal(t, 10, rounds)
}
