package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingLoader struct {
	loads atomic.Int32
	busy  atomic.Bool
}

func (l *countingLoader) LoadAll()   { l.loads.Add(1) }
func (l *countingLoader) Busy() bool { return l.busy.Load() }

func TestRefreshServiceLoadsOnInterval(t *testing.T) {
	l := &countingLoader{}
	s := NewRefreshService(l, 5*time.Millisecond)
	go s.Start()

	assert.Eventually(t, func() bool { return l.loads.Load() >= 3 }, time.Second, time.Millisecond)

	s.Stop()
	n := l.loads.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, l.loads.Load(), "no loads after Stop")

	// Stop twice is fine
	s.Stop()
}

func TestRefreshServiceSkipsWhileBusy(t *testing.T) {
	l := &countingLoader{}
	l.busy.Store(true)
	s := NewRefreshService(l, 5*time.Millisecond)
	go s.Start()
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, l.loads.Load())

	l.busy.Store(false)
	assert.Eventually(t, func() bool { return l.loads.Load() > 0 }, time.Second, time.Millisecond)
}
