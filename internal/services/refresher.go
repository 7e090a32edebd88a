package services

import (
	"sync"
	"time"

	"github.com/adi-253/msglist/internal/logger"
)

// Loader is the part of the controller the refresher drives.
type Loader interface {
	LoadAll()
	Busy() bool
}

var _ Loader = (*MessageListController)(nil)

// RefreshService reloads the message list on a fixed interval so changes made
// by other sessions show up. Ticks are skipped while a mutation is waiting for
// the store, since a reload would hide the optimistic entry.
type RefreshService struct {
	loader   Loader
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRefreshService creates a refresher. interval must be positive.
func NewRefreshService(loader Loader, interval time.Duration) *RefreshService {
	return &RefreshService{
		loader:   loader,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the refresh loop until Stop is called.
// It blocks, so call it with 'go'.
func (s *RefreshService) Start() {
	defer close(s.done)
	logger.Info("refresh service started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-s.stopChan:
			logger.Info("refresh service stopped")
			return
		}
	}
}

// Stop ends the loop and waits for it to exit. Safe to call more than once,
// but only after Start.
func (s *RefreshService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *RefreshService) refresh() {
	if s.loader.Busy() {
		logger.Debug("refresh skipped, mutations in flight")
		return
	}
	s.loader.LoadAll()
}
