// Package idgen hands out message ids derived from the wall clock.
//
// Ids are Unix milliseconds, bumped by one whenever the clock has not moved
// past the last id handed out, so they are strictly increasing within a
// session even under rapid input or a clock stepping backwards.
package idgen

import (
	"sync"
	"time"
)

// Generator produces strictly increasing millisecond ids.
type Generator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// New returns a Generator reading the system clock.
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock returns a Generator reading the given clock.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// NextID returns an id greater than every id returned or observed before.
func (g *Generator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe makes sure later ids are greater than id.
// Used after loading ids assigned by other sessions.
func (g *Generator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}
