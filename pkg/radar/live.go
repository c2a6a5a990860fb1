package radar

import (
	"sync/atomic"

	"github.com/elonfeng/ytradar/pkg/snapshot"
)

// Live holds the current Radar. Readers keep the instance they loaded while
// a reload swaps in a new one.
type Live struct {
	current atomic.Pointer[Radar]
}

// NewLive creates a holder serving r.
func NewLive(r *Radar) *Live {
	l := &Live{}
	l.current.Store(r)
	return l
}

// Load returns the current Radar.
func (l *Live) Load() *Radar {
	return l.current.Load()
}

// Swap replaces the current Radar with one over table, keeping parameters.
func (l *Live) Swap(table *snapshot.Table) *Radar {
	next := New(table, l.Load().Params())
	l.current.Store(next)
	return next
}
