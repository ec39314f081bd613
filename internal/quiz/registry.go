package quiz

import (
	"context"
	"log"
	"sync"
	"time"
)

// Registry tracks live attempts by ID so the HTTP layer can address them and
// a single countdown loop can drive every timed attempt.
type Registry struct {
	mu       sync.RWMutex
	attempts map[string]*Attempt
}

func NewRegistry() *Registry {
	return &Registry{attempts: map[string]*Attempt{}}
}

func (r *Registry) Add(a *Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[a.ID()] = a
}

func (r *Registry) Get(id string) (*Attempt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[id]
	return a, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, id)
}

func (r *Registry) snapshot() []*Attempt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Attempt, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, a)
	}
	return out
}

// scoredRetention is how long a scored attempt stays addressable (for views
// and restarts) before the countdown loop drops it from the registry.
const scoredRetention = time.Hour

// RunCountdown ticks every live attempt once per second until ctx is
// cancelled. Scored and untimed attempts ignore ticks, so nothing here races
// a manual submit. Attempts scored longer than scoredRetention ago are
// evicted so the registry doesn't grow without bound.
func (r *Registry) RunCountdown(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, a := range r.snapshot() {
				expired, err := a.Tick(ctx)
				if expired && err != nil {
					log.Printf("auto-submit attempt %s: %v", a.ID(), err)
				}
			}
			r.evictScored(time.Now())
		}
	}
}

func (r *Registry) evictScored(now time.Time) {
	for _, a := range r.snapshot() {
		if at, ok := a.ScoredAt(); ok && now.Sub(at) >= scoredRetention {
			r.Remove(a.ID())
		}
	}
}
