package event

import (
	"context"
	"sync"

	"library-backend/internal/domains/borrowing/model"
)

// Recorder keeps emitted events in memory. Tests use it to assert what was sent.
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
	Err    error // returned from every Emit when set
}

func (r *Recorder) Emit(_ context.Context, event model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	return r.Err
}

func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind were emitted
func (r *Recorder) Count(kind model.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
