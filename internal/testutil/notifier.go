package testutil

import (
	"sync"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// Recorder is a types.Notifier that keeps every notification.
type Recorder struct {
	mu    sync.Mutex
	items []types.Notification
}

func (r *Recorder) Notify(n types.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []types.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Count returns how many notifications had the given level.
func (r *Recorder) Count(level types.NotificationLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Level == level {
			n++
		}
	}
	return n
}
