package realtime

import (
	"context"
	"sync"
)

const feedDepth = 20

// Feed keeps the most recent reviews per product for display next to the
// catalog. Bounded per product; older entries fall off the end.
type Feed struct {
	mu     sync.RWMutex
	recent map[string][]ReviewEvent
}

func NewFeed() *Feed {
	return &Feed{recent: make(map[string][]ReviewEvent)}
}

// Store is a Handler: it records the event and always commits.
func (f *Feed) Store(_ context.Context, ev ReviewEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := append([]ReviewEvent{ev}, f.recent[ev.ProductID]...)
	if len(list) > feedDepth {
		list = list[:feedDepth]
	}
	f.recent[ev.ProductID] = list
	return nil
}

// Recent returns the newest-first reviews for one product.
func (f *Feed) Recent(productID string) []ReviewEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()

	list := f.recent[productID]
	out := make([]ReviewEvent, len(list))
	copy(out, list)
	return out
}
