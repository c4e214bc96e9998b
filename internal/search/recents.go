package search

import (
	"strings"
	"sync"
)

// DefaultRecentsCapacity is the number of recent searches kept.
const DefaultRecentsCapacity = 5

// Recents is a bounded most-recent-first list of queries. Repeating a query
// (ignoring case) moves it to the front with its newest spelling.
type Recents struct {
	mu       sync.Mutex
	capacity int
	items    []string
}

func NewRecents(capacity int) *Recents {
	if capacity <= 0 {
		capacity = DefaultRecentsCapacity
	}
	return &Recents{capacity: capacity}
}

func (r *Recents) Add(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]string, 0, r.capacity)
	next = append(next, query)
	for _, existing := range r.items {
		if len(next) == r.capacity {
			break
		}
		if strings.EqualFold(existing, query) {
			continue
		}
		next = append(next, existing)
	}
	r.items = next
}

// List returns a copy, most recent first.
func (r *Recents) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Recents) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
