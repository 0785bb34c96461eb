package game

import "sync"

// Registry hands out game identifiers. A fresh registry starts at 1 and each
// created game consumes exactly one id.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
}

func NewRegistry() *Registry {
	return &Registry{nextID: 1}
}

// Next returns the id for a new game and advances the counter.
func (r *Registry) Next() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	return id
}

// Peek returns the id the next game will get.
func (r *Registry) Peek() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextID
}

// Resume moves the counter past lastID, used after a restart so persisted
// games are never handed out again.
func (r *Registry) Resume(lastID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lastID >= r.nextID {
		r.nextID = lastID + 1
	}
}
