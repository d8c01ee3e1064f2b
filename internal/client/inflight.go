package client

import (
	"time"

	"compliance-tracker-api/internal/cache"
)

// InFlight marks tasks with a mutation awaiting its response. Marks expire
// after ttl so a lost response cannot lock a task forever.
type InFlight struct {
	marks *cache.TTLCache[uint, struct{}]
}

func NewInFlight(ttl time.Duration) *InFlight {
	return &InFlight{marks: cache.New[uint, struct{}](ttl)}
}

// Begin marks id and reports whether it was free. Check and mark are atomic.
func (f *InFlight) Begin(id uint) bool {
	return f.marks.SetIfAbsent(id, struct{}{}, 0)
}

// Done clears the mark on id.
func (f *InFlight) Done(id uint) {
	f.marks.Delete(id)
}

// Active reports whether id is marked.
func (f *InFlight) Active(id uint) bool {
	_, ok := f.marks.Get(id)
	return ok
}
