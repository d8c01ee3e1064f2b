package client

import (
	"sync"

	"compliance-tracker-api/internal/dto"
)

// Store is the local task collection. Subscribers get a fresh snapshot after
// every change.
type Store struct {
	mu    sync.RWMutex
	order []uint
	tasks map[uint]dto.TaskResponse
	subs  map[int]func([]dto.TaskResponse)
	next  int
}

func NewStore() *Store {
	return &Store{
		tasks: make(map[uint]dto.TaskResponse),
		subs:  make(map[int]func([]dto.TaskResponse)),
	}
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store) Subscribe(fn func([]dto.TaskResponse)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// ReplaceAll swaps the whole collection, keeping the given order.
func (s *Store) ReplaceAll(tasks []dto.TaskResponse) {
	s.mu.Lock()
	s.order = make([]uint, 0, len(tasks))
	s.tasks = make(map[uint]dto.TaskResponse, len(tasks))
	for _, t := range tasks {
		if _, dup := s.tasks[t.ID]; !dup {
			s.order = append(s.order, t.ID)
		}
		s.tasks[t.ID] = t
	}
	s.mu.Unlock()
	s.notify()
}

// Upsert replaces the task with the same id or appends it.
func (s *Store) Upsert(task dto.TaskResponse) {
	s.mu.Lock()
	if _, ok := s.tasks[task.ID]; !ok {
		s.order = append(s.order, task.ID)
	}
	s.tasks[task.ID] = task
	s.mu.Unlock()
	s.notify()
}

// Remove drops the task with id. Removing an unknown id is a no-op.
func (s *Store) Remove(id uint) {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Get(id uint) (dto.TaskResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// All returns a snapshot in collection order.
func (s *Store) All() []dto.TaskResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) snapshot() []dto.TaskResponse {
	out := make([]dto.TaskResponse, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	return out
}

// notify runs subscribers outside the lock so they may read the store.
func (s *Store) notify() {
	s.mu.RLock()
	snap := s.snapshot()
	fns := make([]func([]dto.TaskResponse), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}
