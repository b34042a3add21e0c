// Package relay is the production widget adapter. The browser shim reports
// object clicks to the API, the relay keeps each container's selection in a
// Store and publishes a change notification that rendered handles subscribe to.
package relay

import (
	"context"
	"sort"
	"sync"
)

// Store keeps one selection set per container and fans out change
// notifications for it.
type Store interface {
	Add(ctx context.Context, container, label string) (bool, error)
	Remove(ctx context.Context, container, label string) (bool, error)
	Members(ctx context.Context, container string) ([]string, error)
	Count(ctx context.Context, container string) (int, error)
	Clear(ctx context.Context, container string) error
	Publish(ctx context.Context, container string) error
	// Subscribe calls fn for every Publish on container until the returned
	// function is called.
	Subscribe(ctx context.Context, container string, fn func()) (func() error, error)
}

// MemoryStore is a single-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	sets   map[string]map[string]struct{}
	subs   map[string]map[int]func()
	nextID int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: map[string]map[string]struct{}{}, subs: map[string]map[int]func(){}}
}

func (s *MemoryStore) Add(_ context.Context, container, label string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[container]
	if !ok {
		set = map[string]struct{}{}
		s.sets[container] = set
	}
	if _, ok := set[label]; ok {
		return false, nil
	}
	set[label] = struct{}{}
	return true, nil
}

func (s *MemoryStore) Remove(_ context.Context, container, label string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[container]
	if _, ok := set[label]; !ok {
		return false, nil
	}
	delete(set, label)
	return true, nil
}

func (s *MemoryStore) Members(_ context.Context, container string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sets[container]))
	for l := range s.sets[container] {
		out = append(out, l)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context, container string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets[container]), nil
}

func (s *MemoryStore) Clear(_ context.Context, container string) error {
	s.mu.Lock()
	delete(s.sets, container)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Publish(_ context.Context, container string) error {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs[container]))
	for _, fn := range s.subs[container] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, container string, fn func()) (func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	if s.subs[container] == nil {
		s.subs[container] = map[int]func(){}
	}
	s.subs[container][id] = fn
	return func() error {
		s.mu.Lock()
		delete(s.subs[container], id)
		s.mu.Unlock()
		return nil
	}, nil
}
