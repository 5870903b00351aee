package meta

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

// MemoryStore держит метаданные в памяти (режим без БД и тесты).
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	types    map[string]EntityType
	ids      *ids
}

func NewMemoryStore(types []EntityType) *MemoryStore {
	s := &MemoryStore{
		entities: make(map[string]*Entity),
		types:    make(map[string]EntityType),
		ids:      newIDs(),
	}
	for _, t := range types {
		if t.ID == "" {
			t.ID = s.ids.next(time.Now())
		}
		s.types[t.Name] = t
	}
	return s
}

func (s *MemoryStore) GetByName(_ context.Context, name string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[name]
	if !ok {
		return nil, apperr.New(apperr.EntityNotFound, "Entity %s not found", name)
	}
	return e.clone(), nil
}

func (s *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[name]
	return ok, nil
}

func (s *MemoryStore) Create(_ context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[e.Name]; ok {
		return apperr.New(apperr.EntityAlreadyExists, "Entity already exists")
	}
	stamp(s.ids, e)
	s.entities[e.Name] = e.clone()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entities[e.Name]
	if !ok || cur.ID != e.ID {
		return apperr.New(apperr.EntityNotFound, "Entity %s not found", e.Name)
	}
	s.entities[e.Name] = e.clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[e.Name]; !ok {
		return apperr.New(apperr.EntityNotFound, "Entity %s not found", e.Name)
	}
	delete(s.entities, e.Name)
	return nil
}

func (s *MemoryStore) EntityType(_ context.Context, name string) (*EntityType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	if !ok {
		return nil, apperr.New(apperr.EntityTypeNotFound, "Entity type does not exist")
	}
	return &t, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
