// Package memory implements store.Store in process memory. It enforces the
// same identifier uniqueness rule as the SQL backends and is used for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/varhub/internal/model"
	"github.com/alfredjeanlab/varhub/internal/store"
)

// Store is an in-memory store.Store. The zero value is not usable; call New.
type Store struct {
	mu           sync.RWMutex
	byID         map[string]*model.Variable
	byIdentifier map[string]string // identifier -> id
	now          func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:         make(map[string]*model.Variable),
		byIdentifier: make(map[string]string),
		now:          time.Now,
	}
}

// SetClock overrides the clock used to stamp new variables.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) ListVariables(_ context.Context) ([]*model.Variable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Variable, 0, len(s.byID))
	for _, v := range s.byID {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out, nil
}

func (s *Store) GetVariable(_ context.Context, id string) (*model.Variable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.Clone(), nil
}

func (s *Store) GetVariableByIdentifier(_ context.Context, identifier string) (*model.Variable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byIdentifier[identifier]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) CreateVariable(_ context.Context, v *model.Variable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byIdentifier[v.Identifier]; dup {
		return fmt.Errorf("insert variable %q: %w", v.Identifier, store.ErrDuplicateIdentifier)
	}
	if _, dup := s.byID[v.ID]; dup {
		return fmt.Errorf("insert variable: id %s already exists", v.ID)
	}
	store.Stamp(v, s.now())
	s.byID[v.ID] = v.Clone()
	s.byIdentifier[v.Identifier] = v.ID
	return nil
}

// UpdateVariable replaces value and updated_at of an existing variable.
// Updating an absent id is a no-op, as with an UPDATE matching no rows.
func (s *Store) UpdateVariable(_ context.Context, v *model.Variable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[v.ID]
	if !ok {
		return nil
	}
	cur.Value = v.Value
	cur.UpdatedAt = v.UpdatedAt
	return nil
}

func (s *Store) DeleteVariable(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.byID[id]; ok {
		delete(s.byIdentifier, v.Identifier)
		delete(s.byID, id)
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
