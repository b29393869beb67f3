// Package memstore implements an in-memory Persister. It backs the "memory"
// backend and the tracker tests.
package memstore

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// Store keeps the last saved StateStore in memory. Unlike the sqlite
// backend it works without Attach; Attach and Detach exist so it can stand
// in for any types.Backend.
type Store struct {
	mu      sync.Mutex
	state   *types.StateStore
	saves   int
	saveErr error
}

// Attach validates config. The in-memory state is kept across attaches.
func (m *Store) Attach(config types.Config) error {
	return config.Validate()
}

// Detach is a no-op.
func (m *Store) Detach() error {
	return nil
}

// New returns an empty Store.
func New() *Store {
	return &Store{state: types.NewStateStore()}
}

// NewWithState returns a Store whose first Load yields a copy of s.
func NewWithState(s *types.StateStore) *Store {
	return &Store{state: s.Clone()}
}

// Load returns a copy of the last saved state.
func (m *Store) Load(ctx context.Context) (*types.StateStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

// Save replaces the stored state with a copy of s.
func (m *Store) Save(ctx context.Context, s *types.StateStore) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = s.Clone()
	m.saves++
	return nil
}

// Saves returns the number of successful saves.
func (m *Store) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailSaves makes every following Save return err. A nil err clears it.
func (m *Store) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}
