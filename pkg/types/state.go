package types

import (
	"context"
	"maps"
	"slices"
)

// StateStore maps window ids to their trees. It is the unit of persistence:
// every save writes the whole store.
type StateStore struct {
	Windows map[WindowID]*WindowTree `json:"windows"`
}

// NewStateStore returns an empty store.
func NewStateStore() *StateStore {
	return &StateStore{Windows: make(map[WindowID]*WindowTree)}
}

// Window returns the tree for windowID.
func (s *StateStore) Window(windowID WindowID) (*WindowTree, bool) {
	w, ok := s.Windows[windowID]
	return w, ok
}

// Ensure returns the tree for windowID, creating an empty one on first use.
func (s *StateStore) Ensure(windowID WindowID) *WindowTree {
	if w, ok := s.Windows[windowID]; ok {
		return w
	}
	w := NewWindowTree(windowID)
	s.Windows[windowID] = w
	return w
}

// WindowIDs returns all window ids in ascending order.
func (s *StateStore) WindowIDs() []WindowID {
	return slices.Sorted(maps.Keys(s.Windows))
}

// TabCount returns the number of tabs across all windows.
func (s *StateStore) TabCount() int {
	total := 0
	for _, w := range s.Windows {
		total += w.Len()
	}
	return total
}

// Clone returns a deep copy of the store.
func (s *StateStore) Clone() *StateStore {
	cp := &StateStore{Windows: make(map[WindowID]*WindowTree, len(s.Windows))}
	for id, w := range s.Windows {
		cp.Windows[id] = w.Clone()
	}
	return cp
}

// Persister loads and saves the whole StateStore. Implementations must not
// retain the store passed to Save; callers may keep mutating it.
type Persister interface {
	// Load returns the last saved state, or an empty store if nothing has
	// been saved yet.
	Load(ctx context.Context) (*StateStore, error)

	// Save replaces the persisted state with s.
	Save(ctx context.Context, s *StateStore) error
}

// Backend is a Persister with an attach/detach lifecycle. Attach prepares
// the backend for the given configuration; Detach flushes and releases it.
// Load and Save on a detached backend return ErrStoreDetached.
type Backend interface {
	Persister
	Attach(config Config) error
	Detach() error
}
