package types

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// WindowTree is the hierarchical tab model for one window. Tabs is an arena
// keyed by TabID; parent and child links are ids into the same arena.
type WindowTree struct {
	WindowID WindowID           `json:"window_id"`
	Closed   bool               `json:"closed"` // retained after close, candidate for restoration
	Tabs     map[TabID]*TabNode `json:"tabs"`
}

// NewWindowTree returns an empty tree for the given window.
func NewWindowTree(windowID WindowID) *WindowTree {
	return &WindowTree{
		WindowID: windowID,
		Tabs:     make(map[TabID]*TabNode),
	}
}

// Get returns the node with the given id.
func (w *WindowTree) Get(id TabID) (*TabNode, bool) {
	n, ok := w.Tabs[id]
	return n, ok
}

// Len returns the number of tabs in the tree.
func (w *WindowTree) Len() int {
	return len(w.Tabs)
}

// IDs returns all tab ids in ascending order.
func (w *WindowTree) IDs() []TabID {
	return slices.Sorted(maps.Keys(w.Tabs))
}

// Ordered returns the nodes sorted by position. Ties break on id so the
// order is deterministic even when positions are sparse or duplicated.
func (w *WindowTree) Ordered() []*TabNode {
	nodes := slices.Collect(maps.Values(w.Tabs))
	slices.SortFunc(nodes, func(a, b *TabNode) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
	return nodes
}

// URLs returns the URL of every node, in ascending id order.
func (w *WindowTree) URLs() []string {
	urls := make([]string, 0, len(w.Tabs))
	for _, id := range w.IDs() {
		urls = append(urls, w.Tabs[id].URL)
	}
	return urls
}

// Clone returns a deep copy of the tree.
func (w *WindowTree) Clone() *WindowTree {
	cp := &WindowTree{
		WindowID: w.WindowID,
		Closed:   w.Closed,
		Tabs:     make(map[TabID]*TabNode, len(w.Tabs)),
	}
	for id, n := range w.Tabs {
		cp.Tabs[id] = n.Clone()
	}
	return cp
}

// IsVisible reports whether the node would be drawn: no ancestor on its
// path to a root is collapsed. Missing ids are not visible.
func (w *WindowTree) IsVisible(id TabID) bool {
	n, ok := w.Tabs[id]
	if !ok {
		return false
	}
	seen := map[TabID]bool{id: true}
	for n.HasParent() {
		parent, ok := w.Tabs[n.ParentTabID]
		if !ok || seen[parent.ID] {
			return true
		}
		if parent.IsCollapsed {
			return false
		}
		seen[parent.ID] = true
		n = parent
	}
	return true
}

// Validate checks referential integrity, bidirectionality, acyclicity and
// position uniqueness. It returns the first violation found, wrapping one of
// the ErrTree* sentinels.
func (w *WindowTree) Validate() error {
	positions := make(map[int]TabID, len(w.Tabs))
	for _, id := range w.IDs() {
		n := w.Tabs[id]
		if n.ID != id {
			return fmt.Errorf("%w: tab %d stored under key %d", ErrTreeKeyMismatch, n.ID, id)
		}
		if other, dup := positions[n.Position]; dup {
			return fmt.Errorf("%w: tabs %d and %d share position %d", ErrTreePosition, other, id, n.Position)
		}
		positions[n.Position] = id

		if n.HasParent() {
			parent, ok := w.Tabs[n.ParentTabID]
			if !ok {
				return fmt.Errorf("%w: tab %d names missing parent %d", ErrTreeDanglingParent, id, n.ParentTabID)
			}
			if parent.indexOfChild(id) < 0 {
				return fmt.Errorf("%w: parent %d does not list child %d", ErrTreeUnlinked, parent.ID, id)
			}
		}

		seen := make(map[TabID]bool, len(n.ChildTabIDs))
		for _, childID := range n.ChildTabIDs {
			if seen[childID] {
				return fmt.Errorf("%w: tab %d lists child %d twice", ErrTreeUnlinked, id, childID)
			}
			seen[childID] = true
			child, ok := w.Tabs[childID]
			if !ok {
				return fmt.Errorf("%w: tab %d lists missing child %d", ErrTreeDanglingChild, id, childID)
			}
			if child.ParentTabID != id {
				return fmt.Errorf("%w: child %d of %d points at %d", ErrTreeUnlinked, childID, id, child.ParentTabID)
			}
		}
	}

	for _, id := range w.IDs() {
		steps := 0
		for n := w.Tabs[id]; n.HasParent(); n = w.Tabs[n.ParentTabID] {
			steps++
			if steps > len(w.Tabs) {
				return fmt.Errorf("%w: tab %d", ErrTreeCycle, id)
			}
		}
	}
	return nil
}

// RepairLinks makes parent and child links agree. Parents that do not exist
// are cleared, children that do not point back are dropped, and nodes missing
// from their parent's child list are appended to it. Nodes are visited in
// position order so appended children keep tab-bar order.
func (w *WindowTree) RepairLinks() {
	for _, n := range w.Ordered() {
		if n.HasParent() {
			if _, ok := w.Tabs[n.ParentTabID]; !ok || n.ParentTabID == n.ID {
				n.ParentTabID = NoTab
			}
		}
	}
	for _, n := range w.Ordered() {
		kept := n.ChildTabIDs[:0]
		seen := make(map[TabID]bool, len(n.ChildTabIDs))
		for _, childID := range n.ChildTabIDs {
			child, ok := w.Tabs[childID]
			if !ok || seen[childID] || child.ParentTabID != n.ID {
				continue
			}
			seen[childID] = true
			kept = append(kept, childID)
		}
		n.ChildTabIDs = kept
	}
	for _, n := range w.Ordered() {
		if !n.HasParent() {
			continue
		}
		parent := w.Tabs[n.ParentTabID]
		if parent.indexOfChild(n.ID) < 0 {
			parent.ChildTabIDs = append(parent.ChildTabIDs, n.ID)
		}
	}
	w.breakCycles()
}

// breakCycles detaches the first node found on any parent cycle, turning it
// into a root.
func (w *WindowTree) breakCycles() {
	for _, id := range w.IDs() {
		onPath := map[TabID]bool{}
		for n := w.Tabs[id]; n.HasParent(); n = w.Tabs[n.ParentTabID] {
			if onPath[n.ID] {
				parent := w.Tabs[n.ParentTabID]
				if i := parent.indexOfChild(n.ID); i >= 0 {
					parent.ChildTabIDs = slices.Delete(parent.ChildTabIDs, i, i+1)
				}
				n.ParentTabID = NoTab
				break
			}
			onPath[n.ID] = true
		}
	}
}

// RepairKeys files every node under its own ID. When two nodes claim the
// same ID, the one already keyed correctly wins, then the one with the lower
// key; the others are dropped. It reports whether anything changed.
func (w *WindowTree) RepairKeys() bool {
	var misfiled []*TabNode
	for _, key := range w.IDs() {
		if n := w.Tabs[key]; n.ID != key {
			misfiled = append(misfiled, n)
			delete(w.Tabs, key)
		}
	}
	for _, n := range misfiled {
		if _, taken := w.Tabs[n.ID]; !taken {
			w.Tabs[n.ID] = n
		}
	}
	return len(misfiled) > 0
}

// HasLinks reports whether any tab has a parent.
func (w *WindowTree) HasLinks() bool {
	for _, n := range w.Tabs {
		if n.HasParent() {
			return true
		}
	}
	return false
}
