package tree

import (
	"slices"

	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// Options tune mutation behaviour.
type Options struct {
	// CompactSubtreeRemoval renumbers positions to 0..n-1 after a subtree
	// removal. When false, the gaps left by the removed nodes stay.
	CompactSubtreeRemoval bool
}

// DefaultOptions returns the options the tracker uses unless configured
// otherwise.
func DefaultOptions() Options {
	return Options{CompactSubtreeRemoval: true}
}

// Insert adds the tab described by tab to w. The new node starts collapsed
// at the tab's on-screen index; its opener, when present in w, becomes its
// parent and is expanded. Every other node at or after the index moves one
// position right.
//
// An opener missing from w yields a root node. Inserting an id that is
// already present updates its presentation fields instead. Insert reports
// whether w changed.
func Insert(w *types.WindowTree, tab types.TabCreated) bool {
	if existing, ok := w.Tabs[tab.ID]; ok {
		changed := types.Merge(existing, types.Patch{
			URL:        types.Some(tab.ResolvedURL()),
			Title:      types.Some(tab.Title),
			FaviconURL: types.Some(tab.FaviconURL),
			Active:     types.Some(tab.Active),
		}, types.UpdatePolicy)
		return len(changed) > 0
	}

	position := min(max(tab.Index, 0), len(w.Tabs))
	n := &types.TabNode{
		ID:          tab.ID,
		URL:         tab.ResolvedURL(),
		Title:       tab.Title,
		FaviconURL:  tab.FaviconURL,
		ParentTabID: types.NoTab,
		ChildTabIDs: []types.TabID{},
		Position:    position,
		IsCollapsed: true,
		Active:      tab.Active,
	}

	if tab.OpenerTabID.Set && tab.OpenerTabID.Value != tab.ID {
		if parent, ok := w.Tabs[tab.OpenerTabID.Value]; ok {
			n.ParentTabID = parent.ID
			parent.ChildTabIDs = append(parent.ChildTabIDs, n.ID)
			parent.IsCollapsed = false
		}
	}

	for _, other := range w.Tabs {
		if other.Position >= position {
			other.Position++
		}
	}
	w.Tabs[n.ID] = n
	return true
}

// Attach makes parentID the parent of childID when childID is a root. It
// refuses links that are missing, already set, or would form a cycle, and
// reports whether the link was made. The parent is expanded like on Insert.
func Attach(w *types.WindowTree, childID, parentID types.TabID) bool {
	child, ok := w.Tabs[childID]
	if !ok || child.HasParent() {
		return false
	}
	parent, ok := w.Tabs[parentID]
	if !ok {
		return false
	}
	for n := parent; ; n = w.Tabs[n.ParentTabID] {
		if n.ID == childID {
			return false
		}
		if !n.HasParent() {
			break
		}
	}
	child.ParentTabID = parentID
	parent.ChildTabIDs = append(parent.ChildTabIDs, childID)
	parent.IsCollapsed = false
	return true
}

// Remove deletes the node id from w. Without children, the node's children
// are spliced into its parent's child list where the node was, inherit its
// parent (or become roots), and every node after it moves one position left.
// With children, the whole subtree is removed depth-first.
//
// Remove reports whether a node was removed; a missing id is a no-op.
func Remove(w *types.WindowTree, id types.TabID, withChildren bool, opts Options) bool {
	n, ok := w.Tabs[id]
	if !ok {
		return false
	}
	if withChildren {
		removeSubtree(w, n)
		if opts.CompactSubtreeRemoval {
			Normalize(w)
		}
		return true
	}
	removeNode(w, n)
	return true
}

func removeNode(w *types.WindowTree, n *types.TabNode) {
	delete(w.Tabs, n.ID)

	var orphans []types.TabID
	for _, childID := range n.ChildTabIDs {
		if child, ok := w.Tabs[childID]; ok {
			child.ParentTabID = n.ParentTabID
			orphans = append(orphans, childID)
		}
	}

	if parent, ok := w.Tabs[n.ParentTabID]; ok && n.HasParent() {
		if i := slices.Index(parent.ChildTabIDs, n.ID); i >= 0 {
			parent.ChildTabIDs = slices.Replace(parent.ChildTabIDs, i, i+1, orphans...)
		} else {
			parent.ChildTabIDs = append(parent.ChildTabIDs, orphans...)
		}
	}

	for _, other := range w.Tabs {
		if other.Position > n.Position {
			other.Position--
		}
	}
}

func removeSubtree(w *types.WindowTree, root *types.TabNode) {
	if parent, ok := w.Tabs[root.ParentTabID]; ok && root.HasParent() {
		if i := slices.Index(parent.ChildTabIDs, root.ID); i >= 0 {
			parent.ChildTabIDs = slices.Delete(parent.ChildTabIDs, i, i+1)
		}
	}

	stack := []types.TabID{root.ID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := w.Tabs[id]
		if !ok {
			continue
		}
		delete(w.Tabs, id)
		for i := len(n.ChildTabIDs) - 1; i >= 0; i-- {
			stack = append(stack, n.ChildTabIDs[i])
		}
	}
}

// Update applies the present, differing fields of change to node id and
// returns the fields that changed. Nil means nothing changed, including when
// id is not in w.
func Update(w *types.WindowTree, id types.TabID, change types.ChangeInfo) []types.Field {
	n, ok := w.Tabs[id]
	if !ok {
		return nil
	}
	return types.Merge(n, change.Patch(), types.UpdatePolicy)
}

// Normalize renumbers positions to 0..n-1, keeping the current order.
// It reports whether any position changed.
func Normalize(w *types.WindowTree) bool {
	changed := false
	for i, n := range w.Ordered() {
		if n.Position != i {
			n.Position = i
			changed = true
		}
	}
	return changed
}

// Repair brings a tree that fails Validate back to a valid state: nodes are
// re-keyed under their own ids, links are made to agree and positions are
// renumbered. It reports whether the tree needed repair.
func Repair(w *types.WindowTree) bool {
	if w.Validate() == nil {
		return false
	}
	w.RepairKeys()
	w.RepairLinks()
	Normalize(w)
	return true
}
