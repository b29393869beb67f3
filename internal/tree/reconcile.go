package tree

import "github.com/mesh-intelligence/tabtree/pkg/types"

// FindMatch returns the id of the first retained (closed) window, in
// ascending id order, whose URL multiset equals that of newWindowID. An
// empty or unknown new window never matches.
func FindMatch(store *types.StateStore, newWindowID types.WindowID) (types.WindowID, bool) {
	fresh, ok := store.Window(newWindowID)
	if !ok || fresh.Len() == 0 {
		return 0, false
	}
	restored := fresh.URLs()
	for _, id := range store.WindowIDs() {
		if id == newWindowID {
			continue
		}
		candidate := store.Windows[id]
		if !candidate.Closed {
			continue
		}
		if sameURLs(candidate.URLs(), restored) {
			return id, true
		}
	}
	return 0, false
}

// Match restores hierarchy onto the window newWindowID from the retained
// window with the same URL multiset. On a match the structure is
// transplanted, the old entry is deleted, and the old window id is returned.
// No match leaves the store untouched.
func Match(store *types.StateStore, newWindowID types.WindowID) (types.WindowID, bool) {
	oldID, ok := FindMatch(store, newWindowID)
	if !ok {
		return 0, false
	}
	Transplant(store.Windows[oldID], store.Windows[newWindowID])
	delete(store.Windows, oldID)
	return oldID, true
}

// Transplant copies parent, children, position and collapse state from old
// onto fresh, pairing nodes by URL. Each URL keeps a stack of old ids in
// ascending id order and pairs are popped from the top, so among duplicate
// URLs the most recently created old tab is matched first. New nodes are
// visited in ascending id order.
//
// Links to old tabs without a new counterpart are dropped. The result
// satisfies every tree invariant, with positions renumbered to 0..n-1.
// Transplant returns the old-to-new id mapping.
func Transplant(old, fresh *types.WindowTree) map[types.TabID]types.TabID {
	stacks := make(map[string][]types.TabID)
	for _, id := range old.IDs() {
		url := old.Tabs[id].URL
		stacks[url] = append(stacks[url], id)
	}

	oldToNew := make(map[types.TabID]types.TabID, fresh.Len())
	var matched []types.TabID
	for _, id := range fresh.IDs() {
		n := fresh.Tabs[id]
		ids := stacks[n.URL]
		if len(ids) == 0 {
			continue
		}
		oldID := ids[len(ids)-1]
		stacks[n.URL] = ids[:len(ids)-1]

		oldToNew[oldID] = id
		types.Merge(n, types.PatchFrom(old.Tabs[oldID]), types.RestorePolicy)
		matched = append(matched, id)
	}

	for _, id := range matched {
		n := fresh.Tabs[id]
		if newParent, ok := oldToNew[n.ParentTabID]; ok && n.HasParent() {
			n.ParentTabID = newParent
		} else {
			n.ParentTabID = types.NoTab
		}
		children := make([]types.TabID, 0, len(n.ChildTabIDs))
		for _, oldChild := range n.ChildTabIDs {
			if newChild, ok := oldToNew[oldChild]; ok {
				children = append(children, newChild)
			}
		}
		n.ChildTabIDs = children
	}

	fresh.Closed = false
	fresh.RepairLinks()
	Normalize(fresh)
	return oldToNew
}

// sameURLs reports whether a and b hold the same URLs with the same
// multiplicities, ignoring order.
func sameURLs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, u := range a {
		counts[u]++
	}
	for _, u := range b {
		counts[u]--
		if counts[u] < 0 {
			return false
		}
	}
	return true
}
