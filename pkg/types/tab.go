package types

import "slices"

// TabID identifies a tab. Ids are assigned by the host and are not stable
// across a window close/reopen cycle.
type TabID int

// WindowID identifies a host window. Reassigned when a window is reopened.
type WindowID int

// NoTab marks an absent tab reference, matching the host's own sentinel.
const NoTab TabID = -1

// Tab load states reported by the host.
const (
	TabStatusLoading  = "loading"
	TabStatusComplete = "complete"
)

// TabNode is one tab in a WindowTree.
type TabNode struct {
	ID          TabID   `json:"id"`
	URL         string  `json:"url"`
	Title       string  `json:"title,omitempty"`
	FaviconURL  string  `json:"favicon_url,omitempty"`
	ParentTabID TabID   `json:"parent_tab_id"`
	ChildTabIDs []TabID `json:"child_tab_ids"`
	Position    int     `json:"position"`
	IsCollapsed bool    `json:"is_collapsed"`
	Active      bool    `json:"active"`
}

// HasParent reports whether the node has an opener in its tree.
func (n *TabNode) HasParent() bool {
	return n.ParentTabID != NoTab
}

// Clone returns a deep copy of the node.
func (n *TabNode) Clone() *TabNode {
	cp := *n
	cp.ChildTabIDs = slices.Clone(n.ChildTabIDs)
	if cp.ChildTabIDs == nil {
		cp.ChildTabIDs = []TabID{}
	}
	return &cp
}

// indexOfChild returns the index of id in the node's children, or -1.
func (n *TabNode) indexOfChild(id TabID) int {
	return slices.Index(n.ChildTabIDs, id)
}
