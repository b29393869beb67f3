package sqlite

import (
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// JSONL record structures. Field names match the SQLite column names so the
// loader can insert records without a per-table mapping function.

// windowJSON is one line of windows.jsonl.
type windowJSON struct {
	WindowID int  `json:"window_id"`
	Closed   bool `json:"closed"`
}

// tabJSON is one line of tabs.jsonl. A root tab has a null parent.
type tabJSON struct {
	WindowID    int    `json:"window_id"`
	TabID       int    `json:"tab_id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	FaviconURL  string `json:"favicon_url"`
	ParentTabID *int   `json:"parent_tab_id"`
	ChildTabIDs []int  `json:"child_tab_ids"`
	Position    int    `json:"position"`
	IsCollapsed bool   `json:"is_collapsed"`
	Active      bool   `json:"active"`
}

// snapshotJSON is one line of snapshots.jsonl, recorded on every save.
type snapshotJSON struct {
	Revision string `json:"revision"`
	SavedAt  string `json:"saved_at"`
	Windows  int    `json:"windows"`
	Tabs     int    `json:"tabs"`
}

func newTabJSON(windowID types.WindowID, n *types.TabNode) tabJSON {
	rec := tabJSON{
		WindowID:    int(windowID),
		TabID:       int(n.ID),
		URL:         n.URL,
		Title:       n.Title,
		FaviconURL:  n.FaviconURL,
		ChildTabIDs: make([]int, len(n.ChildTabIDs)),
		Position:    n.Position,
		IsCollapsed: n.IsCollapsed,
		Active:      n.Active,
	}
	if n.HasParent() {
		parent := int(n.ParentTabID)
		rec.ParentTabID = &parent
	}
	for i, id := range n.ChildTabIDs {
		rec.ChildTabIDs[i] = int(id)
	}
	return rec
}

func (r tabJSON) node() *types.TabNode {
	n := &types.TabNode{
		ID:          types.TabID(r.TabID),
		URL:         r.URL,
		Title:       r.Title,
		FaviconURL:  r.FaviconURL,
		ParentTabID: types.NoTab,
		ChildTabIDs: make([]types.TabID, len(r.ChildTabIDs)),
		Position:    r.Position,
		IsCollapsed: r.IsCollapsed,
		Active:      r.Active,
	}
	if r.ParentTabID != nil {
		n.ParentTabID = types.TabID(*r.ParentTabID)
	}
	for i, id := range r.ChildTabIDs {
		n.ChildTabIDs[i] = types.TabID(id)
	}
	return n
}
