package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree creates a window from (id, parent, position) triples and links
// children in the order given.
func buildTree(t *testing.T, nodes ...[3]int) *WindowTree {
	t.Helper()
	w := NewWindowTree(1)
	for _, row := range nodes {
		w.Tabs[TabID(row[0])] = &TabNode{
			ID:          TabID(row[0]),
			URL:         "https://example.com/" + string(rune('a'+row[0])),
			ParentTabID: TabID(row[1]),
			ChildTabIDs: []TabID{},
			Position:    row[2],
		}
	}
	for _, row := range nodes {
		if parent := TabID(row[1]); parent != NoTab {
			p := w.Tabs[parent]
			p.ChildTabIDs = append(p.ChildTabIDs, TabID(row[0]))
		}
	}
	return w
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(w *WindowTree)
		wantErr error
	}{
		{
			name:   "consistent tree",
			mutate: func(w *WindowTree) {},
		},
		{
			name:    "missing parent",
			mutate: func(w *WindowTree) {
				w.Tabs[3].ParentTabID = 42
				w.Tabs[1].ChildTabIDs = []TabID{2}
			},
			wantErr: ErrTreeDanglingParent,
		},
		{
			name:    "missing child",
			mutate:  func(w *WindowTree) { w.Tabs[1].ChildTabIDs = append(w.Tabs[1].ChildTabIDs, 42) },
			wantErr: ErrTreeDanglingChild,
		},
		{
			name:    "child not listed by parent",
			mutate:  func(w *WindowTree) { w.Tabs[1].ChildTabIDs = []TabID{2} },
			wantErr: ErrTreeUnlinked,
		},
		{
			name:    "duplicate position",
			mutate:  func(w *WindowTree) { w.Tabs[3].Position = 0 },
			wantErr: ErrTreePosition,
		},
		{
			name: "cycle",
			mutate: func(w *WindowTree) {
				w.Tabs[1].ParentTabID = 3
				w.Tabs[3].ChildTabIDs = []TabID{1}
			},
			wantErr: ErrTreeCycle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := buildTree(t, [3]int{1, -1, 0}, [3]int{2, 1, 1}, [3]int{3, 1, 2})
			tt.mutate(w)
			err := w.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRepairLinks(t *testing.T) {
	w := buildTree(t, [3]int{1, -1, 0}, [3]int{2, 1, 1}, [3]int{3, 1, 2}, [3]int{4, -1, 3})
	w.Tabs[1].ChildTabIDs = []TabID{3, 99, 3} // 2 missing, 99 dangling, 3 duplicated
	w.Tabs[4].ParentTabID = 77                 // dangling parent

	w.RepairLinks()

	require.NoError(t, w.Validate())
	assert.Equal(t, []TabID{3, 2}, w.Tabs[1].ChildTabIDs)
	assert.Equal(t, NoTab, w.Tabs[4].ParentTabID)
}

func TestRepairLinksBreaksCycles(t *testing.T) {
	w := buildTree(t, [3]int{1, -1, 0}, [3]int{2, 1, 1})
	w.Tabs[1].ParentTabID = 2
	w.Tabs[2].ChildTabIDs = []TabID{1}

	w.RepairLinks()

	require.NoError(t, w.Validate())
}

func TestRepairKeys(t *testing.T) {
	w := buildTree(t, [3]int{6, -1, 0}, [3]int{8, -1, 1})
	misfiled := &TabNode{ID: 7, ParentTabID: NoTab, ChildTabIDs: []TabID{}}
	w.Tabs[5] = misfiled
	w.Tabs[9] = &TabNode{ID: 6, ParentTabID: NoTab, ChildTabIDs: []TabID{}}

	require.True(t, w.RepairKeys())

	assert.Equal(t, []TabID{6, 7, 8}, w.IDs())
	assert.Same(t, misfiled, w.Tabs[7])
	assert.Equal(t, "https://example.com/"+string(rune('a'+6)), w.Tabs[6].URL, "correctly keyed node wins")
	assert.False(t, w.RepairKeys())
}

func TestRepairKeysSwapsCrossedNodes(t *testing.T) {
	w := NewWindowTree(1)
	w.Tabs[1] = &TabNode{ID: 2, URL: "b", ParentTabID: NoTab, ChildTabIDs: []TabID{}}
	w.Tabs[2] = &TabNode{ID: 1, URL: "a", ParentTabID: NoTab, ChildTabIDs: []TabID{}, Position: 1}

	require.True(t, w.RepairKeys())

	assert.Equal(t, "a", w.Tabs[1].URL)
	assert.Equal(t, "b", w.Tabs[2].URL)
}

func TestHasLinks(t *testing.T) {
	assert.False(t, buildTree(t, [3]int{1, -1, 0}, [3]int{2, -1, 1}).HasLinks())
	assert.True(t, buildTree(t, [3]int{1, -1, 0}, [3]int{2, 1, 1}).HasLinks())
	assert.False(t, NewWindowTree(3).HasLinks())
}

func TestIsVisible(t *testing.T) {
	w := buildTree(t, [3]int{1, -1, 0}, [3]int{2, 1, 1}, [3]int{3, 2, 2})

	assert.True(t, w.IsVisible(3))

	w.Tabs[1].IsCollapsed = true
	assert.True(t, w.IsVisible(1), "a collapsed node itself stays visible")
	assert.False(t, w.IsVisible(2))
	assert.False(t, w.IsVisible(3))

	w.Tabs[1].IsCollapsed = false
	assert.True(t, w.IsVisible(3))
	assert.False(t, w.IsVisible(42))
}

func TestCloneIsDeep(t *testing.T) {
	w := buildTree(t, [3]int{1, -1, 0}, [3]int{2, 1, 1})
	cp := w.Clone()

	cp.Tabs[1].ChildTabIDs[0] = 9
	cp.Tabs[2].Title = "changed"

	assert.Equal(t, TabID(2), w.Tabs[1].ChildTabIDs[0])
	assert.Empty(t, w.Tabs[2].Title)
}

func TestOrderedBreaksTiesOnID(t *testing.T) {
	w := buildTree(t, [3]int{5, -1, 1}, [3]int{3, -1, 1}, [3]int{4, -1, 0})

	var ids []TabID
	for _, n := range w.Ordered() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []TabID{4, 3, 5}, ids)
}
