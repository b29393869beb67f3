package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// closedWindow builds a retained window from the given inserts.
func closedWindow(id types.WindowID, tabs ...types.TabCreated) *types.WindowTree {
	w := types.NewWindowTree(id)
	for _, tab := range tabs {
		Insert(w, tab)
	}
	w.Closed = true
	return w
}

// flatWindow builds a freshly restored window with no hierarchy.
func flatWindow(id types.WindowID, firstTab types.TabID, urls ...string) *types.WindowTree {
	w := types.NewWindowTree(id)
	for i, url := range urls {
		Insert(w, created(firstTab+types.TabID(i), url, i))
	}
	return w
}

func TestMatchRestoresHierarchy(t *testing.T) {
	store := types.NewStateStore()
	store.Windows[1] = closedWindow(1,
		created(1, "url1", 0),
		openedFrom(2, 1, "url2", 1),
	)
	store.Windows[7] = flatWindow(7, 50, "url1", "url2")

	oldID, ok := Match(store, 7)

	require.True(t, ok)
	assert.Equal(t, types.WindowID(1), oldID)
	assert.NotContains(t, store.Windows, types.WindowID(1))

	w := store.Windows[7]
	newA, newB := w.Tabs[50], w.Tabs[51]
	assert.Equal(t, []types.TabID{51}, newA.ChildTabIDs)
	assert.Equal(t, types.NoTab, newA.ParentTabID)
	assert.Equal(t, types.TabID(50), newB.ParentTabID)
	assert.Equal(t, 0, newA.Position)
	assert.Equal(t, 1, newB.Position)
	assert.False(t, w.Closed)
	require.NoError(t, w.Validate())
}

func TestMatchCopiesCollapseAndOrder(t *testing.T) {
	old := closedWindow(1,
		created(1, "a", 0),
		openedFrom(2, 1, "b", 1),
		created(3, "c", 2),
	)
	Update(old, 1, types.ChangeInfo{IsCollapsed: types.Some(true)})
	// Move c to the front in the old window.
	old.Tabs[3].Position = -1
	Normalize(old)

	store := types.NewStateStore()
	store.Windows[1] = old
	store.Windows[2] = flatWindow(2, 10, "a", "b", "c")

	_, ok := Match(store, 2)
	require.True(t, ok)

	w := store.Windows[2]
	assert.True(t, w.Tabs[10].IsCollapsed)
	assert.Equal(t, 0, w.Tabs[12].Position)
	assert.Equal(t, 1, w.Tabs[10].Position)
	assert.Equal(t, 2, w.Tabs[11].Position)
	assert.False(t, w.IsVisible(11))
}

func TestMatchRejectsDifferentMultisets(t *testing.T) {
	tests := []struct {
		name string
		urls []string
	}{
		{"one extra url", []string{"a", "b", "c"}},
		{"one missing url", []string{"a"}},
		{"one different url", []string{"a", "x"}},
		{"same set different multiplicity", []string{"a", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := types.NewStateStore()
			store.Windows[1] = closedWindow(1, created(1, "a", 0), openedFrom(2, 1, "b", 1))
			store.Windows[2] = flatWindow(2, 10, tt.urls...)

			_, ok := Match(store, 2)

			assert.False(t, ok)
			assert.Contains(t, store.Windows, types.WindowID(1))
			for _, n := range store.Windows[2].Tabs {
				assert.Equal(t, types.NoTab, n.ParentTabID, "tree stays flat")
			}
		})
	}
}

func TestMatchIgnoresOpenWindows(t *testing.T) {
	store := types.NewStateStore()
	open := closedWindow(1, created(1, "a", 0))
	open.Closed = false
	store.Windows[1] = open
	store.Windows[2] = flatWindow(2, 10, "a")

	_, ok := Match(store, 2)
	assert.False(t, ok)
}

func TestMatchEmptyWindowNeverMatches(t *testing.T) {
	store := types.NewStateStore()
	store.Windows[1] = closedWindow(1)
	store.Windows[2] = types.NewWindowTree(2)

	_, ok := Match(store, 2)
	assert.False(t, ok)

	_, ok = Match(store, 3)
	assert.False(t, ok)
}

func TestMatchFirstCandidateWins(t *testing.T) {
	store := types.NewStateStore()
	store.Windows[4] = closedWindow(4, created(1, "a", 0))
	store.Windows[3] = closedWindow(3, created(2, "a", 0))
	store.Windows[9] = flatWindow(9, 10, "a")

	oldID, ok := Match(store, 9)
	require.True(t, ok)
	assert.Equal(t, types.WindowID(3), oldID)
	assert.Contains(t, store.Windows, types.WindowID(4))
}

func TestTransplantDuplicateURLsLIFO(t *testing.T) {
	// Old window: 1 (dup) is a root, 2 (dup) is a child of 3.
	old := closedWindow(1,
		created(1, "dup", 0),
		created(3, "parent", 1),
		openedFrom(2, 3, "dup", 2),
	)
	fresh := flatWindow(2, 20, "dup", "parent", "dup")

	mapping := Transplant(old, fresh)

	// Fresh 20 is visited first and pops the highest old id for "dup".
	assert.Equal(t, types.TabID(20), mapping[2])
	assert.Equal(t, types.TabID(22), mapping[1])
	assert.Equal(t, types.TabID(21), mapping[3])
	assert.Equal(t, types.TabID(21), fresh.Tabs[20].ParentTabID)
	assert.Equal(t, []types.TabID{20}, fresh.Tabs[21].ChildTabIDs)
	require.NoError(t, fresh.Validate())
}

func TestTransplantPartialMatchBreaksLinks(t *testing.T) {
	old := closedWindow(1,
		created(1, "root", 0),
		openedFrom(2, 1, "child", 1),
		openedFrom(3, 2, "grandchild", 2),
	)
	// "child" did not come back; "other" is new.
	fresh := flatWindow(2, 30, "root", "other", "grandchild")

	Transplant(old, fresh)

	assert.Empty(t, fresh.Tabs[30].ChildTabIDs, "link to unmatched child dropped")
	assert.Equal(t, types.NoTab, fresh.Tabs[32].ParentTabID, "link to unmatched parent dropped")
	assert.Equal(t, types.NoTab, fresh.Tabs[31].ParentTabID)
	require.NoError(t, fresh.Validate())
	for i, n := range fresh.Ordered() {
		assert.Equal(t, i, n.Position)
	}
}

func TestTransplantKeepsNewOpenerLinks(t *testing.T) {
	old := closedWindow(1, created(1, "a", 0), openedFrom(2, 1, "b", 1))
	fresh := flatWindow(2, 40, "a", "b")
	Insert(fresh, openedFrom(42, 40, "c", 2))

	Transplant(old, fresh)

	assert.ElementsMatch(t, []types.TabID{41, 42}, fresh.Tabs[40].ChildTabIDs)
	assert.Equal(t, types.TabID(40), fresh.Tabs[42].ParentTabID)
	require.NoError(t, fresh.Validate())
}

func TestSameURLs(t *testing.T) {
	assert.True(t, sameURLs([]string{"a", "b", "a"}, []string{"a", "a", "b"}))
	assert.True(t, sameURLs(nil, nil))
	assert.False(t, sameURLs([]string{"a", "b"}, []string{"a", "a"}))
	assert.False(t, sameURLs([]string{"a"}, []string{"a", "a"}))
}
