package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tabtree/internal/tree"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// sampleWindow builds:
//
//	1 A (a.com, active)
//	└─ 2 b.com
//	3 c.com (collapsed)
//	└─ 4 d.com
func sampleWindow() *types.WindowTree {
	w := types.NewWindowTree(1)
	tree.Insert(w, types.TabCreated{ID: 1, URL: "a.com", Title: "A", Active: true, Index: 0})
	tree.Insert(w, types.TabCreated{ID: 2, URL: "b.com", Index: 1, OpenerTabID: types.Some[types.TabID](1)})
	tree.Insert(w, types.TabCreated{ID: 3, URL: "c.com", Index: 2})
	tree.Insert(w, types.TabCreated{ID: 4, URL: "d.com", Index: 3, OpenerTabID: types.Some[types.TabID](3)})
	w.Tabs[3].IsCollapsed = true
	return w
}

func TestTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, sampleWindow(), Options{ShowURL: true}))

	want := "Window 1 (4 tabs)\n" +
		"▾ A a.com\n" +
		"  • b.com\n" +
		"▸ c.com (+1)\n"
	assert.Equal(t, want, buf.String())
}

func TestTreeWithoutURLs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, sampleWindow(), Options{}))

	assert.Contains(t, buf.String(), "▾ A\n")
}

func TestTreeClosedWindow(t *testing.T) {
	w := sampleWindow()
	w.Closed = true

	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, w, Options{}))

	assert.Equal(t, "Window 1 (4 tabs) closed", firstLine(buf.String()))
}

func TestTreeWidthTruncates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, sampleWindow(), Options{Width: 5, ShowURL: true}))

	assert.Contains(t, buf.String(), "\n▾ A a\n")
}

func TestTreeEmptyWindow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, types.NewWindowTree(7), Options{}))

	assert.Equal(t, "Window 7 (0 tabs)\n", buf.String())
}

func TestDescendants(t *testing.T) {
	w := sampleWindow()
	tree.Insert(w, types.TabCreated{ID: 5, URL: "e.com", Index: 4, OpenerTabID: types.Some[types.TabID](4)})

	tests := []struct {
		id   types.TabID
		want int
	}{
		{1, 1},
		{2, 0},
		{3, 2},
		{42, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, descendants(w, tt.id), "tab %d", tt.id)
	}
}

func firstLine(s string) string {
	before, _, _ := bytes.Cut([]byte(s), []byte("\n"))
	return string(before)
}
