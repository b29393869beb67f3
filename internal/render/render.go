// Package render draws a window's visible tab tree for terminals.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// Disclosure markers.
const (
	markerExpanded  = "▾"
	markerCollapsed = "▸"
	markerLeaf      = "•"
)

// Options control tree rendering.
type Options struct {
	// Width truncates each line when positive.
	Width int
	// ShowURL appends the URL after titled tabs.
	ShowURL bool
}

// Styles holds the lipgloss styles for one output.
type Styles struct {
	Header    lipgloss.Style
	Closed    lipgloss.Style
	Tree      lipgloss.Style
	Title     lipgloss.Style
	Active    lipgloss.Style
	URL       lipgloss.Style
	Collapsed lipgloss.Style
}

// NewStyles builds styles bound to the renderer for out. Color is dropped
// when out is not a terminal.
func NewStyles(out io.Writer) Styles {
	r := lipgloss.NewRenderer(out)
	return Styles{
		Header:    r.NewStyle().Bold(true),
		Closed:    r.NewStyle().Foreground(lipgloss.Color("241")),
		Tree:      r.NewStyle().Foreground(lipgloss.Color("244")),
		Title:     r.NewStyle(),
		Active:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		URL:       r.NewStyle().Foreground(lipgloss.Color("245")),
		Collapsed: r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// Tree writes the visible tree of w to out.
func Tree(out io.Writer, w *types.WindowTree, opts Options) error {
	_, err := io.WriteString(out, String(w, NewStyles(out), opts))
	return err
}

// String renders the header line and the visible tree of w.
func String(w *types.WindowTree, st Styles, opts Options) string {
	var b strings.Builder

	header := st.Header.Render(fmt.Sprintf("Window %d", w.WindowID))
	header += " " + st.URL.Render(fmt.Sprintf("(%d tabs)", w.Len()))
	if w.Closed {
		header += " " + st.Closed.Render("closed")
	}
	b.WriteString(header)
	b.WriteByte('\n')

	for _, v := range types.Flatten(w.View()) {
		b.WriteString(line(w, v, st, opts))
		b.WriteByte('\n')
	}
	return b.String()
}

func line(w *types.WindowTree, v types.TreeView, st Styles, opts Options) string {
	n := v.Node
	marker := markerLeaf
	if v.HasChildren {
		marker = markerExpanded
		if n.IsCollapsed {
			marker = markerCollapsed
		}
	}

	label := n.Title
	if label == "" {
		label = n.URL
	}
	labelStyle := st.Title
	if n.Active {
		labelStyle = st.Active
	}

	parts := []string{
		strings.Repeat("  ", v.Depth) + st.Tree.Render(marker),
		labelStyle.Render(label),
	}
	if opts.ShowURL && n.Title != "" && n.URL != "" {
		parts = append(parts, st.URL.Render(n.URL))
	}
	if v.HasChildren && n.IsCollapsed {
		parts = append(parts, st.Collapsed.Render(fmt.Sprintf("(+%d)", descendants(w, n.ID))))
	}

	s := strings.Join(parts, " ")
	if opts.Width > 0 {
		s = lipgloss.NewStyle().MaxWidth(opts.Width).Render(s)
	}
	return s
}

// descendants counts the tabs below id, hidden or not.
func descendants(w *types.WindowTree, id types.TabID) int {
	count := 0
	seen := map[types.TabID]bool{id: true}
	stack := []types.TabID{id}
	for len(stack) > 0 {
		n, ok := w.Tabs[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !ok {
			continue
		}
		for _, c := range n.ChildTabIDs {
			if seen[c] {
				continue
			}
			seen[c] = true
			if _, ok := w.Tabs[c]; ok {
				count++
				stack = append(stack, c)
			}
		}
	}
	return count
}
