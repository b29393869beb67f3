package types

// TreeView is a read-only rendering node. Children is empty when the node is
// collapsed, even if it has children in the tree.
type TreeView struct {
	Node        TabNode    `json:"node"`
	Depth       int        `json:"depth"`
	HasChildren bool       `json:"has_children"`
	Children    []TreeView `json:"children,omitempty"`
}

// View returns the visible forest: roots ordered by position, children in
// child-list order, descendants of collapsed nodes omitted.
func (w *WindowTree) View() []TreeView {
	var roots []TreeView
	visited := make(map[TabID]bool, len(w.Tabs))
	for _, n := range w.Ordered() {
		if n.HasParent() {
			if _, ok := w.Tabs[n.ParentTabID]; ok {
				continue
			}
		}
		roots = append(roots, w.view(n, 0, visited))
	}
	return roots
}

func (w *WindowTree) view(n *TabNode, depth int, visited map[TabID]bool) TreeView {
	visited[n.ID] = true
	v := TreeView{
		Node:        *n.Clone(),
		Depth:       depth,
		HasChildren: len(n.ChildTabIDs) > 0,
	}
	if n.IsCollapsed {
		return v
	}
	for _, childID := range n.ChildTabIDs {
		child, ok := w.Tabs[childID]
		if !ok || visited[childID] {
			continue
		}
		v.Children = append(v.Children, w.view(child, depth+1, visited))
	}
	return v
}

// Flatten returns the views in pre-order, the order a renderer draws them.
func Flatten(views []TreeView) []TreeView {
	var out []TreeView
	var walk func([]TreeView)
	walk = func(vs []TreeView) {
		for _, v := range vs {
			children := v.Children
			v.Children = nil
			out = append(out, v)
			walk(children)
		}
	}
	walk(views)
	return out
}
