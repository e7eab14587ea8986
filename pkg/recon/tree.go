package recon

// resolveElementViewID walks down through nested Component rendered_nodes
// until it reaches an Element (or runs out of subtree), returning that
// Element's view-id.
func resolveElementViewID(n Node) (ViewID, bool) {
	for {
		if el, ok := n.(*ElementNode); ok {
			return el.ViewID(), true
		}
		rend, ok := asRenderer(n)
		if !ok {
			return NoViewID, false
		}
		rendered := rend.RenderedNode()
		if rendered == nil {
			return NoViewID, false
		}
		n = rendered
	}
}

// FindParentViewID walks the parent chain (§4.10). At each ancestor it
// resolves down to the nearest Element view-id via resolveElementViewID —
// immediately if the ancestor is itself an Element, or through its rendered
// subtree if it is a Component. Transparent ancestors (Fragment) that
// resolve to nothing are skipped and the walk continues upward. If the
// chain is exhausted without a match, the host root (view-id 0) is
// returned.
func FindParentViewID(n Node) ViewID {
	callee := n.EffectiveViewID()
	cur := n.Parent()
	for cur != nil {
		if vid, ok := resolveElementViewID(cur); ok && vid != NoViewID && vid != callee {
			return vid
		}
		cur = cur.Parent()
	}
	return RootViewID
}

// FindNodeIndexInParent returns n's position within its parent's children
// list (§4.11). If the parent is itself a Component, n's position is
// defined as the component's own position within its parent, so the
// search recurses upward; if there is no parent at all, the position is 0
// (the node is the tree root).
func FindNodeIndexInParent(n Node) int {
	parent := n.Parent()
	if parent == nil {
		return 0
	}
	if cb, ok := asChildBearer(parent); ok {
		for i, c := range cb.ChildNodes() {
			if c == n {
				return i
			}
		}
		return 0
	}
	if _, ok := asRenderer(parent); ok {
		return FindNodeIndexInParent(parent)
	}
	return 0
}

// linkChildren sets owner as the parent of each child, the bookkeeping
// step a fresh render() call never does on its own since NewElement/
// NewFragment only record the slice.
func linkChildren(owner Node, children []Node) {
	for _, c := range children {
		c.SetParent(owner)
	}
}
