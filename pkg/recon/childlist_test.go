package recon

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRenderer is a TreeRenderer stub that hands out sequential view-ids
// on Render and records every Dispose/Replace call, enough to exercise
// reconcileChildren's keyed and unkeyed paths without a full Engine.
type recordingRenderer struct {
	next      ViewID
	disposed  []Node
	replaced  [][2]Node
}

func (r *recordingRenderer) Render(node Node, parentViewID ViewID, index int) (ViewID, bool) {
	if el, ok := node.(*ElementNode); ok {
		r.next++
		el.SetViewID(r.next)
		return r.next, true
	}
	return NoViewID, false
}

func (r *recordingRenderer) Dispose(node Node) {
	r.disposed = append(r.disposed, node)
}

func (r *recordingRenderer) Replace(old, new Node) {
	r.replaced = append(r.replaced, [2]Node{old, new})
	if el, ok := new.(*ElementNode); ok {
		r.next++
		el.SetViewID(r.next)
	}
}

func newTestReconciler(renderer TreeRenderer) *Reconciler {
	return NewReconciler(NewNodeRegistry(), NewPropsDiffer(), NewSimilarityCache(), NewEffectList(), renderer)
}

func key(k string) *string { return &k }

func withKey(e *ElementNode, k string) *ElementNode {
	e.UserKey = key(k)
	return e
}

func TestReconcileChildren_KeyedReorder(t *testing.T) {
	renderer := &recordingRenderer{}
	r := newTestReconciler(renderer)

	oldA := withKey(NewElement("Item", map[string]any{"label": "a"}), "a")
	oldB := withKey(NewElement("Item", map[string]any{"label": "b"}), "b")
	oldA.SetViewID(1)
	oldB.SetViewID(2)

	newB := withKey(NewElement("Item", map[string]any{"label": "b"}), "b")
	newA := withKey(NewElement("Item", map[string]any{"label": "a"}), "a")

	err := r.reconcileChildren(10, []Node{oldA, oldB}, []Node{newB, newA})
	require.NoError(t, err)

	assert.Equal(t, ViewID(2), newB.ViewID(), "same-key instance keeps its view-id")
	assert.Equal(t, ViewID(1), newA.ViewID())
	assert.Empty(t, renderer.disposed, "a pure reorder disposes nothing")

	assert.Greater(t, r.effects.Len(), 0, "reordering emits detach/attach effects plus set_children")
}

func TestReconcileChildren_KeyedFullRotationKeepsFirstMatch(t *testing.T) {
	renderer := &recordingRenderer{}
	r := newTestReconciler(renderer)

	oldA := withKey(NewElement("Item", nil), "a")
	oldB := withKey(NewElement("Item", nil), "b")
	oldC := withKey(NewElement("Item", nil), "c")
	oldA.SetViewID(1)
	oldB.SetViewID(2)
	oldC.SetViewID(3)

	newC := withKey(NewElement("Item", nil), "c")
	newA := withKey(NewElement("Item", nil), "a")
	newB := withKey(NewElement("Item", nil), "b")

	err := r.reconcileChildren(10, []Node{oldA, oldB, oldC}, []Node{newC, newA, newB})
	require.NoError(t, err)
	assert.Empty(t, renderer.disposed, "a pure reorder creates or deletes nothing")

	var ops []string
	require.NoError(t, r.effects.Drain(func(e *Effect) error {
		switch e.Kind {
		case EffectDetachView:
			ops = append(ops, fmt.Sprintf("detach(%d)", e.ViewID))
		case EffectAttachView:
			ops = append(ops, fmt.Sprintf("attach(%d,%d)", e.ViewID, e.Index))
		case EffectSetChildren:
			ops = append(ops, fmt.Sprintf("set_children(%v)", e.Children))
		}
		return nil
	}))

	// c is the first match, so it is kept and its old index (2) becomes the
	// high-water mark; a (old index 0) and b (old index 1) both fall below the
	// running high-water mark once c is kept, so exactly two move pairs
	// are issued, matching P8's "exactly two move pairs" count.
	assert.Equal(t, []string{
		"detach(1)", "attach(1,1)",
		"detach(2)", "attach(2,2)",
		"set_children([3 1 2])",
	}, ops)
}

func TestReconcileChildren_KeyedInsertAndRemove(t *testing.T) {
	renderer := &recordingRenderer{}
	r := newTestReconciler(renderer)

	oldA := withKey(NewElement("Item", nil), "a")
	oldB := withKey(NewElement("Item", nil), "b")
	oldA.SetViewID(1)
	oldB.SetViewID(2)

	newA := withKey(NewElement("Item", nil), "a")
	newC := withKey(NewElement("Item", nil), "c")

	err := r.reconcileChildren(10, []Node{oldA, oldB}, []Node{newA, newC})
	require.NoError(t, err)

	assert.Equal(t, ViewID(1), newA.ViewID(), "matched key reuses the view-id")
	assert.NotEqual(t, NoViewID, newC.ViewID(), "unmatched new key is freshly rendered")
	require.Len(t, renderer.disposed, 1)
	assert.Same(t, Node(oldB), renderer.disposed[0], "unmatched old key is disposed")
}

func TestReconcileChildren_SimpleMatchInPlace(t *testing.T) {
	renderer := &recordingRenderer{}
	r := newTestReconciler(renderer)

	old := NewElement("Text", map[string]any{"content": "hi", "id": "greeting"})
	old.SetViewID(5)
	new := NewElement("Text", map[string]any{"content": "bye", "id": "greeting"})

	err := r.reconcileChildren(10, []Node{old}, []Node{new})
	require.NoError(t, err)
	assert.Equal(t, ViewID(5), new.ViewID(), "similar-enough props patch the existing view rather than replacing it")
	assert.Empty(t, renderer.replaced)
}

func TestReconcileChildren_SimpleReplaceOnTypeMismatch(t *testing.T) {
	renderer := &recordingRenderer{}
	r := newTestReconciler(renderer)

	old := NewElement("Text", nil)
	old.SetViewID(5)
	new := NewElement("Button", nil)

	err := r.reconcileChildren(10, []Node{old}, []Node{new})
	require.NoError(t, err)
	require.Len(t, renderer.replaced, 1)
	assert.Same(t, Node(old), renderer.replaced[0][0])
	assert.Same(t, Node(new), renderer.replaced[0][1])
}

func TestReconcileChildren_SimpleAppendsTail(t *testing.T) {
	renderer := &recordingRenderer{}
	r := newTestReconciler(renderer)

	old1 := NewElement("Item", nil)
	old1.SetViewID(1)
	old2 := NewElement("Item", nil)
	old2.SetViewID(2)

	new1 := NewElement("Item", nil)
	new2 := NewElement("Item", nil)
	new3 := NewElement("Item", nil)

	err := r.reconcileChildren(10, []Node{old1, old2}, []Node{new1, new2, new3})
	require.NoError(t, err)
	assert.NotEqual(t, NoViewID, new3.ViewID(), "the third item has no old counterpart and is freshly rendered")
	assert.Empty(t, renderer.disposed)
}

func TestReconcileChildren_UnkeyedWhenAnyChildLacksKey(t *testing.T) {
	renderer := &recordingRenderer{}
	r := newTestReconciler(renderer)

	old := NewElement("Item", nil)
	old.SetViewID(1)

	keyed := withKey(NewElement("Item", nil), "x")
	unkeyed := NewElement("Item", nil)

	err := r.reconcileChildren(10, []Node{old}, []Node{keyed, unkeyed})
	require.NoError(t, err, "a mixed keyed/unkeyed list must fall back to the simple algorithm")
}
