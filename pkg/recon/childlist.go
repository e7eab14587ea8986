package recon

import "fmt"

// propsSimilarityThreshold and structuralSimilarityThreshold are the
// replace/reconcile thresholds shared by R6 and the replacement heuristic
// below (§4.4, §4.5.3).
const (
	propsSimilarityThreshold      = 0.5
	structuralSimilarityThreshold = 0.3
)

// reconcileChildren is the ChildListReconciler (§4.5): it decides between
// the keyed and simple algorithms (C1), then emits a set_children effect
// for parentViewID if the result is complete, or logs and skips it (E3) if
// any slot never received a view-id.
func (r *Reconciler) reconcileChildren(parentViewID ViewID, oldChildren, newChildren []Node) error {
	keyed := len(newChildren) > 0
	for _, c := range newChildren {
		if _, ok := c.Key(); !ok {
			keyed = false
			break
		}
	}

	var results []ViewID
	var changed bool
	var err error
	if keyed {
		results, changed, err = r.reconcileChildrenKeyed(parentViewID, oldChildren, newChildren)
	} else {
		results, changed, err = r.reconcileChildrenSimple(parentViewID, oldChildren, newChildren)
	}
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	for i, v := range results {
		if v == NoViewID {
			if r.diagnostics != nil {
				r.diagnostics.Logf(LevelWarn, "child slot %d of parent %d has no view-id; skipping set_children", i, parentViewID)
			}
			return nil
		}
	}

	r.effects.Append(&Effect{Kind: EffectSetChildren, ParentViewID: parentViewID, Children: results})
	return nil
}

// effectiveKey is user_key ?? f"{index}:{runtime_type}" (§4.5.1).
func effectiveKey(n Node, index int) string {
	if k, ok := n.Key(); ok {
		return "k:" + k
	}
	return fmt.Sprintf("%d:%s", index, n.RuntimeType())
}

type oldKeyedChild struct {
	node  Node
	index int
}

// reconcileChildrenKeyed is §4.5.1. Move selection uses the "last placed
// index" heuristic virtual-DOM diffing libraries use for keyed lists: a
// matched child needs no detach/attach pair as long as its old index is
// greater than every previously kept match's old index, i.e. it is already
// in increasing left-to-right order relative to what precedes it; only a
// match that falls out of that increasing run gets an explicit move. The
// kept matches are the increasing run that starts at the first match in
// new order, which is not necessarily the longest such run; still, slots
// whose raw index merely shifted are not flagged — comparing
// match.index against the raw loop index i (as a naive read of this
// section's prose suggests) emits a move for every entry under a full
// rotation, which P8 and S4 both rule out.
func (r *Reconciler) reconcileChildrenKeyed(parentViewID ViewID, oldChildren, newChildren []Node) ([]ViewID, bool, error) {
	oldByKey := make(map[string]oldKeyedChild, len(oldChildren))
	for i, c := range oldChildren {
		oldByKey[effectiveKey(c, i)] = oldKeyedChild{node: c, index: i}
	}

	results := make([]ViewID, len(newChildren))
	for i := range results {
		results[i] = NoViewID
	}
	matchedOld := make(map[int]bool, len(oldChildren))
	changed := false
	lastPlacedOldIndex := -1

	for i, nc := range newChildren {
		key := effectiveKey(nc, i)
		match, ok := oldByKey[key]
		if !ok {
			changed = true
			if viewID, renderOk := r.renderer.Render(nc, parentViewID, i); renderOk {
				results[i] = viewID
			}
			continue
		}

		matchedOld[match.index] = true
		if err := r.Reconcile(match.node, nc); err != nil {
			return nil, false, err
		}
		viewID := nc.EffectiveViewID()
		results[i] = viewID

		if match.index > lastPlacedOldIndex {
			lastPlacedOldIndex = match.index
			continue
		}

		changed = true
		if viewID != NoViewID {
			r.effects.Append(&Effect{Kind: EffectDetachView, ViewID: viewID})
			r.effects.Append(&Effect{Kind: EffectAttachView, ViewID: viewID, ParentViewID: parentViewID, Index: i})
		}
	}

	for idx, oc := range oldChildren {
		if !matchedOld[idx] {
			changed = true
			r.renderer.Dispose(oc)
		}
	}

	return results, changed, nil
}

// reconcileChildrenSimple is §4.5.2: a two-pointer greedy matcher with
// bounded lookahead for insertions and removals, falling back to
// replace-in-place when neither lookahead finds a match.
func (r *Reconciler) reconcileChildrenSimple(parentViewID ViewID, oldChildren, newChildren []Node) ([]ViewID, bool, error) {
	results := make([]ViewID, len(newChildren))
	for i := range results {
		results[i] = NoViewID
	}
	changed := false

	iOld, iNew := 0, 0
	for iOld < len(oldChildren) && iNew < len(newChildren) {
		oldChild := oldChildren[iOld]
		newChild := newChildren[iNew]

		if r.listChildMatches(oldChild, newChild) {
			if err := r.Reconcile(oldChild, newChild); err != nil {
				return nil, false, err
			}
			results[iNew] = newChild.EffectiveViewID()
			iOld++
			iNew++
			continue
		}

		insertAt := -1
		for j := iNew + 1; j < len(newChildren); j++ {
			if r.listChildMatches(oldChild, newChildren[j]) {
				insertAt = j
				break
			}
		}
		removeAt := -1
		for k := iOld + 1; k < len(oldChildren); k++ {
			if r.listChildMatches(oldChildren[k], newChild) {
				removeAt = k
				break
			}
		}

		switch {
		case insertAt != -1 && (removeAt == -1 || (insertAt-iNew) <= (removeAt-iOld)):
			for ; iNew < insertAt; iNew++ {
				changed = true
				if viewID, ok := r.renderer.Render(newChildren[iNew], parentViewID, iNew); ok {
					results[iNew] = viewID
				}
			}
		case removeAt != -1:
			for ; iOld < removeAt; iOld++ {
				changed = true
				r.renderer.Dispose(oldChildren[iOld])
			}
		default:
			changed = true
			r.renderer.Replace(oldChild, newChild)
			results[iNew] = newChild.EffectiveViewID()
			iOld++
			iNew++
		}
	}

	for ; iNew < len(newChildren); iNew++ {
		changed = true
		if viewID, ok := r.renderer.Render(newChildren[iNew], parentViewID, iNew); ok {
			results[iNew] = viewID
		}
	}
	for ; iOld < len(oldChildren); iOld++ {
		changed = true
		r.renderer.Dispose(oldChildren[iOld])
	}

	return results, changed, nil
}

// listChildMatches is the "matches" predicate from §4.5.2: same runtime
// type, props_similarity >= 0.5, and shouldReplaceAtSamePosition false.
func (r *Reconciler) listChildMatches(old, new Node) bool {
	if old.RuntimeType() != new.RuntimeType() {
		return false
	}
	if oe, ok := old.(*ElementNode); ok {
		if ne, ok2 := new.(*ElementNode); ok2 {
			if NonFunctionPropsSimilarity(oe.Props, ne.Props) < propsSimilarityThreshold {
				return false
			}
		}
	}
	return !r.shouldReplaceAtSamePosition(old, new)
}

// shouldReplaceAtSamePosition is §4.5.3.
func (r *Reconciler) shouldReplaceAtSamePosition(old, new Node) bool {
	if oldKey, ok := old.Key(); ok {
		if newKey, ok2 := new.Key(); ok2 && oldKey != newKey {
			return true
		}
	}
	if old.RuntimeType() != new.RuntimeType() {
		return true
	}
	oe, oldIsElement := old.(*ElementNode)
	ne, newIsElement := new.(*ElementNode)
	if oldIsElement && newIsElement {
		if oe.TypeName != ne.TypeName {
			return true
		}
		if NonFunctionPropsSimilarity(oe.Props, ne.Props) < propsSimilarityThreshold {
			return true
		}
		if StructuralSimilarity(r.simCache, oe, ne) < structuralSimilarityThreshold {
			return true
		}
	}
	return false
}
