package recon

// TreeRenderer is the subset of Engine the Reconciler calls into when a
// diff decision requires mounting a fresh subtree, tearing one down, or
// performing a full replacement (§4.12). Keeping this as a narrow interface
// lets reconciler.go stay about the diff decision tree while engine.go
// owns the bridge-facing mount/unmount machinery.
type TreeRenderer interface {
	// Render mounts node under parentViewID at index, returning its
	// effective view-id (Elements/Components) or (NoViewID, false) for
	// Fragments/Empty.
	Render(node Node, parentViewID ViewID, index int) (ViewID, bool)
	// Dispose unmounts node: componentWillUnmount, delete_view, registry
	// unbind, without recursing into children (the bridge deletes
	// recursively; see §4.12 step 1).
	Dispose(node Node)
	// Replace performs the full §4.12 replacement of old by new.
	Replace(old, new Node)
}

// ReconcileHandler is an extension hook (R2): when registered for a
// runtime_type and it opts in (returns handled=true), the Reconciler
// delegates entirely instead of running R3-R8.
type ReconcileHandler func(old, new Node) (handled bool, err error)

// Reconciler is the recursive pairwise diff (§4.4): given (old, new) it
// mutates new in place (view-ids, registry bindings), emits effects for
// prop/listener/child-list changes, and recurses into descendants.
type Reconciler struct {
	registry    *NodeRegistry
	propsDiffer *PropsDiffer
	simCache    *SimilarityCache
	effects     *EffectList
	renderer    TreeRenderer
	diagnostics Diagnostics

	customHandlers map[string]ReconcileHandler

	// structuralShock reports whether the engine is currently in the
	// structural-shock window (§4.7 R3); nil means never.
	structuralShock func() bool
}

// NewReconciler wires a Reconciler against the given subsystems. renderer
// must be non-nil; diagnostics defaults to GetDefaultDiagnostics() if nil.
func NewReconciler(registry *NodeRegistry, propsDiffer *PropsDiffer, simCache *SimilarityCache, effects *EffectList, renderer TreeRenderer) *Reconciler {
	return &Reconciler{
		registry:       registry,
		propsDiffer:    propsDiffer,
		simCache:       simCache,
		effects:        effects,
		renderer:       renderer,
		diagnostics:    GetDefaultDiagnostics(),
		customHandlers: make(map[string]ReconcileHandler),
	}
}

// SetDiagnostics overrides the sink used for E3/E6 reporting.
func (r *Reconciler) SetDiagnostics(d Diagnostics) { r.diagnostics = d }

// SetStructuralShock installs the predicate R3 consults.
func (r *Reconciler) SetStructuralShock(f func() bool) { r.structuralShock = f }

// RegisterHandler installs a custom reconciliation handler for runtime_type
// (R2).
func (r *Reconciler) RegisterHandler(runtimeType string, handler ReconcileHandler) {
	r.customHandlers[runtimeType] = handler
}

// Reconcile runs R1-R8 against (old, new).
func (r *Reconciler) Reconcile(old, new Node) error {
	// R1: fast-path identity.
	if old != nil && new != nil && identityOf(old) != 0 && identityOf(old) == identityOf(new) {
		transferViewIDs(old, new)
		return nil
	}

	// R2: custom handler.
	if handler, ok := r.customHandlers[new.RuntimeType()]; ok {
		if handled, err := handler(old, new); handled {
			return err
		}
	}

	// R3: structural shock short-circuit.
	if r.structuralShock != nil && r.structuralShock() {
		r.renderer.Replace(old, new)
		return nil
	}

	// R4: kind dispatch.
	if old.Kind() != new.Kind() || old.RuntimeType() != new.RuntimeType() {
		r.renderer.Replace(old, new)
		return nil
	}

	// R5: key rule.
	if oldKey, ok := old.Key(); ok {
		if newKey, ok2 := new.Key(); ok2 && oldKey != newKey {
			r.renderer.Replace(old, new)
			return nil
		}
	}

	switch old.Kind() {
	case KindElement:
		return r.reconcileElement(old.(*ElementNode), new.(*ElementNode))
	case KindStatefulComponent:
		return r.reconcileStateful(old.(*StatefulComponent), new.(*StatefulComponent))
	case KindStatelessComponent:
		return r.reconcileStateless(old.(*StatelessComponent), new.(*StatelessComponent))
	case KindFragment:
		return r.reconcileFragment(old.(*FragmentNode), new.(*FragmentNode))
	case KindEmpty:
		return nil
	default:
		r.renderer.Replace(old, new)
		return nil
	}
}

// reconcileElement is R6.
func (r *Reconciler) reconcileElement(old, new *ElementNode) error {
	propsSim := NonFunctionPropsSimilarity(old.Props, new.Props)
	if propsSim < propsSimilarityThreshold {
		r.renderer.Replace(old, new)
		return nil
	}
	structSim := StructuralSimilarity(r.simCache, old, new)
	if structSim < structuralSimilarityThreshold {
		r.renderer.Replace(old, new)
		return nil
	}

	viewID := old.ViewID()
	new.SetViewID(viewID)
	if prior, had := r.registry.Bind(viewID, new); had && prior != old && prior != nil {
		if r.diagnostics != nil {
			r.diagnostics.Logf(LevelError, "registry corruption at view %d: expected %p, found %p", viewID, old, prior)
		}
	}

	patch := r.propsDiffer.Diff(old.Props, new.Props)
	if len(patch) > 0 {
		r.effects.Append(&Effect{Kind: EffectUpdateView, ViewID: viewID, Props: patch})
	}

	add, remove := eventListenerChurn(old.Props, new.Props)
	if len(remove) > 0 {
		r.effects.Append(&Effect{Kind: EffectRemoveListeners, ViewID: viewID, EventTypes: remove})
	}
	if len(add) > 0 {
		r.effects.Append(&Effect{Kind: EffectAddListeners, ViewID: viewID, EventTypes: add})
	}

	linkChildren(new, new.Children)
	return r.reconcileChildren(viewID, old.Children, new.Children)
}

// eventListenerChurn computes the add/remove sets for R6: a type present
// in both old and new but whose handler identity changed is removed and
// re-added for clean state, on top of the plain presence-based diff.
func eventListenerChurn(oldProps, newProps map[string]any) (add, remove []string) {
	oldTypes := eventTypesOf(oldProps)
	newTypes := eventTypesOf(newProps)

	for t, newHandler := range newTypes {
		oldHandler, existed := oldTypes[t]
		if !existed {
			add = append(add, t)
			continue
		}
		if !oldHandler.Same(newHandler) {
			add = append(add, t)
			remove = append(remove, t)
		}
	}
	for t := range oldTypes {
		if _, stillPresent := newTypes[t]; !stillPresent {
			remove = append(remove, t)
		}
	}
	return add, remove
}

// reconcileStateful is R7 for StatefulComponent.
func (r *Reconciler) reconcileStateful(old, new *StatefulComponent) error {
	new.contentView = old.contentView
	new.mounted = old.mounted
	new.ScheduleUpdate = old.ScheduleUpdate

	oldRendered := old.RenderedNode()
	newRendered := new.RenderedNode()
	if newRendered == nil || oldRendered == nil {
		return nil
	}
	newRendered.SetParent(new)

	if err := r.Reconcile(oldRendered, newRendered); err != nil {
		return err
	}

	return r.reverifyComponentBinding(new, newRendered)
}

// reconcileStateless is R7 for StatelessComponent.
func (r *Reconciler) reconcileStateless(old, new *StatelessComponent) error {
	new.contentView = old.contentView
	new.mounted = old.mounted

	oldRendered := old.RenderedNode()
	newRendered := new.RenderedNode()
	if newRendered == nil || oldRendered == nil {
		return nil
	}
	newRendered.SetParent(new)

	if err := r.Reconcile(oldRendered, newRendered); err != nil {
		return err
	}

	return r.reverifyComponentBinding(new, newRendered)
}

// reverifyComponentBinding is R7's post-recursion step: the registry
// mapping for the rendered element's view-id may have been overwritten by
// descendant reconciliation (e.g. a Fragment replacement further down);
// restore it if so, surfacing E6 through diagnostics.
func (r *Reconciler) reverifyComponentBinding(owner Node, rendered Node) error {
	el, ok := rendered.(*ElementNode)
	if !ok {
		return nil
	}
	viewID := el.ViewID()
	if viewID == NoViewID {
		return nil
	}
	bound, ok := r.registry.Lookup(viewID)
	if ok && bound == el {
		return nil
	}
	prior, _ := r.registry.Bind(viewID, el)
	if r.diagnostics != nil {
		r.diagnostics.Logf(LevelError, "registry corruption at view %d for component %q: expected %p, found %p; restored", viewID, owner.RuntimeType(), el, prior)
	}
	return nil
}

// reconcileFragment is R8.
func (r *Reconciler) reconcileFragment(old, new *FragmentNode) error {
	new.ChildViewIDs = old.ChildViewIDs
	new.mounted = old.mounted

	parentViewID := FindParentViewID(old)
	linkChildren(new, new.Children)
	return r.reconcileChildren(parentViewID, old.Children, new.Children)
}

// transferViewIDs copies view-id bookkeeping from old to new for R1's
// same-instance fast path.
func transferViewIDs(old, new Node) {
	if oe, ok := old.(*ElementNode); ok {
		if ne, ok2 := new.(*ElementNode); ok2 {
			ne.SetViewID(oe.ViewID())
		}
	}
}
