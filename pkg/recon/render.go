package recon

import (
	"context"
	"time"
)

// Render implements TreeRenderer for the Reconciler: it is the entry point
// the diff algorithms call whenever a brand-new subtree needs to be mounted
// (an inserted child, a replaced node's new half). It dispatches to
// render_to_native (§4.9).
func (e *Engine) Render(node Node, parentViewID ViewID, index int) (ViewID, bool) {
	return e.renderToNative(node, parentViewID, index)
}

// renderToNative issues bridge calls directly and synchronously rather than
// queueing through EffectList: §4.9 describes a plain sequential call list
// per node kind, and E1's "abandon the failing subtree, ancestors continue"
// rule needs create_view's success/failure known before deciding whether to
// attach children — a decision EffectList's deferred-apply model cannot make
// at queue time. The Reconciler's own diff path (prop/listener updates,
// keyed-reorder moves, set_children) keeps using EffectList exactly as
// already built; this function only covers fresh mounts.
func (e *Engine) renderToNative(node Node, parentViewID ViewID, index int) (ViewID, bool) {
	switch v := node.(type) {
	case *ElementNode:
		return e.renderElementToNative(v, parentViewID, index)
	case *StatefulComponent:
		return e.renderComponentToNative(v, parentViewID, index)
	case *StatelessComponent:
		return e.renderComponentToNative(v, parentViewID, index)
	case *FragmentNode:
		return e.renderFragmentToNative(v, parentViewID, index)
	case *EmptyNode:
		return NoViewID, false
	default:
		return NoViewID, false
	}
}

func (e *Engine) ctxOrBackground() context.Context {
	if e.currentCtx != nil {
		return e.currentCtx
	}
	return context.Background()
}

// renderElementToNative allocates a fresh view-id, creates the native view,
// attaches it under its parent, recurses into children (flattening any
// Fragment children into the same native parent), wires event listeners,
// and sets the final children list.
func (e *Engine) renderElementToNative(el *ElementNode, parentViewID ViewID, index int) (ViewID, bool) {
	ctx := e.ctxOrBackground()

	viewID := e.registry.Alloc()
	el.SetViewID(viewID)
	e.registry.Bind(viewID, el)

	if !e.createViewWithRetry(ctx, viewID, el.TypeName, el.Props) {
		e.registry.Unbind(viewID)
		el.SetViewID(NoViewID)
		return NoViewID, false
	}

	if err := e.bridge.AttachView(ctx, viewID, parentViewID, index); err != nil {
		e.diagnostics.Logf(LevelWarn, "attach_view(%d -> %d@%d) failed: %v", viewID, parentViewID, index, err)
	}

	linkChildren(el, el.Children)
	childIDs := e.renderChildrenToNative(el.Children, viewID, 0)
	if len(childIDs) > 0 {
		if err := e.bridge.SetChildren(ctx, viewID, childIDs); err != nil {
			e.diagnostics.Logf(LevelWarn, "set_children(%d) failed: %v", viewID, err)
		}
	}

	e.attachElementListeners(ctx, el, viewID)

	return viewID, true
}

// renderChildrenToNative renders children in order, flattening Fragment
// children into parentViewID's own native child list so set_children
// receives every real view-id in document order (§4.9's Fragment bullet:
// "a transparent container, contributes its children's view-ids to its
// parent").
func (e *Engine) renderChildrenToNative(children []Node, parentViewID ViewID, startIndex int) []ViewID {
	var ids []ViewID
	idx := startIndex
	for _, c := range children {
		if frag, ok := c.(*FragmentNode); ok {
			linkChildren(frag, frag.Children)
			sub := e.renderChildrenToNative(frag.Children, parentViewID, idx)
			frag.ChildViewIDs = sub
			frag.SetMounted(true)
			ids = append(ids, sub...)
			idx += len(sub)
			continue
		}
		if cid, ok := e.renderToNative(c, parentViewID, idx); ok {
			ids = append(ids, cid)
			idx++
		}
	}
	return ids
}

// renderFragmentToNative handles the case where render_to_native is called
// directly on a Fragment (a component's render() returned one, or the tree
// root is one): its children mount under the same parentViewID the Fragment
// itself was asked to mount under, and the Fragment never resolves to a
// view-id of its own (I: Fragments are transparent).
func (e *Engine) renderFragmentToNative(f *FragmentNode, parentViewID ViewID, index int) (ViewID, bool) {
	linkChildren(f, f.Children)
	ids := e.renderChildrenToNative(f.Children, parentViewID, index)
	f.ChildViewIDs = ids
	f.SetMounted(true)
	return NoViewID, false
}

// renderComponentToNative invokes render() (with E2 panic recovery), mounts
// the resulting subtree, and records component bookkeeping (§4.9's
// Component bullet: "invoke render(), then render_to_native the result;
// the component's own view-id is its rendered content's view-id", I4).
func (e *Engine) renderComponentToNative(node Node, parentViewID ViewID, index int) (ViewID, bool) {
	rend, ok := asRenderer(node)
	if !ok {
		return NoViewID, false
	}

	rendered := e.invokeRender(node, rend.RenderFunc())
	if rendered == nil {
		rendered = &EmptyNode{}
	}
	rendered.SetParent(node)
	rend.SetRenderedNode(rendered)

	viewID, ok := e.renderToNative(rendered, parentViewID, index)

	switch c := node.(type) {
	case *StatefulComponent:
		c.SetMounted(true)
		c.SetContentViewID(viewID)
		if c.InstanceID != "" {
			e.components[c.InstanceID] = c
		}
		if c.ScheduleUpdate == nil {
			instanceID := c.InstanceID
			c.ScheduleUpdate = func() { e.ScheduleUpdate(instanceID, PriorityNormal) }
		}
		if c.OnDidMount != nil {
			onDidMount := c.OnDidMount
			e.effects.Defer(&Effect{Kind: EffectLifecycle, Lifecycle: onDidMount})
		}
	case *StatelessComponent:
		c.SetMounted(true)
		c.SetContentViewID(viewID)
		if c.OnDidMount != nil {
			onDidMount := c.OnDidMount
			e.effects.Defer(&Effect{Kind: EffectLifecycle, Lifecycle: onDidMount})
		}
	}

	return viewID, ok
}

// attachElementListeners registers every event-handler prop on el's current
// view with both the bridge (which event types to forward) and the
// EventRouter (which Go closure to invoke), matching R6's event-churn
// bookkeeping for the initial-mount case.
func (e *Engine) attachElementListeners(ctx context.Context, el *ElementNode, viewID ViewID) {
	handlers := eventTypesOf(el.Props)
	if len(handlers) == 0 {
		return
	}
	types := make([]string, 0, len(handlers))
	for t := range handlers {
		types = append(types, t)
	}
	if err := e.bridge.AddEventListeners(ctx, viewID, types); err != nil {
		e.diagnostics.Logf(LevelWarn, "add_event_listeners(%d) failed: %v", viewID, err)
	}
	for t, h := range handlers {
		e.events.AddListener(viewID, t, toInvoker(h), DefaultEventListenerOptions())
	}
}

// toInvoker adapts whatever callable shape a host wrapped in an EventHandler
// into the EventRouter's EventHandlerInvoker, accepting both the payload-
// carrying and the no-argument forms component authors tend to write.
func toInvoker(h EventHandler) EventHandlerInvoker {
	switch fn := h.fn.(type) {
	case EventHandlerInvoker:
		return fn
	case func(map[string]any):
		return fn
	case func():
		return func(map[string]any) { fn() }
	default:
		return func(map[string]any) {}
	}
}

// createViewWithRetry applies §7's exponential-backoff retry policy around
// bridge.create_view: up to cfg.BridgeRetryAttempts tries, doubling
// cfg.BridgeRetryBaseDelay between them. Exhausting every attempt is E1; the
// caller abandons this node's subtree and continues with its ancestors.
func (e *Engine) createViewWithRetry(ctx context.Context, viewID ViewID, typeName string, props map[string]any) bool {
	attempts := e.cfg.BridgeRetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	base := e.cfg.BridgeRetryBaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(base * time.Duration(uint(1)<<uint(attempt-1)))
		}
		ok, err := WithCreateViewTimeout(ctx, e.bridge, viewID, typeName, props)
		if err == nil && ok {
			return true
		}
		lastErr = err
		if err == nil {
			lastErr = &BridgeFailureError{ViewID: viewID, Operation: "create_view", Cause: ErrBridgeFailure}
		}
	}
	e.diagnostics.Logf(LevelError, "create_view(%d, %q) failed after %d attempts: %v", viewID, typeName, attempts, lastErr)
	e.metrics.RecordFailure("E1")
	return false
}

// Dispose implements TreeRenderer: it tears down node's own native view (if
// any) and its lifecycle/registry/listener bookkeeping, but does not walk
// into an Element's children (§4.12 step 1) — the bridge's delete_view
// cascades those natively. It does walk through Component/Fragment
// pass-through layers, since those represent the same logical subtree slot
// rather than real native descendants.
func (e *Engine) Dispose(node Node) {
	switch v := node.(type) {
	case *ElementNode:
		viewID := v.ViewID()
		if viewID == NoViewID {
			return
		}
		e.events.RemoveAll(viewID)
		e.registry.Unbind(viewID)
		e.effects.Append(&Effect{Kind: EffectDeleteView, ViewID: viewID})
	case *StatefulComponent:
		if v.OnWillUnmount != nil {
			onWillUnmount := v.OnWillUnmount
			e.effects.Append(&Effect{Kind: EffectLifecycle, Lifecycle: onWillUnmount})
		}
		delete(e.components, v.InstanceID)
		delete(e.renderCounts, v.InstanceID)
		if rendered := v.RenderedNode(); rendered != nil {
			e.Dispose(rendered)
		}
	case *StatelessComponent:
		if v.OnWillUnmount != nil {
			onWillUnmount := v.OnWillUnmount
			e.effects.Append(&Effect{Kind: EffectLifecycle, Lifecycle: onWillUnmount})
		}
		if rendered := v.RenderedNode(); rendered != nil {
			e.Dispose(rendered)
		}
	case *FragmentNode:
		for _, c := range v.Children {
			e.Dispose(c)
		}
	case *EmptyNode:
	}
}

// Replace implements TreeRenderer per §4.12: old is disposed, and its
// delete_view effect is flushed to the bridge immediately — before new's
// create_view can fire — so the host removes the old view from layout
// before the replacement view exists (§4.12 step 5, P10, S3). Dispose only
// queues a delete_view effect into EffectList; renderToNative's create_view
// fires synchronously and bypasses EffectList entirely, so without this
// explicit flush the create would reach the bridge first whenever the
// batch's effects are drained only once at the end of the commit cycle. A
// fresh view-id is always allocated for new — §4.12 step 3's literal "reuse
// old.view_id" text contradicts I5 ("a view-id is never reused") and S3's
// expectation that the registry maps only the new id after a
// same-category replacement, so this always takes the "allocate a new
// view-id" branch.
func (e *Engine) Replace(old, new Node) {
	parentViewID := FindParentViewID(old)
	index := FindNodeIndexInParent(old)

	e.Dispose(old)
	if err := e.effects.FlushDeletions(e.applyEffect); err != nil {
		e.diagnostics.Logf(LevelWarn, "replace: flushing delete_view ahead of create_view failed: %v", err)
	}

	new.SetParent(old.Parent())
	e.renderToNative(new, parentViewID, index)
}

// applyEffect is the EffectList.Drain/DrainDeferred callback: it translates
// one queued Effect into its bridge call (or lifecycle invocation), and —
// for listener effects — keeps the EventRouter's handler bindings in sync
// with whichever ElementNode the registry currently has bound at that
// view-id.
func (e *Engine) applyEffect(eff *Effect) error {
	ctx := e.ctxOrBackground()

	e.metrics.RecordBridgeOp(effectOpName(eff.Kind))

	switch eff.Kind {
	case EffectDeleteView:
		return e.bridge.DeleteView(ctx, eff.ViewID)
	case EffectCreateView:
		_, err := e.bridge.CreateView(ctx, eff.ViewID, eff.TypeName, eff.Props)
		return err
	case EffectAttachView:
		return e.bridge.AttachView(ctx, eff.ViewID, eff.ParentViewID, eff.Index)
	case EffectDetachView:
		return e.bridge.DetachView(ctx, eff.ViewID)
	case EffectSetChildren:
		return e.bridge.SetChildren(ctx, eff.ParentViewID, eff.Children)
	case EffectAddListeners:
		if err := e.bridge.AddEventListeners(ctx, eff.ViewID, eff.EventTypes); err != nil {
			return err
		}
		if el, ok := e.registry.Lookup(eff.ViewID); ok {
			handlers := eventTypesOf(el.Props)
			for _, t := range eff.EventTypes {
				if h, ok := handlers[t]; ok {
					e.events.AddListener(eff.ViewID, t, toInvoker(h), DefaultEventListenerOptions())
				}
			}
		}
		return nil
	case EffectRemoveListeners:
		if err := e.bridge.RemoveEventListeners(ctx, eff.ViewID, eff.EventTypes); err != nil {
			return err
		}
		for _, t := range eff.EventTypes {
			e.events.RemoveListeners(eff.ViewID, t)
		}
		return nil
	case EffectUpdateView:
		_, err := e.bridge.UpdateView(ctx, eff.ViewID, eff.Props)
		return err
	case EffectLifecycle:
		if eff.Lifecycle != nil {
			eff.Lifecycle()
		}
		return nil
	default:
		return nil
	}
}

func effectOpName(kind EffectKind) string {
	switch kind {
	case EffectDeleteView:
		return "delete_view"
	case EffectCreateView:
		return "create_view"
	case EffectAttachView:
		return "attach_view"
	case EffectDetachView:
		return "detach_view"
	case EffectSetChildren:
		return "set_children"
	case EffectAddListeners:
		return "add_event_listeners"
	case EffectRemoveListeners:
		return "remove_event_listeners"
	case EffectUpdateView:
		return "update_view"
	default:
		return "lifecycle"
	}
}
