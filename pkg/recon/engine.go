package recon

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// ErrorBoundary is the capability an ancestor component implements to catch
// E2 (§7): render() panics walk up the parent chain looking for the nearest
// node satisfying this interface before the error is allowed to escape the
// batch.
type ErrorBoundary interface {
	HandleRenderError(err *RenderThrewError)
}

// Engine is the facade (§4.7, §6.2): it owns the committed tree and drives
// mount/update/commit cycles, wiring the NodeRegistry, PropsDiffer,
// SimilarityCache, EffectList, Reconciler, UpdateScheduler and EventRouter
// together against one BridgeClient.
type Engine struct {
	mu sync.Mutex

	cfg         Config
	registry    *NodeRegistry
	propsDiffer *PropsDiffer
	simCache    *SimilarityCache
	effects     *EffectList
	reconciler  *Reconciler
	scheduler   *UpdateScheduler
	events      *EventRouter
	bridge      BridgeClient
	diagnostics Diagnostics
	metrics     *Metrics
	worker      *OffloadPool
	sentry      *SentryReporter

	root Node

	// components maps instance_id -> the StatefulComponent node currently
	// mounted under that id, the lookup table schedule_update/
	// update_component_by_id use (§4.8 step 1).
	components map[string]Node

	// renderCounts is the render-cycle guard's per-component-id counter,
	// reset at the start of every batch (§4.7).
	renderCounts map[string]int

	// renderInFlight is the re-entry guard (§4.7): the set of component
	// nodes (by pointer identity) whose render() is currently executing.
	// A component reachable from its own render() call, directly or
	// through a synchronous child render, is an E4 Reentrant error rather
	// than a slow climb through the renderCounts limit.
	renderInFlight map[uintptr]bool

	structuralShock bool

	skipWorkerThisReconciliation bool

	// currentCtx is valid only while a batch is executing; render_to_native
	// and the TreeRenderer methods read it instead of taking a ctx parameter
	// because the interface Reconciler calls through (TreeRenderer) has none
	// — the engine's single-task cooperative model (§5) means exactly one
	// batch, and therefore one ctx, is ever live at a time.
	currentCtx context.Context

	shutdown bool
}

// EngineOption configures optional subsystems on NewEngine.
type EngineOption func(*Engine)

// WithMetrics attaches a prometheus-backed Metrics instance.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithSentryReporter attaches a SentryReporter for E2/E4 that escape every
// ErrorBoundary.
func WithSentryReporter(r *SentryReporter) EngineOption {
	return func(e *Engine) { e.sentry = r }
}

// WithWorkerPool attaches an OffloadPool, enabling the worker-offload path
// (§5) for large, non-initial-render diffs.
func WithWorkerPool(p *OffloadPool) EngineOption {
	return func(e *Engine) { e.worker = p }
}

// WithDiagnostics overrides the diagnostics sink every subsystem logs
// through.
func WithDiagnostics(d Diagnostics) EngineOption {
	return func(e *Engine) { e.diagnostics = d }
}

// NewEngine wires every subsystem against bridge and cfg.
func NewEngine(bridge BridgeClient, cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:            cfg,
		registry:       NewNodeRegistry(),
		propsDiffer:    NewPropsDiffer(),
		simCache:       NewSimilarityCacheWithCapacity(cfg.SimilarityCacheCapacity),
		effects:        NewEffectList(),
		events:         NewEventRouter(),
		bridge:         bridge,
		diagnostics:    GetDefaultDiagnostics(),
		components:     make(map[string]Node),
		renderCounts:   make(map[string]int),
		renderInFlight: make(map[uintptr]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics != nil {
		e.simCache.SetMetricsHooks(e.metrics.SimilarityHits.Inc, e.metrics.SimilarityMiss.Inc)
	}
	e.reconciler = NewReconciler(e.registry, e.propsDiffer, e.simCache, e.effects, e)
	e.reconciler.SetDiagnostics(e.diagnostics)
	e.reconciler.SetStructuralShock(func() bool { return e.structuralShock })
	e.scheduler = NewUpdateScheduler(cfg, e.runBatch)
	e.scheduler.SetDiagnostics(e.diagnostics)
	return e
}

// Mount creates the initial tree, or — if a root is already committed —
// reconciles against it, applying structural-shock handling when the new
// root is too dissimilar from the committed one (§4.7, §6.2).
func (e *Engine) Mount(ctx context.Context, root Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown {
		return fmt.Errorf("recon: engine is shut down")
	}

	if e.root == nil {
		return e.mountFresh(ctx, root)
	}
	if e.rootTriggersStructuralShock(root) {
		return e.remountWithStructuralShock(ctx, root)
	}
	return e.remountOrdinary(ctx, root)
}

func (e *Engine) mountFresh(ctx context.Context, root Node) error {
	e.currentCtx = ctx
	defer func() { e.currentCtx = nil }()

	if err := e.bridge.BeginBatch(ctx); err != nil {
		return err
	}
	root.SetParent(nil)
	if _, ok := e.renderToNative(root, RootViewID, 0); !ok {
		_ = e.bridge.CancelBatch(ctx)
		return fmt.Errorf("recon: initial mount failed to render root")
	}
	if err := e.effects.Drain(e.applyEffect); err != nil {
		_ = e.bridge.CancelBatch(ctx)
		return err
	}
	if err := e.bridge.CommitBatch(ctx); err != nil {
		return err
	}
	e.root = root
	_ = e.effects.DrainDeferred(e.applyEffect)
	return nil
}

func (e *Engine) remountOrdinary(ctx context.Context, root Node) error {
	e.currentCtx = ctx
	defer func() { e.currentCtx = nil }()

	old := e.root
	root.SetParent(nil)
	if err := e.bridge.BeginBatch(ctx); err != nil {
		return err
	}
	if err := e.reconciler.Reconcile(old, root); err != nil {
		_ = e.bridge.CancelBatch(ctx)
		return err
	}
	if err := e.effects.Drain(e.applyEffect); err != nil {
		_ = e.bridge.CancelBatch(ctx)
		return err
	}
	if err := e.bridge.CommitBatch(ctx); err != nil {
		return err
	}
	e.root = root
	_ = e.effects.DrainDeferred(e.applyEffect)
	return nil
}

// rootTriggersStructuralShock decides the §4.7 structural-shock predicate
// for a root swap: different runtime type, or an Element-resolved subtree
// whose structural or props similarity falls below threshold.
func (e *Engine) rootTriggersStructuralShock(newRoot Node) bool {
	old := e.root
	if old.Kind() != newRoot.Kind() || old.RuntimeType() != newRoot.RuntimeType() {
		return true
	}
	oldEl, oldOK := resolveElement(old)
	newEl, newOK := resolveElement(newRoot)
	if !oldOK || !newOK {
		return false
	}
	if oldEl.TypeName != newEl.TypeName {
		return true
	}
	if NonFunctionPropsSimilarity(oldEl.Props, newEl.Props) < propsSimilarityThreshold {
		return true
	}
	if StructuralSimilarity(e.simCache, oldEl, newEl) < structuralSimilarityThreshold {
		return true
	}
	return false
}

// resolveElement walks down through nested Component rendered_nodes to the
// first Element, mirroring resolveElementViewID but returning the node.
func resolveElement(n Node) (*ElementNode, bool) {
	for {
		if el, ok := n.(*ElementNode); ok {
			return el, true
		}
		rend, ok := asRenderer(n)
		if !ok {
			return nil, false
		}
		rendered := rend.RenderedNode()
		if rendered == nil {
			return nil, false
		}
		n = rendered
	}
}

// remountWithStructuralShock implements §4.7's structural-shock recovery:
// every tracking map is disposed and the new root is rendered from scratch.
func (e *Engine) remountWithStructuralShock(ctx context.Context, newRoot Node) error {
	e.structuralShock = true
	defer func() { e.structuralShock = false }()

	e.currentCtx = ctx
	defer func() { e.currentCtx = nil }()

	if err := e.bridge.BeginBatch(ctx); err != nil {
		return err
	}

	for vid := range e.registry.Snapshot() {
		if err := e.bridge.DeleteView(ctx, vid); err != nil {
			e.diagnostics.Logf(LevelWarn, "structural shock: delete_view(%d) failed: %v", vid, err)
		}
	}

	e.registry.Clear()
	e.scheduler.CancelAll()
	e.events = NewEventRouter()
	e.components = make(map[string]Node)
	e.renderCounts = make(map[string]int)
	e.simCache = NewSimilarityCacheWithCapacity(e.cfg.SimilarityCacheCapacity)
	if e.metrics != nil {
		e.simCache.SetMetricsHooks(e.metrics.SimilarityHits.Inc, e.metrics.SimilarityMiss.Inc)
	}
	e.effects = NewEffectList()
	e.reconciler = NewReconciler(e.registry, e.propsDiffer, e.simCache, e.effects, e)
	e.reconciler.SetDiagnostics(e.diagnostics)
	e.reconciler.SetStructuralShock(func() bool { return e.structuralShock })

	newRoot.SetParent(nil)
	if _, ok := e.renderToNative(newRoot, RootViewID, 0); !ok {
		_ = e.bridge.CancelBatch(ctx)
		return fmt.Errorf("recon: structural shock remount failed to render new root")
	}
	if err := e.effects.Drain(e.applyEffect); err != nil {
		_ = e.bridge.CancelBatch(ctx)
		return err
	}
	if err := e.bridge.CommitBatch(ctx); err != nil {
		return err
	}
	e.root = newRoot
	_ = e.effects.DrainDeferred(e.applyEffect)
	return nil
}

// ScheduleUpdate is schedule_update(component) (§6.2): the entry point for
// state changes. It may be called from any goroutine; the scheduler itself
// serializes arrivals behind its own mutex.
func (e *Engine) ScheduleUpdate(instanceID string, priority Priority) {
	e.scheduler.Schedule(instanceID, priority)
}

// DispatchEvent is dispatch_event(view_id, type, data) (§6.2): the host
// calls this when a native event occurs.
func (e *Engine) DispatchEvent(viewID ViewID, eventType string, data map[string]any) {
	e.events.Dispatch(viewID, eventType, data)
}

// ForceFullRerender schedules every registered stateful component, used for
// hot reload (§6.2).
func (e *Engine) ForceFullRerender() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.components))
	for id := range e.components {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	for _, id := range ids {
		e.scheduler.Schedule(id, PriorityHigh)
	}
}

// Snapshot returns a function-free copy of the currently committed tree, for
// introspection (devtools) callers that must not alias live render closures.
// Returns nil if nothing has been mounted yet.
func (e *Engine) Snapshot() *SerializedNode {
	e.mu.Lock()
	root := e.root
	e.mu.Unlock()
	if root == nil {
		return nil
	}
	return serialize(root)
}

// Shutdown cancels pending work, disposes the worker pool, and clears state
// (§6.2).
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduler.CancelAll()
	e.shutdown = true
	if e.worker != nil {
		e.worker.Close()
	}
	e.registry.Clear()
	e.components = make(map[string]Node)
	e.renderCounts = make(map[string]int)
}

// runBatch is the UpdateScheduler's onFire callback: the §4.7 commit cycle.
func (e *Engine) runBatch(ids []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown {
		return
	}

	ctx := context.Background()
	e.currentCtx = ctx
	defer func() { e.currentCtx = nil }()

	e.renderCounts = make(map[string]int)
	e.skipWorkerThisReconciliation = false

	if err := e.bridge.BeginBatch(ctx); err != nil {
		e.diagnostics.Logf(LevelError, "begin_batch failed: %v", err)
		return
	}

	batchErr := e.runBatchBody(ctx, ids)

	if batchErr != nil {
		e.reportEscapedError(batchErr)
		_ = e.effects.Drain(func(*Effect) error { return nil })
		_ = e.bridge.CancelBatch(ctx)
		e.diagnostics.Logf(LevelError, "batch cancelled: %v", batchErr)
		return
	}

	if err := e.effects.Drain(e.applyEffect); err != nil {
		_ = e.bridge.CancelBatch(ctx)
		e.diagnostics.Logf(LevelError, "batch cancelled applying effects: %v", err)
		return
	}

	if err := e.bridge.CommitBatch(ctx); err != nil {
		e.diagnostics.Logf(LevelError, "commit_batch failed: %v", err)
		return
	}

	_ = e.effects.DrainDeferred(e.applyEffect)
	e.verifyRegistryIntegrity()
}

func (e *Engine) runBatchBody(ctx context.Context, ids []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case *RenderThrewError:
				err = v
			case *InfiniteRenderError:
				err = v
			default:
				err = fmt.Errorf("recon: panic during batch: %v", r)
			}
		}
	}()
	for _, id := range ids {
		if uerr := e.updateComponentByID(ctx, id); uerr != nil {
			return uerr
		}
	}
	return nil
}

func (e *Engine) reportEscapedError(err error) {
	if e.sentry == nil {
		return
	}
	switch v := err.(type) {
	case *RenderThrewError:
		e.sentry.ReportRenderThrew(v)
	case *InfiniteRenderError:
		e.sentry.ReportInfiniteRender(v)
	}
}

// verifyRegistryIntegrity is E6's post-commit check: every mounted
// component's content view-id must still resolve to itself in the
// registry. Reconciler.reverifyComponentBinding already runs this per
// component during reconciliation; this sweep is the batch-wide safety net
// named by P2/I1.
func (e *Engine) verifyRegistryIntegrity() {
	for _, node := range e.components {
		sc, ok := node.(*StatefulComponent)
		if !ok {
			continue
		}
		rendered := sc.RenderedNode()
		el, ok := resolveElement(rendered)
		if !ok {
			continue
		}
		viewID := el.ViewID()
		if viewID == NoViewID {
			continue
		}
		bound, ok := e.registry.Lookup(viewID)
		if ok && bound == el {
			continue
		}
		prior, _ := e.registry.Bind(viewID, el)
		e.diagnostics.Logf(LevelError, "registry corruption at view %d for component %q: restored", viewID, sc.TypeName)
		e.metrics.RecordFailure("E6")
		_ = prior
	}
}

// updateComponentByID is §4.8.
func (e *Engine) updateComponentByID(ctx context.Context, id string) error {
	node, ok := e.components[id]
	if !ok {
		return nil
	}
	sc, ok := node.(*StatefulComponent)
	if !ok {
		return nil
	}

	e.renderCounts[id]++
	if e.renderCounts[id] > e.guardLimit() {
		e.metrics.RecordFailure("E4")
		return &InfiniteRenderError{ComponentID: id, Count: e.renderCounts[id], Limit: e.guardLimit()}
	}

	oldRendered := sc.RenderedNode()

	if sc.PrepareForRender != nil {
		sc.PrepareForRender()
	}
	sc.SetRenderedNode(nil)
	newRendered := e.invokeRender(sc, sc.Render)
	if newRendered == nil {
		newRendered = &EmptyNode{}
	}
	newRendered.SetParent(sc)

	if oldRendered == nil {
		if _, ok := e.renderToNative(newRendered, FindParentViewID(sc), FindNodeIndexInParent(sc)); !ok {
			return fmt.Errorf("recon: component %q failed to render", id)
		}
	} else if err := e.reconcileSubtree(ctx, oldRendered, newRendered); err != nil {
		return err
	}

	transferViewIDs(oldRendered, newRendered)
	sc.SetRenderedNode(newRendered)
	if el, ok := resolveElement(newRendered); ok {
		sc.SetContentViewID(el.ViewID())
	}

	if sc.OnDidUpdate != nil {
		onDidUpdate := sc.OnDidUpdate
		e.effects.Append(&Effect{Kind: EffectLifecycle, Lifecycle: func() { onDidUpdate(nil) }})
	}

	return nil
}

func (e *Engine) guardLimit() int {
	if e.cfg.RenderCycleGuardLimit > 0 {
		return e.cfg.RenderCycleGuardLimit
	}
	return 100
}

// reconcileSubtree chooses between the in-task Reconciler and the
// worker-offloaded diff path (§5), per SPEC_FULL's resolution that these
// are two distinct call sites rather than a third Reconcile variant.
func (e *Engine) reconcileSubtree(ctx context.Context, old, new Node) error {
	if e.worker != nil && !e.skipWorkerThisReconciliation {
		return e.reconcileOffloaded(ctx, old, new)
	}
	return e.reconciler.Reconcile(old, new)
}

// invokeRender calls render, recovering a panic into E2: the nearest
// ancestor ErrorBoundary handles it and rendering continues with an Empty
// placeholder; with no boundary, the panic re-propagates as a
// *RenderThrewError for runBatchBody's recover to catch and cancel the
// batch with. It also enforces the re-entry guard (§4.7): a component whose
// render() is already executing and gets asked to render again, before the
// first call returns, is an E4 Reentrant error rather than a slow climb
// through the renderCounts limit.
func (e *Engine) invokeRender(owner Node, render RenderFunc) (result Node) {
	key, identifiable := identityKey(owner)
	if identifiable {
		if e.renderInFlight[key] {
			rerr := &InfiniteRenderError{ComponentID: owner.RuntimeType(), Reentrant: true}
			e.metrics.RecordFailure("E4")
			panic(rerr)
		}
		e.renderInFlight[key] = true
		defer delete(e.renderInFlight, key)
	}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*InfiniteRenderError); ok {
				panic(r)
			}
			stack := debug.Stack()
			rerr := &RenderThrewError{ComponentID: owner.RuntimeType(), PanicValue: r, Stack: stack}
			e.metrics.RecordFailure("E2")
			if b := findErrorBoundary(owner); b != nil {
				b.HandleRenderError(rerr)
				result = &EmptyNode{}
				return
			}
			panic(rerr)
		}
	}()
	return render()
}

// identityKey returns a stable pointer identity for owner, used to detect
// render-in-flight re-entry. Non-pointer Node implementations (none exist
// in this package today) fall back to "not identifiable" rather than a
// false positive.
func identityKey(owner Node) (uintptr, bool) {
	v := reflect.ValueOf(owner)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return 0, false
	}
	return v.Pointer(), true
}

func findErrorBoundary(n Node) ErrorBoundary {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if b, ok := cur.(ErrorBoundary); ok {
			return b
		}
	}
	return nil
}

// newInstanceID allocates a fresh component instance id (§3.1).
func newInstanceID() string { return uuid.NewString() }
