// Package recon is a virtual-DOM reconciliation engine: it drives a tree of
// host-native views, each identified by an integer view-id, from a tree of
// component descriptions produced by user code.
//
// Given an old tree and a new tree (produced by re-rendering components
// whose state changed), the Reconciler computes the minimal sequence of
// native operations — create, update props, attach/detach, reorder,
// delete — needed to bring the native side into agreement with the new
// tree, then the Engine issues those operations through a BridgeClient.
//
// # Node model
//
// A Node is one of five kinds: Element, StatefulComponent, StatelessComponent,
// Fragment, or Empty (see types.go). Reconciliation dispatches on this kind
// plus the node's runtime type and, for Elements, its type name.
//
// # Subsystems
//
// NodeRegistry (registry.go) owns the view_id -> Element mapping.
// PropsDiffer (props.go) computes prop deltas while preserving event handler
// identity across reconciliation. SimilarityCache (similarity.go) memoizes
// the structural similarity scores the Reconciler's replacement heuristic
// depends on; props similarity is recomputed on each call. Reconciler (reconciler.go) and ChildListReconciler
// (childlist.go) implement the recursive pairwise diff. UpdateScheduler
// (scheduler.go) coalesces many components' schedule_update calls into
// priority-ordered batches. Engine (engine.go) is the facade that drives
// mount/update/commit cycles, structural-shock recovery, and the
// render-cycle guard. EventRouter (events.go) and EffectList (effects.go)
// round out the commit pipeline, and BridgeClient (bridge.go) is the sole
// route to native mutation.
//
// # Concurrency
//
// Engine state is mutated one batch at a time under the Engine's mutex:
// Mount runs on the caller's goroutine, and scheduled batches run on the
// UpdateScheduler's debounce-timer goroutine. ScheduleUpdate may be called
// from any goroutine; it only queues the component id in the scheduler,
// which guards its queue with its own mutex.
package recon
