package recon

import "fmt"

// Sentinel errors for the six error kinds (§7). Kinds are not types in the
// spec's sense, but Go idiom (and the teacher repo's own
// component_errors.go/lifecycle_errors.go) pairs a sentinel with a richer
// struct carrying context, checked via errors.Is/errors.As.
var (
	ErrBridgeFailure     = fmt.Errorf("recon: bridge operation failed")
	ErrRenderThrew       = fmt.Errorf("recon: component render panicked")
	ErrMissingViewID     = fmt.Errorf("recon: child slot missing a view-id after reconciliation")
	ErrInfiniteRender    = fmt.Errorf("recon: render-cycle guard tripped")
	ErrWorkerFailure     = fmt.Errorf("recon: offloaded diff worker failed")
	ErrRegistryCorrupted = fmt.Errorf("recon: registry binding diverged from expected element")
)

// BridgeFailureError is E1: create_view returned false or timed out. The
// failing node's subtree is abandoned; ancestors continue.
type BridgeFailureError struct {
	ViewID    ViewID
	Operation string
	Cause     error
}

func (e *BridgeFailureError) Error() string {
	return fmt.Sprintf("recon: bridge %s failed for view %d: %v", e.Operation, e.ViewID, e.Cause)
}
func (e *BridgeFailureError) Unwrap() error { return ErrBridgeFailure }

// RenderThrewError is E2: a user render() panicked. Carries the recovered
// value and a stack trace for the nearest ErrorBoundary, mirroring the
// teacher's HandlerPanicError shape (pkg/bubbly/component_errors.go).
type RenderThrewError struct {
	ComponentID string
	PanicValue  any
	Stack       []byte
}

func (e *RenderThrewError) Error() string {
	return fmt.Sprintf("recon: component %q render panicked: %v", e.ComponentID, e.PanicValue)
}
func (e *RenderThrewError) Unwrap() error { return ErrRenderThrew }

// MissingViewIDError is E3: a child slot remained unset after
// reconciliation. set_children is skipped for the affected parent so
// surviving siblings are never stranded.
type MissingViewIDError struct {
	ParentViewID ViewID
	SlotIndex    int
}

func (e *MissingViewIDError) Error() string {
	return fmt.Sprintf("recon: child slot %d of parent %d has no view-id; skipping set_children", e.SlotIndex, e.ParentViewID)
}
func (e *MissingViewIDError) Unwrap() error { return ErrMissingViewID }

// InfiniteRenderError is E4. It names the three likely causes the spec
// requires (§4.7, §7), the way the teacher's CommandLoopError names its
// single cause (pkg/bubbly/commands/loop_detection.go).
type InfiniteRenderError struct {
	ComponentID string
	Count       int
	Limit       int
	Reentrant   bool
}

func (e *InfiniteRenderError) Error() string {
	if e.Reentrant {
		return fmt.Sprintf("recon: render re-entered for component %q while already in flight", e.ComponentID)
	}
	return fmt.Sprintf(
		"recon: component %q updated %d times (limit %d) in one batch; likely an invalid style/layout key, a state update inside render, or a circular dependency",
		e.ComponentID, e.Count, e.Limit,
	)
}
func (e *InfiniteRenderError) Unwrap() error { return ErrInfiniteRender }

// WorkerFailureError is E5 as returned by OffloadPool.Diff when the pool has
// been stopped. A "no changes" verdict that the structural-equality
// pre-check contradicts is also E5, but reconcileOffloaded only logs it and
// builds no WorkerFailureError. In both cases the engine falls back in-task
// and disables offload for the remainder of the reconciliation.
type WorkerFailureError struct {
	Cause error
}

func (e *WorkerFailureError) Error() string {
	return fmt.Sprintf("recon: worker-offloaded diff failed, falling back in-task: %v", e.Cause)
}
func (e *WorkerFailureError) Unwrap() error { return ErrWorkerFailure }

// RegistryCorruptionError is E6: a post-commit check found
// nodes_by_view_id[v] != expected_element. The binding is restored and the
// event is logged; it must stay observable to tests.
type RegistryCorruptionError struct {
	ViewID   ViewID
	Expected *ElementNode
	Found    *ElementNode
}

func (e *RegistryCorruptionError) Error() string {
	return fmt.Sprintf("recon: registry corruption at view %d: expected %p, found %p", e.ViewID, e.Expected, e.Found)
}
func (e *RegistryCorruptionError) Unwrap() error { return ErrRegistryCorrupted }
