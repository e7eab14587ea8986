package recon

import (
	"context"
	"sync"
	"time"
)

// EventHandlerFunc is installed once via BridgeClient.SetEventHandler and
// invoked by the host when a native event occurs (§6.1).
type EventHandlerFunc func(viewID ViewID, eventType string, data map[string]any)

// BridgeClient is the sole route to native mutation (§6.1). All operations
// are idempotent on failure; begin/commit/cancel batch pairs nest, and only
// commit makes effects observable (I3).
type BridgeClient interface {
	Initialize(ctx context.Context) (bool, error)
	SetEventHandler(handler EventHandlerFunc)

	BeginBatch(ctx context.Context) error
	CommitBatch(ctx context.Context) error
	CancelBatch(ctx context.Context) error

	CreateView(ctx context.Context, viewID ViewID, typeName string, props map[string]any) (bool, error)
	UpdateView(ctx context.Context, viewID ViewID, changedProps map[string]any) (bool, error)
	DeleteView(ctx context.Context, viewID ViewID) error
	AttachView(ctx context.Context, child, parent ViewID, index int) error
	DetachView(ctx context.Context, child ViewID) error
	SetChildren(ctx context.Context, parent ViewID, children []ViewID) error
	AddEventListeners(ctx context.Context, viewID ViewID, types []string) error
	RemoveEventListeners(ctx context.Context, viewID ViewID, types []string) error
}

// createViewTimeout is the §5 "each bridge.create_view is wrapped with a 5s
// timeout, treated as failure" rule.
const createViewTimeout = 5 * time.Second

// WithCreateViewTimeout wraps a BridgeClient.CreateView call with the
// spec's 5-second timeout, surfacing a BridgeFailureError (E1) on
// expiry instead of blocking the engine task forever.
func WithCreateViewTimeout(ctx context.Context, bridge BridgeClient, viewID ViewID, typeName string, props map[string]any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, createViewTimeout)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := bridge.CreateView(ctx, viewID, typeName, props)
		done <- result{ok, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return false, &BridgeFailureError{ViewID: viewID, Operation: "create_view", Cause: r.err}
		}
		return r.ok, nil
	case <-ctx.Done():
		return false, &BridgeFailureError{ViewID: viewID, Operation: "create_view", Cause: ctx.Err()}
	}
}

// BridgeOp records one call made against a RecordingBridge, in the order it
// was issued, for asserting the effect stream in tests (P4, P10, S1-S6).
type BridgeOp struct {
	Name         string
	ViewID       ViewID
	ParentViewID ViewID
	Index        int
	TypeName     string
	Props        map[string]any
	Children     []ViewID
	EventTypes   []string
}

// RecordingBridge is a BridgeClient that records every call instead of
// talking to a host, used by the engine's own tests and as the reference
// implementation for S1-S6. It never fails unless FailCreateView names a
// view-id to reject, exercising E1.
type RecordingBridge struct {
	mu sync.Mutex

	Ops []BridgeOp

	handler EventHandlerFunc

	batchDepth int

	// FailCreateView, if non-zero, makes CreateView report failure for
	// that specific view-id exactly once.
	FailCreateView ViewID
}

// NewRecordingBridge returns an empty RecordingBridge.
func NewRecordingBridge() *RecordingBridge { return &RecordingBridge{} }

func (b *RecordingBridge) record(op BridgeOp) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Ops = append(b.Ops, op)
}

func (b *RecordingBridge) Initialize(ctx context.Context) (bool, error) { return true, nil }

func (b *RecordingBridge) SetEventHandler(handler EventHandlerFunc) { b.handler = handler }

func (b *RecordingBridge) BeginBatch(ctx context.Context) error {
	b.mu.Lock()
	b.batchDepth++
	b.mu.Unlock()
	b.record(BridgeOp{Name: "begin_batch"})
	return nil
}

func (b *RecordingBridge) CommitBatch(ctx context.Context) error {
	b.mu.Lock()
	b.batchDepth--
	b.mu.Unlock()
	b.record(BridgeOp{Name: "commit_batch"})
	return nil
}

func (b *RecordingBridge) CancelBatch(ctx context.Context) error {
	b.mu.Lock()
	b.batchDepth--
	b.mu.Unlock()
	b.record(BridgeOp{Name: "cancel_batch"})
	return nil
}

func (b *RecordingBridge) CreateView(ctx context.Context, viewID ViewID, typeName string, props map[string]any) (bool, error) {
	if b.FailCreateView != 0 && viewID == b.FailCreateView {
		b.FailCreateView = 0
		b.record(BridgeOp{Name: "create_view_failed", ViewID: viewID, TypeName: typeName, Props: props})
		return false, nil
	}
	b.record(BridgeOp{Name: "create_view", ViewID: viewID, TypeName: typeName, Props: props})
	return true, nil
}

func (b *RecordingBridge) UpdateView(ctx context.Context, viewID ViewID, changedProps map[string]any) (bool, error) {
	b.record(BridgeOp{Name: "update_view", ViewID: viewID, Props: changedProps})
	return true, nil
}

func (b *RecordingBridge) DeleteView(ctx context.Context, viewID ViewID) error {
	b.record(BridgeOp{Name: "delete_view", ViewID: viewID})
	return nil
}

func (b *RecordingBridge) AttachView(ctx context.Context, child, parent ViewID, index int) error {
	b.record(BridgeOp{Name: "attach_view", ViewID: child, ParentViewID: parent, Index: index})
	return nil
}

func (b *RecordingBridge) DetachView(ctx context.Context, child ViewID) error {
	b.record(BridgeOp{Name: "detach_view", ViewID: child})
	return nil
}

func (b *RecordingBridge) SetChildren(ctx context.Context, parent ViewID, children []ViewID) error {
	b.record(BridgeOp{Name: "set_children", ParentViewID: parent, Children: children})
	return nil
}

func (b *RecordingBridge) AddEventListeners(ctx context.Context, viewID ViewID, types []string) error {
	b.record(BridgeOp{Name: "add_event_listeners", ViewID: viewID, EventTypes: types})
	return nil
}

func (b *RecordingBridge) RemoveEventListeners(ctx context.Context, viewID ViewID, types []string) error {
	b.record(BridgeOp{Name: "remove_event_listeners", ViewID: viewID, EventTypes: types})
	return nil
}

// Names returns the op-name stream, for terse test assertions like
// assert.Equal(t, []string{"create_view", "attach_view"}, bridge.Names()).
func (b *RecordingBridge) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.Ops))
	for i, op := range b.Ops {
		names[i] = op.Name
	}
	return names
}
