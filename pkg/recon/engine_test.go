package recon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_MountFresh_IssuesBridgeCallsInOrder(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())

	root := NewElement("Box", map[string]any{"x": 1}, NewElement("Text", map[string]any{"t": "hi"}))
	err := e.Mount(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"begin_batch",
		"create_view", "attach_view",
		"create_view", "attach_view",
		"set_children",
		"commit_batch",
	}, bridge.Names())

	snap := e.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "Box", snap.RuntimeType)
	require.Len(t, snap.Children, 1)
	assert.Equal(t, "Text", snap.Children[0].RuntimeType)
}

func TestEngine_Mount_OrdinaryRemountPatchesInPlace(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())

	require.NoError(t, e.Mount(context.Background(), NewElement("Box", map[string]any{"id": "box", "x": 1})))
	bridge.Ops = nil

	require.NoError(t, e.Mount(context.Background(), NewElement("Box", map[string]any{"id": "box", "x": 2})))

	names := bridge.Names()
	assert.NotContains(t, names, "create_view", "a similar root patches in place instead of remounting")
	assert.Contains(t, names, "update_view")
	assert.Equal(t, "commit_batch", names[len(names)-1])
}

func TestEngine_Mount_StructuralShockRemountsFromScratch(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())

	require.NoError(t, e.Mount(context.Background(), NewElement("Box", map[string]any{"x": 1})))
	bridge.Ops = nil

	require.NoError(t, e.Mount(context.Background(), NewElement("Panel", map[string]any{"y": 2})))

	names := bridge.Names()
	assert.Contains(t, names, "delete_view")
	assert.Contains(t, names, "create_view")

	snap := e.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "Panel", snap.RuntimeType)
}

func TestEngine_ScheduleUpdate_RerendersComponentAsynchronously(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, fastTestConfig())

	n := 1
	sc := NewStatefulComponent("c1", "Counter", func() Node {
		return NewElement("Text", map[string]any{"n": n})
	})

	require.NoError(t, e.Mount(context.Background(), sc))
	bridge.Ops = nil

	n = 2
	e.ScheduleUpdate("c1", PriorityImmediate)

	require.Eventually(t, func() bool {
		for _, op := range bridge.Ops {
			if op.Name == "update_view" {
				return op.Props["n"] == 2
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEngine_ForceFullRerender_SchedulesEveryComponent(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, fastTestConfig())

	renders := 0
	sc := NewStatefulComponent("c1", "Counter", func() Node {
		renders++
		return NewElement("Text", map[string]any{"n": renders})
	})

	require.NoError(t, e.Mount(context.Background(), sc))
	assert.Equal(t, 1, renders)

	e.ForceFullRerender()

	require.Eventually(t, func() bool {
		return renders >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEngine_RunBatch_RenderCycleGuardCancelsBatch(t *testing.T) {
	bridge := NewRecordingBridge()
	rd := &RecordingDiagnostics{}
	e := NewEngine(bridge, DefaultConfig(), WithDiagnostics(rd))

	sc := NewStatefulComponent("guard1", "Looper", func() Node {
		return NewElement("Text", nil)
	})
	require.NoError(t, e.Mount(context.Background(), sc))
	bridge.Ops = nil

	ids := make([]string, 0, e.guardLimit()+1)
	for i := 0; i <= e.guardLimit(); i++ {
		ids = append(ids, "guard1")
	}

	e.runBatch(ids)

	names := bridge.Names()
	assert.Contains(t, names, "cancel_batch")
	assert.NotContains(t, names, "commit_batch")

	foundCancelLog := false
	for _, entry := range rd.Entries {
		if entry.Level == LevelError {
			foundCancelLog = true
		}
	}
	assert.True(t, foundCancelLog, "batch cancellation must be logged at error level")
}

func TestEngine_InvokeRender_ReentrantCallPanicsAsInfiniteRender(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())

	owner := NewStatefulComponent("re1", "Reentrant", nil)

	var renderOnce RenderFunc
	renderOnce = func() Node {
		e.invokeRender(owner, renderOnce)
		return NewElement("Box", nil)
	}

	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "the reentrant call must panic")
			ierr, ok := r.(*InfiniteRenderError)
			require.True(t, ok, "expected *InfiniteRenderError, got %T", r)
			assert.True(t, ierr.Reentrant)
		}()
		e.invokeRender(owner, renderOnce)
	}()

	assert.Empty(t, e.renderInFlight, "the in-flight marker must be cleared once the stack unwinds")
}

type boundaryComponent struct {
	StatefulComponent
	caught *RenderThrewError
}

func (b *boundaryComponent) HandleRenderError(err *RenderThrewError) { b.caught = err }

func TestEngine_InvokeRender_PanicCaughtByErrorBoundary(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())

	boundary := &boundaryComponent{StatefulComponent: *NewStatefulComponent("b1", "Boundary", nil)}
	owner := NewElement("Broken", nil)
	owner.SetParent(boundary)

	result := e.invokeRender(owner, func() Node { panic("boom") })

	require.NotNil(t, boundary.caught)
	assert.Equal(t, "boom", boundary.caught.PanicValue)
	_, isEmpty := result.(*EmptyNode)
	assert.True(t, isEmpty, "a caught render panic yields an Empty placeholder")
}

func TestEngine_InvokeRender_PanicWithoutBoundaryPropagates(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())

	owner := NewElement("Broken", nil)

	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			rerr, ok := r.(*RenderThrewError)
			require.True(t, ok, "expected *RenderThrewError, got %T", r)
			assert.Equal(t, "boom", rerr.PanicValue)
		}()
		e.invokeRender(owner, func() Node { panic("boom") })
	}()
}

func TestEngine_Shutdown_RejectsFurtherMounts(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())

	require.NoError(t, e.Mount(context.Background(), NewElement("Box", nil)))
	e.Shutdown()

	err := e.Mount(context.Background(), NewElement("Box", nil))
	assert.Error(t, err)
}

func TestEngine_Snapshot_NilBeforeMount(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())
	assert.Nil(t, e.Snapshot())
}
