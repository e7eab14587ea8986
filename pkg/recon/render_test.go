package recon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_CreateViewWithRetry_FailedChildAbandonsSubtreeOnly(t *testing.T) {
	bridge := NewRecordingBridge()
	rd := &RecordingDiagnostics{}
	cfg := DefaultConfig()
	cfg.BridgeRetryAttempts = 1
	cfg.BridgeRetryBaseDelay = time.Millisecond
	e := NewEngine(bridge, cfg, WithDiagnostics(rd))

	bridge.FailCreateView = 2 // the child's about-to-be-allocated view-id

	root := NewElement("Box", nil, NewElement("Text", nil))
	err := e.Mount(context.Background(), root)
	require.NoError(t, err, "a failed child subtree must not fail the whole mount (E1)")

	assert.Equal(t, []string{"begin_batch", "create_view", "attach_view", "create_view_failed", "commit_batch"}, bridge.Names())

	foundErrorLog := false
	for _, entry := range rd.Entries {
		if entry.Level == LevelError {
			foundErrorLog = true
		}
	}
	assert.True(t, foundErrorLog, "an exhausted create_view retry must log at error level")
}

func TestEngine_Dispose_UnbindsAndQueuesDeleteView(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())

	root := NewElement("Box", nil, NewElement("Text", nil))
	require.NoError(t, e.Mount(context.Background(), root))

	box := e.root.(*ElementNode)
	child := box.Children[0].(*ElementNode)
	childViewID := child.ViewID()

	e.Dispose(child)

	_, bound := e.registry.Lookup(childViewID)
	assert.False(t, bound, "Dispose must unbind the view-id immediately")
	assert.Equal(t, 1, e.effects.Len(), "Dispose queues a delete_view effect rather than issuing it directly")
}

func TestEngine_Replace_ThroughOrdinaryRemount(t *testing.T) {
	bridge := NewRecordingBridge()
	e := NewEngine(bridge, DefaultConfig())

	root1 := NewElement("Box", nil,
		NewElement("Text", map[string]any{"id": "a"}),
		NewElement("Text", map[string]any{"id": "b"}))
	require.NoError(t, e.Mount(context.Background(), root1))

	bridge.Ops = nil
	root2 := NewElement("Box", nil,
		NewElement("Button", map[string]any{"id": "a"}),
		NewElement("Text", map[string]any{"id": "b"}))
	require.NoError(t, e.Mount(context.Background(), root2))

	assert.Equal(t, []string{
		"begin_batch",
		"delete_view",
		"create_view", "attach_view",
		"set_children",
		"commit_batch",
	}, bridge.Names())

	snap := e.Snapshot()
	require.Len(t, snap.Children, 2)
	assert.Equal(t, "Button", snap.Children[0].RuntimeType)
	assert.Equal(t, "Text", snap.Children[1].RuntimeType)
}
