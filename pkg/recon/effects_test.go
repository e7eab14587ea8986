package recon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectList_DrainAppliesPhasesInOrder(t *testing.T) {
	l := NewEffectList()

	var order []string
	l.Append(&Effect{Kind: EffectLifecycle, Lifecycle: func() { order = append(order, "lifecycle") }})
	l.Append(&Effect{Kind: EffectUpdateView})
	l.Append(&Effect{Kind: EffectCreateView})
	l.Append(&Effect{Kind: EffectDeleteView})

	err := l.Drain(func(e *Effect) error {
		switch e.Kind {
		case EffectDeleteView:
			order = append(order, "delete")
		case EffectCreateView:
			order = append(order, "create")
		case EffectUpdateView:
			order = append(order, "update")
		case EffectLifecycle:
			e.Lifecycle()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"delete", "create", "update", "lifecycle"}, order)
	assert.Equal(t, 0, l.Len(), "Drain clears the immediate queues")
}

func TestEffectList_DrainStopsOnFirstError(t *testing.T) {
	l := NewEffectList()
	l.Append(&Effect{Kind: EffectDeleteView, ViewID: 1})
	l.Append(&Effect{Kind: EffectDeleteView, ViewID: 2})

	calls := 0
	err := l.Drain(func(e *Effect) error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "Drain must stop applying once an effect fails")
}

func TestEffectList_CancelSkipsEffectOnDrain(t *testing.T) {
	l := NewEffectList()
	l.Append(&Effect{Kind: EffectUpdateView, ViewID: 1, BatchID: "b1"})
	l.Cancel("b1")

	applied := false
	err := l.Drain(func(e *Effect) error { applied = true; return nil })
	require.NoError(t, err)
	assert.False(t, applied, "a cancelled effect must be skipped")
}

func TestEffectList_DeferredEffectsRunOnlyOnDrainDeferred(t *testing.T) {
	l := NewEffectList()
	l.Append(&Effect{Kind: EffectUpdateView})
	l.Defer(&Effect{Kind: EffectAttachView, ViewID: 5})

	var immediate, deferred []ViewID
	require.NoError(t, l.Drain(func(e *Effect) error { immediate = append(immediate, e.ViewID); return nil }))
	assert.Equal(t, []ViewID{0}, immediate)

	require.NoError(t, l.DrainDeferred(func(e *Effect) error { deferred = append(deferred, e.ViewID); return nil }))
	assert.Equal(t, []ViewID{5}, deferred)
}

func TestEffectList_FlushDeletionsAppliesOnlyDeletionsImmediately(t *testing.T) {
	l := NewEffectList()
	l.Append(&Effect{Kind: EffectDeleteView, ViewID: 1})
	l.Append(&Effect{Kind: EffectCreateView, ViewID: 2})

	var order []string
	err := l.FlushDeletions(func(e *Effect) error {
		order = append(order, "delete")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"delete"}, order, "FlushDeletions must not touch the placements bucket")
	assert.Equal(t, 1, l.Len(), "the create_view effect is still queued for the ordinary Drain")

	require.NoError(t, l.Drain(func(e *Effect) error {
		order = append(order, "create")
		return nil
	}))
	assert.Equal(t, []string{"delete", "create"}, order)
}

func TestEffectList_FlushDeletionsSkipsCancelled(t *testing.T) {
	l := NewEffectList()
	l.Append(&Effect{Kind: EffectDeleteView, ViewID: 1, BatchID: "b1"})
	l.Cancel("b1")

	applied := false
	err := l.FlushDeletions(func(e *Effect) error { applied = true; return nil })
	require.NoError(t, err)
	assert.False(t, applied, "a cancelled deletion must be skipped by FlushDeletions too")
}

func TestEffectList_LenCountsAcrossPhases(t *testing.T) {
	l := NewEffectList()
	assert.Equal(t, 0, l.Len())
	l.Append(&Effect{Kind: EffectDeleteView})
	l.Append(&Effect{Kind: EffectUpdateView})
	assert.Equal(t, 2, l.Len())
}
