package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropsDifferAddedChangedRemoved(t *testing.T) {
	old := map[string]any{"text": "0", "color": "red"}
	new := map[string]any{"text": "1", "size": 12}

	patch := NewPropsDiffer().Diff(old, new)

	assert.Equal(t, "1", patch["text"])
	assert.Equal(t, 12, patch["size"])
	require := patch["color"]
	assert.Nil(t, require)
	assert.Contains(t, patch, "color")
}

func TestPropsDifferDeepEqualityOnContainers(t *testing.T) {
	old := map[string]any{"tags": []string{"a", "b"}}
	new := map[string]any{"tags": []string{"a", "b"}}

	patch := NewPropsDiffer().Diff(old, new)

	assert.Empty(t, patch, "deep-equal slice values must not be reported as changed")
}

func TestPropsDifferPreservesHandlersAcrossDiffs(t *testing.T) {
	onClick := func() {}
	old := map[string]any{"onClick": NewEventHandler(onClick)}
	new := map[string]any{} // new render omits the handler prop entirely

	patch := NewPropsDiffer().Diff(old, new)

	assert.NotContains(t, patch, "onClick", "handlers must survive reconciliation even when the new render omits them")
}

func TestPropsDifferReplacesHandlerWhenExplicitlyChanged(t *testing.T) {
	a := func() {}
	b := func() {}
	old := map[string]any{"onClick": NewEventHandler(a)}
	new := map[string]any{"onClick": NewEventHandler(b)}

	patch := NewPropsDiffer().Diff(old, new)

	assert.Contains(t, patch, "onClick")
}

func TestPropsDifferInterceptorRunsAfterDefaultDiff(t *testing.T) {
	d := NewPropsDiffer()
	d.RegisterInterceptor(func(old, new map[string]any, patch PropsPatch) {
		patch["__intercepted"] = true
	})

	patch := d.Diff(map[string]any{}, map[string]any{"a": 1})

	assert.Equal(t, 1, patch["a"])
	assert.Equal(t, true, patch["__intercepted"])
}

func TestEventTypeDiff(t *testing.T) {
	click := NewEventHandler(func() {})
	hover := NewEventHandler(func() {})

	old := map[string]any{"onClick": click}
	new := map[string]any{"onClick": click, "onHover": hover}

	add, remove := EventTypeDiff(old, new)

	assert.ElementsMatch(t, []string{"onHover"}, add)
	assert.Empty(t, remove)
}

func TestNonFunctionPropsSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, NonFunctionPropsSimilarity(map[string]any{}, map[string]any{}))
	assert.Equal(t, 0.0, NonFunctionPropsSimilarity(map[string]any{"a": 1}, map[string]any{}))

	a := map[string]any{"a": 1, "b": 2}
	b := map[string]any{"a": 1, "b": 3}
	assert.InDelta(t, 0.5, NonFunctionPropsSimilarity(a, b), 0.0001)
}
