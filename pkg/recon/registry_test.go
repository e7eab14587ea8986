package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeRegistry_AllocStartsAtOneAndIncrements(t *testing.T) {
	r := NewNodeRegistry()
	assert.Equal(t, ViewID(1), r.Alloc())
	assert.Equal(t, ViewID(2), r.Alloc())
}

func TestNodeRegistry_BindLookupUnbind(t *testing.T) {
	r := NewNodeRegistry()
	el := NewElement("Box", nil)

	_, hadPrior := r.Bind(1, el)
	assert.False(t, hadPrior)

	got, ok := r.Lookup(1)
	assert.True(t, ok)
	assert.Same(t, el, got)

	r.Unbind(1)
	_, ok = r.Lookup(1)
	assert.False(t, ok)
}

func TestNodeRegistry_BindReportsPriorOnOverwrite(t *testing.T) {
	r := NewNodeRegistry()
	first := NewElement("Box", nil)
	second := NewElement("Panel", nil)

	r.Bind(1, first)
	prior, hadPrior := r.Bind(1, second)
	assert.True(t, hadPrior)
	assert.Same(t, first, prior)
}

func TestNodeRegistry_SnapshotIsDefensiveCopy(t *testing.T) {
	r := NewNodeRegistry()
	r.Bind(1, NewElement("Box", nil))

	snap := r.Snapshot()
	assert.Equal(t, 1, len(snap))

	r.Bind(2, NewElement("Panel", nil))
	assert.Equal(t, 1, len(snap), "snapshot must not see later mutations")
	assert.Equal(t, 2, r.Len())
}

func TestNodeRegistry_ClearDropsEveryBinding(t *testing.T) {
	r := NewNodeRegistry()
	r.Bind(1, NewElement("Box", nil))
	r.Bind(2, NewElement("Panel", nil))
	r.Clear()
	assert.Equal(t, 0, r.Len())
}
