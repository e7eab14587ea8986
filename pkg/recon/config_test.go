package recon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_MatchesSpecNumbers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.SchedulerQueueCeiling)
	assert.Equal(t, 100, cfg.RenderCycleGuardLimit)
	assert.Equal(t, 20, cfg.WorkerOffloadThreshold)
	assert.Equal(t, 5*time.Second, cfg.CreateViewTimeout)
	assert.Equal(t, 8*time.Millisecond, cfg.BatchCooldown)
	assert.Equal(t, 3, cfg.YieldEveryChildren)
	assert.Equal(t, PriorityTuning{DebounceMS: 0, Weight: 100}, cfg.tuning(PriorityImmediate))
	assert.Equal(t, PriorityTuning{DebounceMS: 120, Weight: 0}, cfg.tuning(PriorityIdle))
}

func TestLoadConfig_EmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesOnlyNamedFields(t *testing.T) {
	yamlDoc := []byte(`
scheduler_queue_ceiling: 25
priorities:
  idle:
    debounce_ms: 500
    weight: 1
`)
	cfg, err := LoadConfig(yamlDoc)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.SchedulerQueueCeiling)
	assert.Equal(t, 100, cfg.RenderCycleGuardLimit, "fields the document omits keep their default")
	assert.Equal(t, PriorityTuning{DebounceMS: 500, Weight: 1}, cfg.tuning(PriorityIdle))
}

func TestLoadConfig_InvalidYAMLReturnsError(t *testing.T) {
	_, err := LoadConfig([]byte("not: valid: yaml: :::"))
	assert.Error(t, err)
}

func TestConfig_TuningFallsBackToDefaultForUnknownPriority(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, DefaultConfig().Priorities["normal"], cfg.tuning(PriorityNormal))
}
