package recon

import (
	"time"

	"gopkg.in/yaml.v3"
)

// PriorityTuning is the per-priority-level debounce/weight pair the
// UpdateScheduler consults (§4.6): debounce_ms is how long the scheduler
// waits for more arrivals at that level before firing, weight breaks ties
// between components scheduled at the same level.
type PriorityTuning struct {
	DebounceMS int `yaml:"debounce_ms"`
	Weight     int `yaml:"weight"`
}

// Config carries every compiled-in default spec.md names a number for,
// overridable by an optional YAML document (§10 Configuration). Loading is
// optional: a nil/empty document yields DefaultConfig() unchanged, matching
// the teacher's pattern of compiled-in defaults plus an opt-in override
// file rather than a config file being mandatory.
type Config struct {
	// SimilarityCacheCapacity is §4.3's 1000-entry LRU bound.
	SimilarityCacheCapacity int `yaml:"similarity_cache_capacity"`
	// SchedulerQueueCeiling is §4.6's runaway-safety ceiling of 10.
	SchedulerQueueCeiling int `yaml:"scheduler_queue_ceiling"`
	// RenderCycleGuardLimit is §4.7's 100-call-per-batch guard.
	RenderCycleGuardLimit int `yaml:"render_cycle_guard_limit"`
	// WorkerOffloadThreshold is §5's >=20 node threshold for shipping a
	// diff to the background worker.
	WorkerOffloadThreshold int `yaml:"worker_offload_threshold"`
	// CreateViewTimeout is §5's 5s per-create_view timeout. It is loaded
	// and defaulted but not read: create_view calls use the fixed
	// createViewTimeout constant in bridge.go.
	CreateViewTimeout time.Duration `yaml:"create_view_timeout"`
	// BatchCooldown is §5's ~8ms minimum gap between consecutive batches.
	BatchCooldown time.Duration `yaml:"batch_cooldown"`
	// YieldEveryChildren is §5's yield-to-host cadence (k≈3). It is loaded
	// and defaulted but not read: sibling lists are reconciled without
	// yielding.
	YieldEveryChildren int `yaml:"yield_every_children"`
	// BridgeRetryAttempts/BridgeRetryBaseDelay are §7's exponential-backoff
	// retry policy for failed render_to_native bridge calls.
	BridgeRetryAttempts  int           `yaml:"bridge_retry_attempts"`
	BridgeRetryBaseDelay time.Duration `yaml:"bridge_retry_base_delay"`

	Priorities map[string]PriorityTuning `yaml:"priorities"`
}

// DefaultConfig returns the compiled-in defaults matching every number
// spec.md names.
func DefaultConfig() Config {
	return Config{
		SimilarityCacheCapacity: defaultSimilarityCacheCapacity,
		SchedulerQueueCeiling:   10,
		RenderCycleGuardLimit:   100,
		WorkerOffloadThreshold:  20,
		CreateViewTimeout:       5 * time.Second,
		BatchCooldown:           8 * time.Millisecond,
		YieldEveryChildren:      3,
		BridgeRetryAttempts:     3,
		BridgeRetryBaseDelay:    100 * time.Millisecond,
		Priorities: map[string]PriorityTuning{
			"immediate": {DebounceMS: 0, Weight: 100},
			"high":      {DebounceMS: 4, Weight: 75},
			"normal":    {DebounceMS: 16, Weight: 50},
			"low":       {DebounceMS: 48, Weight: 25},
			"idle":      {DebounceMS: 120, Weight: 0},
		},
	}
}

// LoadConfig parses an optional YAML document over DefaultConfig(); fields
// the document omits keep their compiled-in default. An empty document is
// not an error.
func LoadConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) tuning(p Priority) PriorityTuning {
	if c.Priorities != nil {
		if t, ok := c.Priorities[p.String()]; ok {
			return t
		}
	}
	return DefaultConfig().Priorities[p.String()]
}
