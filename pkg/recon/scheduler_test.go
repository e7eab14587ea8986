package recon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastTestConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchCooldown = time.Millisecond
	cfg.Priorities = map[string]PriorityTuning{
		"immediate": {DebounceMS: 0, Weight: 100},
		"high":      {DebounceMS: 5, Weight: 75},
		"normal":    {DebounceMS: 20, Weight: 50},
		"low":       {DebounceMS: 60, Weight: 25},
		"idle":      {DebounceMS: 120, Weight: 0},
	}
	return cfg
}

func waitFire(t *testing.T, ch chan []string) []string {
	t.Helper()
	select {
	case ids := <-ch:
		return ids
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never fired")
		return nil
	}
}

func TestUpdateScheduler_FiresAfterDebounce(t *testing.T) {
	fired := make(chan []string, 1)
	s := NewUpdateScheduler(fastTestConfig(), func(ids []string) { fired <- ids })

	s.Schedule("a", PriorityNormal)
	ids := waitFire(t, fired)
	assert.Equal(t, []string{"a"}, ids)
}

func TestUpdateScheduler_DedupKeepsFirstPriority(t *testing.T) {
	fired := make(chan []string, 1)
	s := NewUpdateScheduler(fastTestConfig(), func(ids []string) { fired <- ids })

	s.Schedule("a", PriorityLow)
	s.Schedule("a", PriorityImmediate)
	assert.Equal(t, 1, s.PendingLen())

	ids := waitFire(t, fired)
	assert.Equal(t, []string{"a"}, ids)
}

func TestUpdateScheduler_HigherPriorityInterruptsTimer(t *testing.T) {
	fired := make(chan []string, 1)
	s := NewUpdateScheduler(fastTestConfig(), func(ids []string) { fired <- ids })

	s.Schedule("slow", PriorityLow)
	s.Schedule("fast", PriorityImmediate)

	ids := waitFire(t, fired)
	require.Len(t, ids, 2)
	assert.Equal(t, "fast", ids[0], "immediate priority must come first")
	assert.Equal(t, "slow", ids[1])
}

func TestUpdateScheduler_CeilingDropsAllButNewestOnOverflow(t *testing.T) {
	cfg := fastTestConfig()
	cfg.SchedulerQueueCeiling = 2
	cfg.Priorities["normal"] = PriorityTuning{DebounceMS: 5 * 1000, Weight: 50}

	fired := make(chan []string, 1)
	s := NewUpdateScheduler(cfg, func(ids []string) { fired <- ids })
	s.SetDiagnostics(NoopDiagnostics{})

	s.Schedule("a", PriorityNormal)
	s.Schedule("b", PriorityNormal)
	require.Equal(t, 2, s.PendingLen())

	s.Schedule("c", PriorityNormal)
	assert.Equal(t, 1, s.PendingLen(), "overflow drops every previously queued id")

	s.CancelAll()
}

func TestUpdateScheduler_CancelAllDropsPendingAndSuppressesFire(t *testing.T) {
	fired := make(chan []string, 1)
	s := NewUpdateScheduler(fastTestConfig(), func(ids []string) { fired <- ids })

	s.Schedule("a", PriorityLow)
	s.CancelAll()
	assert.Equal(t, 0, s.PendingLen())

	select {
	case <-fired:
		t.Fatal("onFire must not run after CancelAll")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestPriority_String(t *testing.T) {
	assert.Equal(t, "immediate", PriorityImmediate.String())
	assert.Equal(t, "idle", PriorityIdle.String())
	assert.Equal(t, "normal", Priority(99).String())
}
