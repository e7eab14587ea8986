package recon

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Priority is the five-level total order §4.6 schedules components on.
// Lower values are higher priority; PriorityImmediate always wins ties
// against every other level.
type Priority int

const (
	PriorityImmediate Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityIdle
)

func (p Priority) String() string {
	switch p {
	case PriorityImmediate:
		return "immediate"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityIdle:
		return "idle"
	default:
		return "normal"
	}
}

// UpdateScheduler coalesces schedule_update(component) arrivals from many
// components into a single priority-ordered batch (§4.6). It generalizes
// the teacher's CallbackScheduler.enqueue/flush dedup-by-key shape
// (scheduler.go) from one global FIFO queue to five priority levels, and
// replaces its caller-driven FlushWatchers() with its own debounce timer.
type UpdateScheduler struct {
	mu      sync.Mutex
	cfg     Config
	pending map[string]Priority
	order   []string // arrival order, for stable same-priority tie-breaking

	timer         *time.Timer
	armed         bool
	armedPriority Priority

	cooldown *rate.Limiter

	// onFire receives component ids in priority order (highest first) when
	// the debounce window elapses; it runs the commit cycle (§4.7).
	onFire func(ids []string)

	diagnostics Diagnostics
}

// NewUpdateScheduler wires a scheduler against cfg's per-priority debounce
// windows and queue ceiling; onFire is invoked once per drained batch.
func NewUpdateScheduler(cfg Config, onFire func(ids []string)) *UpdateScheduler {
	return &UpdateScheduler{
		cfg:         cfg,
		pending:     make(map[string]Priority),
		cooldown:    rate.NewLimiter(rate.Every(cfg.BatchCooldown), 1),
		onFire:      onFire,
		diagnostics: GetDefaultDiagnostics(),
	}
}

// SetDiagnostics overrides the sink used for runaway-queue diagnostics.
func (s *UpdateScheduler) SetDiagnostics(d Diagnostics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = d
}

// Schedule enqueues id at priority p. If id is already queued it is
// deduplicated (the first priority it was scheduled at wins) and the call
// returns without arming anything new. If the queue is already at the
// ceiling, every previously queued id is dropped and only the newest
// survives (runaway safety). A strictly higher-priority arrival interrupts
// an already-armed timer and re-arms at the shorter debounce.
func (s *UpdateScheduler) Schedule(id string, p Priority) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, already := s.pending[id]; already {
		return
	}

	if len(s.pending) >= s.ceiling() {
		if s.diagnostics != nil {
			s.diagnostics.Logf(LevelWarn, "scheduler queue exceeded ceiling %d; dropping %d pending ids, keeping %q", s.ceiling(), len(s.pending), id)
		}
		s.pending = make(map[string]Priority)
		s.order = nil
	}

	s.pending[id] = p
	s.order = append(s.order, id)
	s.armOrInterrupt(p)
}

func (s *UpdateScheduler) ceiling() int {
	if s.cfg.SchedulerQueueCeiling > 0 {
		return s.cfg.SchedulerQueueCeiling
	}
	return 10
}

// armOrInterrupt must be called with mu held.
func (s *UpdateScheduler) armOrInterrupt(p Priority) {
	if !s.armed {
		s.arm(p)
		return
	}
	if p < s.armedPriority {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.arm(p)
	}
}

// arm must be called with mu held.
func (s *UpdateScheduler) arm(p Priority) {
	s.armedPriority = p
	s.armed = true
	debounce := time.Duration(s.cfg.tuning(p).DebounceMS) * time.Millisecond
	s.timer = time.AfterFunc(debounce, s.fire)
}

// fire drains the pending set in priority order (ties broken by weight,
// then arrival order) and hands it to onFire, respecting the inter-batch
// cool-down.
func (s *UpdateScheduler) fire() {
	s.mu.Lock()
	pending := s.pending
	order := s.order
	s.pending = make(map[string]Priority)
	s.order = nil
	s.armed = false
	cfg := s.cfg
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	position := make(map[string]int, len(order))
	for i, id := range order {
		if _, ok := position[id]; !ok {
			position[id] = i
		}
	}

	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := pending[ids[i]], pending[ids[j]]
		if pi != pj {
			return pi < pj
		}
		wi, wj := cfg.tuning(pi).Weight, cfg.tuning(pj).Weight
		if wi != wj {
			return wi > wj
		}
		return position[ids[i]] < position[ids[j]]
	})

	_ = s.cooldown.Wait(context.Background())

	if s.onFire != nil {
		s.onFire(ids)
	}
}

// CancelAll stops the debounce timer and drops every pending id, the
// cleanup primitive shutdown()/cancel_all_pending_work() uses (§5).
func (s *UpdateScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.armed = false
	s.pending = make(map[string]Priority)
	s.order = nil
}

// PendingLen reports the number of queued ids, for S6-style tests.
func (s *UpdateScheduler) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
