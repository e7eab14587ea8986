package recon

import "sync"

// EffectKind tags a pending bridge mutation or lifecycle callback so
// EffectList can bucket it into the correct commit phase: deletions,
// placements, updates, lifecycle, in that order.
type EffectKind int

const (
	EffectDeleteView EffectKind = iota
	EffectCreateView
	EffectAttachView
	EffectDetachView
	EffectSetChildren
	EffectAddListeners
	EffectRemoveListeners
	EffectUpdateView
	EffectLifecycle
)

// EffectPhase is the commit-order bucket an EffectKind maps to.
type EffectPhase int

const (
	PhaseDeletions EffectPhase = iota
	PhasePlacements
	PhaseUpdates
	PhaseLifecycle
	numEffectPhases
)

func phaseOf(kind EffectKind) EffectPhase {
	switch kind {
	case EffectDeleteView:
		return PhaseDeletions
	case EffectCreateView, EffectAttachView, EffectDetachView, EffectSetChildren, EffectAddListeners, EffectRemoveListeners:
		return PhasePlacements
	case EffectUpdateView:
		return PhaseUpdates
	default:
		return PhaseLifecycle
	}
}

// Effect is a single queued bridge mutation or lifecycle callback.
type Effect struct {
	Kind         EffectKind
	ViewID       ViewID
	ParentViewID ViewID
	Index        int
	TypeName     string
	Props        map[string]any
	Children     []ViewID
	EventTypes   []string
	Lifecycle    func()

	// Deferred effects (layout/insertion) are drained at a distinct point
	// in the commit cycle, after descendants attach and the tree is marked
	// complete, rather than immediately (design note: "Microtask effect
	// phases"). Cancelled suppresses execution without requiring a linear
	// search-and-remove, mirroring the teacher's CancelEffect/DeferEffect
	// flag-flip shape.
	Deferred  bool
	Cancelled bool
	BatchID   string
}

// EffectList is the ordered buffer of pending bridge operations. It buckets
// by phase on Append so Drain applies deletions before placements before
// updates before lifecycle regardless of insertion order, and keeps a
// separate deferred queue for layout/insertion effects.
type EffectList struct {
	mu       sync.Mutex
	phases   [numEffectPhases][]*Effect
	deferred []*Effect
	batches  map[string][]*Effect
}

// NewEffectList returns an empty EffectList.
func NewEffectList() *EffectList {
	return &EffectList{batches: make(map[string][]*Effect)}
}

// Append queues an immediate effect in its phase bucket.
func (l *EffectList) Append(e *Effect) {
	l.mu.Lock()
	defer l.mu.Unlock()
	phase := phaseOf(e.Kind)
	l.phases[phase] = append(l.phases[phase], e)
	if e.BatchID != "" {
		l.batches[e.BatchID] = append(l.batches[e.BatchID], e)
	}
}

// Defer queues a layout/insertion effect to run after the ordinary four
// phases drain, once the tree is confirmed complete.
func (l *EffectList) Defer(e *Effect) {
	e.Deferred = true
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deferred = append(l.deferred, e)
}

// Cancel marks every queued effect for batchID as cancelled; Drain skips
// cancelled effects in place rather than removing them from their slice.
func (l *EffectList) Cancel(batchID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.batches[batchID] {
		e.Cancelled = true
	}
}

// Drain applies every immediate effect phase-by-phase via apply, then
// clears the immediate queues. Deferred effects are untouched; call
// DrainDeferred once the tree is confirmed complete.
func (l *EffectList) Drain(apply func(*Effect) error) error {
	l.mu.Lock()
	phases := l.phases
	l.phases = [numEffectPhases][]*Effect{}
	l.batches = make(map[string][]*Effect)
	l.mu.Unlock()

	for _, bucket := range phases {
		for _, e := range bucket {
			if e.Cancelled {
				continue
			}
			if err := apply(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// FlushDeletions applies and clears only the PhaseDeletions bucket right
// now, leaving placements/updates/lifecycle queued for the batch's ordinary
// Drain. Append's phase bucketing only orders deletions ahead of placements
// *within* a single Drain call; a caller that is about to issue a
// create_view synchronously (bypassing EffectList entirely, as
// render_to_native does) needs any already-queued delete_view for the view
// it is replacing applied first, or the bridge sees the create before the
// delete (§4.12 step 5, P10).
func (l *EffectList) FlushDeletions(apply func(*Effect) error) error {
	l.mu.Lock()
	bucket := l.phases[PhaseDeletions]
	l.phases[PhaseDeletions] = nil
	l.mu.Unlock()

	for _, e := range bucket {
		if e.Cancelled {
			continue
		}
		if err := apply(e); err != nil {
			return err
		}
	}
	return nil
}

// DrainDeferred applies queued layout/insertion effects, in FIFO order.
func (l *EffectList) DrainDeferred(apply func(*Effect) error) error {
	l.mu.Lock()
	deferred := l.deferred
	l.deferred = nil
	l.mu.Unlock()

	for _, e := range deferred {
		if e.Cancelled {
			continue
		}
		if err := apply(e); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the total number of queued immediate effects across all
// phases, for "every effect issued exactly once" assertions.
func (l *EffectList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, bucket := range l.phases {
		n += len(bucket)
	}
	return n
}
