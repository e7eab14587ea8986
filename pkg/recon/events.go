package recon

import "sync"

// EventPhase mirrors the teacher's capture/target/bubble propagation model
// (pkg/bubble/event_listener_options.go), carried over as a supplemental
// feature: spec.md only requires "view_id -> handler lookup and
// invocation", but listener phase/priority is cheap to carry from the
// teacher's richer event subsystem and gives EventRouter somewhere
// meaningful to put it.
type EventPhase int

const (
	PhaseCapture EventPhase = iota
	PhaseTarget
	PhaseBubble
)

// EventPriority orders same-view-id, same-event-type listener execution;
// adapted from pkg/bubble/event_priority.go's PriorityLowest..PriorityUrgent
// ladder.
type EventPriority int

const (
	EventPriorityLowest EventPriority = 0
	EventPriorityLow    EventPriority = 25
	EventPriorityNormal EventPriority = 50
	EventPriorityHigh   EventPriority = 75
	EventPriorityUrgent EventPriority = 100
)

// EventListenerOptions configures one AddListener call, adapted from
// pkg/bubble/event_listener_options.go.
type EventListenerOptions struct {
	Phase    EventPhase
	Priority EventPriority
	// Once removes the listener after its first invocation.
	Once bool
	// Passive listeners are never awaited for side effects that could
	// block delivery to later listeners; the core does not enforce this,
	// it is metadata a host bridge may use.
	Passive bool
}

// DefaultEventListenerOptions matches the teacher's
// DefaultEventListenerOptions(): bubble phase, normal priority, not once,
// not passive.
func DefaultEventListenerOptions() EventListenerOptions {
	return EventListenerOptions{Phase: PhaseBubble, Priority: EventPriorityNormal}
}

// EventHandlerInvoker is the concrete callable a listener entry wraps; it
// receives the raw event payload the host bridge delivered.
type EventHandlerInvoker func(data map[string]any)

type listenerEntry struct {
	handler EventHandlerInvoker
	options EventListenerOptions
}

// EventRouter is the view_id -> handler lookup and invocation table (§6.2
// dispatch_event). The bridge calls Dispatch when a native event occurs;
// the engine never reorders events arriving for distinct view-ids, but
// multiple listeners registered for the same (view_id, event_type) run in
// descending EventListenerOptions.Priority order.
type EventRouter struct {
	mu        sync.RWMutex
	listeners map[ViewID]map[string][]*listenerEntry
}

// NewEventRouter returns an empty router.
func NewEventRouter() *EventRouter {
	return &EventRouter{listeners: make(map[ViewID]map[string][]*listenerEntry)}
}

// AddListener registers handler for (viewID, eventType) with opts.
func (r *EventRouter) AddListener(viewID ViewID, eventType string, handler EventHandlerInvoker, opts EventListenerOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byType, ok := r.listeners[viewID]
	if !ok {
		byType = make(map[string][]*listenerEntry)
		r.listeners[viewID] = byType
	}
	entries := append(byType[eventType], &listenerEntry{handler: handler, options: opts})
	sortListenersByPriorityDesc(entries)
	byType[eventType] = entries
}

// RemoveListeners removes every listener for (viewID, eventType);
// idempotent over repeated calls for the same type set, matching the
// bridge's remove_event_listeners guarantee (§6.1).
func (r *EventRouter) RemoveListeners(viewID ViewID, eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byType, ok := r.listeners[viewID]
	if !ok {
		return
	}
	delete(byType, eventType)
	if len(byType) == 0 {
		delete(r.listeners, viewID)
	}
}

// RemoveAll drops every listener registered for viewID, used when the
// owning Element is deleted (I5: no stale references).
func (r *EventRouter) RemoveAll(viewID ViewID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, viewID)
}

// Dispatch delivers one event to every listener registered for (viewID,
// eventType), highest EventListenerOptions.Priority first, removing Once
// listeners after they fire.
func (r *EventRouter) Dispatch(viewID ViewID, eventType string, data map[string]any) {
	r.mu.Lock()
	byType, ok := r.listeners[viewID]
	if !ok {
		r.mu.Unlock()
		return
	}
	entries := byType[eventType]
	if len(entries) == 0 {
		r.mu.Unlock()
		return
	}
	snapshot := make([]*listenerEntry, len(entries))
	copy(snapshot, entries)

	remaining := entries[:0:0]
	for _, e := range entries {
		if !e.options.Once {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == 0 {
		delete(byType, eventType)
	} else {
		byType[eventType] = remaining
	}
	r.mu.Unlock()

	for _, e := range snapshot {
		e.handler(data)
	}
}

func sortListenersByPriorityDesc(entries []*listenerEntry) {
	for i := 1; i < len(entries); i++ {
		j := i
		for j > 0 && entries[j-1].options.Priority < entries[j].options.Priority {
			entries[j-1], entries[j] = entries[j], entries[j-1]
			j--
		}
	}
}
