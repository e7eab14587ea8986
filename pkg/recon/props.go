package recon

import "reflect"

// EventHandler is an opaque callable stored under an event-type prop key.
// Go funcs aren't comparable with ==, so identity is approximated by the
// function pointer value (design note: "Closures stored in props" — an
// abstract handle that supports identity comparison suffices).
type EventHandler struct {
	fn any
}

// NewEventHandler wraps a handler function for storage in a props map.
func NewEventHandler(fn any) EventHandler { return EventHandler{fn: fn} }

// Same reports whether two handlers reference the same underlying value.
func (h EventHandler) Same(other EventHandler) bool {
	return reflect.ValueOf(h.fn).Pointer() == reflect.ValueOf(other.fn).Pointer()
}

// PropsPatch is the changed_props map a PropsDiffer produces: a key maps to
// its new value, or to nil for a removal.
type PropsPatch map[string]any

// PropsInterceptor mutates changed_props after the default diff. The core
// does not interpret interceptor semantics; it only guarantees they run
// after Diff and before the patch is used (§4.2's extension hook).
type PropsInterceptor func(old, new map[string]any, patch PropsPatch)

// PropsDiffer produces changed_props from (old_props, new_props) per §4.2.
type PropsDiffer struct {
	interceptors []PropsInterceptor
}

// NewPropsDiffer returns a differ with no interceptors registered.
func NewPropsDiffer() *PropsDiffer { return &PropsDiffer{} }

// RegisterInterceptor appends an interceptor run after the default diff.
func (d *PropsDiffer) RegisterInterceptor(i PropsInterceptor) {
	d.interceptors = append(d.interceptors, i)
}

// Diff computes changed_props per §4.2:
//   - present in new, absent in old -> added (value = new).
//   - present in both, unequal by deep structural equality -> changed.
//   - absent in new, present in old, and not a function handle -> removed (nil).
//   - function-valued (EventHandler) keys are never added/removed by value
//     comparison; omitting one from the new map does not report a removal,
//     so handlers survive reconciliation by reference.
func (d *PropsDiffer) Diff(old, new map[string]any) PropsPatch {
	patch := make(PropsPatch)

	for key, newVal := range new {
		oldVal, existed := old[key]
		if !existed {
			patch[key] = newVal
			continue
		}
		if !propsEqual(oldVal, newVal) {
			patch[key] = newVal
		}
	}

	for key, oldVal := range old {
		if _, stillPresent := new[key]; stillPresent {
			continue
		}
		if isHandler(oldVal) {
			continue
		}
		patch[key] = nil
	}

	for _, interceptor := range d.interceptors {
		interceptor(old, new, patch)
	}

	return patch
}

func isHandler(v any) bool {
	_, ok := v.(EventHandler)
	return ok
}

func propsEqual(a, b any) bool {
	ah, aIsHandler := a.(EventHandler)
	bh, bIsHandler := b.(EventHandler)
	if aIsHandler && bIsHandler {
		return ah.Same(bh)
	}
	if aIsHandler != bIsHandler {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// EventTypeDiff computes the add/remove sets between two event-type sets
// present on an Element's props, used by R6 to emit
// add_event_listeners/remove_event_listeners.
func EventTypeDiff(oldProps, newProps map[string]any) (add, remove []string) {
	oldTypes := eventTypesOf(oldProps)
	newTypes := eventTypesOf(newProps)

	for t := range newTypes {
		if _, ok := oldTypes[t]; !ok {
			add = append(add, t)
		}
	}
	for t := range oldTypes {
		if _, ok := newTypes[t]; !ok {
			remove = append(remove, t)
		}
	}
	return add, remove
}

func eventTypesOf(props map[string]any) map[string]EventHandler {
	out := make(map[string]EventHandler)
	for k, v := range props {
		if h, ok := v.(EventHandler); ok {
			out[k] = h
		}
	}
	return out
}

// NonFunctionPropsSimilarity computes §4.4.2: over non-function props only,
// matching / total_union_keys by deep equality. Empty-on-both = 1.0,
// empty-on-one = 0.0.
func NonFunctionPropsSimilarity(a, b map[string]any) float64 {
	union := make(map[string]struct{})
	for k, v := range a {
		if !isHandler(v) {
			union[k] = struct{}{}
		}
	}
	for k, v := range b {
		if !isHandler(v) {
			union[k] = struct{}{}
		}
	}
	if len(union) == 0 {
		return 1.0
	}

	matching := 0
	for k := range union {
		av, aok := a[k]
		bv, bok := b[k]
		if aok && bok && reflect.DeepEqual(av, bv) {
			matching++
		}
	}
	if matching == 0 {
		return 0.0
	}
	return float64(matching) / float64(len(union))
}
