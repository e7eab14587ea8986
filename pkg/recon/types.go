package recon

// ViewID is the integer handle by which the engine and the bridge refer to
// a single native view. It is monotonically increasing and allocated by the
// NodeRegistry; zero is reserved for the host-provided root.
type ViewID int64

// NoViewID marks the absence of a view-id: Fragments and Empty nodes never
// have one, and a Component's content view-id is unset before its first
// render.
const NoViewID ViewID = -1

// RootViewID is the host-provided root view. It is never allocated by
// NodeRegistry.Alloc and never appears as a key in the registry.
const RootViewID ViewID = 0

// Kind tags the variant of a Node. Go has no sum types, so the Reconciler
// dispatches on this tag instead of on virtual method dispatch — see the
// "deep inheritance" design note this replaces.
type Kind int

const (
	KindElement Kind = iota
	KindStatefulComponent
	KindStatelessComponent
	KindFragment
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindStatefulComponent:
		return "StatefulComponent"
	case KindStatelessComponent:
		return "StatelessComponent"
	case KindFragment:
		return "Fragment"
	case KindEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Node is the capability set the Reconciler consumes from every tree node:
// identity kind, optional user key, runtime type, effective view-id, and
// parent. Kind-specific data (props, children, rendered_node, ...) lives on
// the concrete *Element / *StatefulComponent / *StatelessComponent /
// *Fragment / *Empty types; the Reconciler type-switches on Kind to reach
// it, matching the tagged-variant design note.
type Node interface {
	Kind() Kind
	// RuntimeType identifies the node's concrete producer: an Element's
	// type_name, or a component's constructor/type name. Two nodes of the
	// same Kind reconcile only if RuntimeType also matches (R4).
	RuntimeType() string
	// Key is the optional user-assigned identity token (R5, §4.5).
	Key() (key string, ok bool)
	// EffectiveViewID is the node's own view-id if it is an Element, or the
	// view-id of its rendered subtree's root if it is a Component (I4).
	// Fragments and Empty nodes return NoViewID.
	EffectiveViewID() ViewID
	Parent() Node
	SetParent(Node)
}

// ElementNode is an Element: it describes a native view.
type ElementNode struct {
	TypeName string
	Props    map[string]any
	Children []Node
	UserKey  *string

	viewID ViewID
	parent Node
}

// NewElement constructs an unmounted Element with no view-id yet.
func NewElement(typeName string, props map[string]any, children ...Node) *ElementNode {
	if props == nil {
		props = map[string]any{}
	}
	return &ElementNode{TypeName: typeName, Props: props, Children: children, viewID: NoViewID}
}

func (e *ElementNode) Kind() Kind         { return KindElement }
func (e *ElementNode) RuntimeType() string { return e.TypeName }
func (e *ElementNode) Key() (string, bool) {
	if e.UserKey == nil {
		return "", false
	}
	return *e.UserKey, true
}
func (e *ElementNode) EffectiveViewID() ViewID { return e.viewID }
func (e *ElementNode) ViewID() ViewID          { return e.viewID }
func (e *ElementNode) SetViewID(v ViewID)      { e.viewID = v }
func (e *ElementNode) Parent() Node            { return e.parent }
func (e *ElementNode) SetParent(p Node)        { e.parent = p }

// RenderFunc produces a fresh subtree for a component. It must not suspend
// (§5): all state it closes over must already be resolved.
type RenderFunc func() Node

// componentCommon is embedded by both component kinds to avoid duplicating
// the rendered-subtree bookkeeping every Reconciler rule needs.
type componentCommon struct {
	InstanceID   string
	TypeName     string
	UserKey      *string
	Render       RenderFunc
	renderedNode Node
	contentView  ViewID
	mounted      bool
	parent       Node
}

func (c *componentCommon) RuntimeType() string { return c.TypeName }
func (c *componentCommon) Key() (string, bool) {
	if c.UserKey == nil {
		return "", false
	}
	return *c.UserKey, true
}
func (c *componentCommon) EffectiveViewID() ViewID { return c.contentView }
func (c *componentCommon) Parent() Node            { return c.parent }
func (c *componentCommon) SetParent(p Node)        { c.parent = p }
func (c *componentCommon) RenderedNode() Node      { return c.renderedNode }
func (c *componentCommon) SetRenderedNode(n Node)  { c.renderedNode = n }
func (c *componentCommon) ContentViewID() ViewID   { return c.contentView }
func (c *componentCommon) SetContentViewID(v ViewID) { c.contentView = v }
func (c *componentCommon) Mounted() bool           { return c.mounted }
func (c *componentCommon) SetMounted(m bool)       { c.mounted = m }

// StatefulComponent carries instance state and a ScheduleUpdate callback
// installed by the Engine at mount time (§3.1).
type StatefulComponent struct {
	componentCommon
	State          any
	ScheduleUpdate func()
	PrepareForRender func()
	OnDidMount       func()
	OnDidUpdate      func(changedProps []string)
	OnWillUnmount    func()
}

// NewStatefulComponent constructs an unmounted StatefulComponent.
func NewStatefulComponent(instanceID, typeName string, render RenderFunc) *StatefulComponent {
	return &StatefulComponent{componentCommon: componentCommon{
		InstanceID: instanceID, TypeName: typeName, Render: render, contentView: NoViewID,
	}}
}

func (s *StatefulComponent) Kind() Kind { return KindStatefulComponent }

// StatelessComponent is the same shape as StatefulComponent minus instance
// state and ScheduleUpdate (spec §3.1).
type StatelessComponent struct {
	componentCommon
	OnDidMount    func()
	OnDidUpdate   func(changedProps []string)
	OnWillUnmount func()
}

// NewStatelessComponent constructs an unmounted StatelessComponent.
func NewStatelessComponent(instanceID, typeName string, render RenderFunc) *StatelessComponent {
	return &StatelessComponent{componentCommon: componentCommon{
		InstanceID: instanceID, TypeName: typeName, Render: render, contentView: NoViewID,
	}}
}

func (s *StatelessComponent) Kind() Kind { return KindStatelessComponent }

// FragmentNode is a transparent container: it owns no native view of its
// own, only the view-ids of its children.
type FragmentNode struct {
	Children     []Node
	ChildViewIDs []ViewID
	UserKey      *string

	mounted bool
	parent  Node
}

// NewFragment constructs an unmounted Fragment.
func NewFragment(children ...Node) *FragmentNode {
	return &FragmentNode{Children: children}
}

func (f *FragmentNode) Kind() Kind          { return KindFragment }
func (f *FragmentNode) RuntimeType() string { return "Fragment" }
func (f *FragmentNode) Key() (string, bool) {
	if f.UserKey == nil {
		return "", false
	}
	return *f.UserKey, true
}
func (f *FragmentNode) EffectiveViewID() ViewID { return NoViewID }
func (f *FragmentNode) Parent() Node            { return f.parent }
func (f *FragmentNode) SetParent(p Node)        { f.parent = p }
func (f *FragmentNode) Mounted() bool           { return f.mounted }
func (f *FragmentNode) SetMounted(m bool)       { f.mounted = m }

// EmptyNode is a placeholder that owns nothing; user render functions
// return it for "render nothing".
type EmptyNode struct {
	UserKey *string
	parent  Node
}

func (e *EmptyNode) Kind() Kind              { return KindEmpty }
func (e *EmptyNode) RuntimeType() string     { return "Empty" }
func (e *EmptyNode) Key() (string, bool) {
	if e.UserKey == nil {
		return "", false
	}
	return *e.UserKey, true
}
func (e *EmptyNode) EffectiveViewID() ViewID { return NoViewID }
func (e *EmptyNode) Parent() Node            { return e.parent }
func (e *EmptyNode) SetParent(p Node)        { e.parent = p }

// childBearer is implemented by node kinds that own an ordered children
// list directly (Element, Fragment) — as opposed to owning a single
// rendered_node (the two component kinds).
type childBearer interface {
	ChildNodes() []Node
	SetChildNodes([]Node)
}

func (e *ElementNode) ChildNodes() []Node       { return e.Children }
func (e *ElementNode) SetChildNodes(c []Node)   { e.Children = c }
func (f *FragmentNode) ChildNodes() []Node      { return f.Children }
func (f *FragmentNode) SetChildNodes(c []Node)  { f.Children = c }

// renderer is implemented by the two component kinds: they own a single
// rendered_node rather than an ordered children list.
type renderer interface {
	RenderedNode() Node
	SetRenderedNode(Node)
	RenderFunc() RenderFunc
}

func (s *StatefulComponent) RenderFunc() RenderFunc   { return s.Render }
func (s *StatelessComponent) RenderFunc() RenderFunc  { return s.Render }

// asChildBearer and asRenderer are the two ways a Node exposes its
// descendants; exactly one applies per Kind (Empty exposes neither).
func asChildBearer(n Node) (childBearer, bool) {
	cb, ok := n.(childBearer)
	return cb, ok
}

func asRenderer(n Node) (renderer, bool) {
	r, ok := n.(renderer)
	return r, ok
}
