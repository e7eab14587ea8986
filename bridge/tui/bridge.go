package tui

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/nbusch/reconcile/pkg/recon"
)

// listItem adapts a plain label into list.DefaultItem so bubbles/list's
// DefaultDelegate can render it without a custom delegate per view.
type listItem struct{ label string }

func (i listItem) Title() string       { return i.label }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.label }

// viewNode is one native view this bridge knows about: its type, its
// current props, and its place in the tree. The bridge never sees a Node
// or a ViewID's Element — only what CreateView/UpdateView/AttachView told
// it, matching the host-side-only contract BridgeClient documents.
type viewNode struct {
	typeName string
	props    map[string]any
	parent   recon.ViewID
	children []recon.ViewID
}

// Bridge is a demo BridgeClient rendering four view types — Text, Button,
// Box, List — with lipgloss and bubbles/list, adapted from the teacher's
// theme-driven styling (pkg/bubbly/theme.go) and the RecordingBridge shape
// (pkg/recon/bridge.go).
//
// Supported props:
//
//	Text:   content string
//	Button: label string
//	Box:    direction "row"|"column" (default "column"), border bool
//	List:   items []string
type Bridge struct {
	mu sync.Mutex

	theme Theme

	views       map[recon.ViewID]*viewNode
	rootChild   recon.ViewID
	hasRoot     bool
	lists       map[recon.ViewID]*list.Model
	focusOrder  []recon.ViewID
	focusIdx    int
	width, height int

	handler recon.EventHandlerFunc

	// onCommit is invoked (if set) after every CommitBatch, letting the
	// enclosing tea.Program know it needs to repaint outside its own
	// message loop.
	onCommit func()
}

// NewBridge returns an empty Bridge styled with theme.
func NewBridge(theme Theme) *Bridge {
	return &Bridge{
		theme:  theme,
		views:  make(map[recon.ViewID]*viewNode),
		lists:  make(map[recon.ViewID]*list.Model),
		width:  60,
		height: 20,
	}
}

// OnCommit registers the callback fired after every CommitBatch.
func (b *Bridge) OnCommit(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onCommit = fn
}

// SetSize updates the viewport every List view lays out against.
func (b *Bridge) SetSize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = width, height
	for _, l := range b.lists {
		l.SetSize(width, listHeight(height))
	}
}

func listHeight(total int) int {
	h := total - 4
	if h < 3 {
		h = 3
	}
	return h
}

func (b *Bridge) Initialize(ctx context.Context) (bool, error) { return true, nil }

func (b *Bridge) SetEventHandler(handler recon.EventHandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

func (b *Bridge) BeginBatch(ctx context.Context) error { return nil }

func (b *Bridge) CommitBatch(ctx context.Context) error {
	b.mu.Lock()
	b.rebuildFocusOrderLocked()
	cb := b.onCommit
	b.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (b *Bridge) CancelBatch(ctx context.Context) error { return nil }

func (b *Bridge) CreateView(ctx context.Context, viewID recon.ViewID, typeName string, props map[string]any) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	node := &viewNode{typeName: typeName, props: cloneProps(props), parent: recon.NoViewID}
	b.views[viewID] = node
	if typeName == "List" {
		b.rebuildListLocked(viewID, node)
	}
	return true, nil
}

func (b *Bridge) UpdateView(ctx context.Context, viewID recon.ViewID, changedProps map[string]any) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	node, ok := b.views[viewID]
	if !ok {
		return false, fmt.Errorf("tui: update_view on unknown view %d", viewID)
	}
	for k, v := range changedProps {
		node.props[k] = v
	}
	if node.typeName == "List" {
		b.rebuildListLocked(viewID, node)
	}
	return true, nil
}

func (b *Bridge) DeleteView(ctx context.Context, viewID recon.ViewID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.views, viewID)
	delete(b.lists, viewID)
	if b.rootChild == viewID {
		b.hasRoot = false
	}
	return nil
}

func (b *Bridge) AttachView(ctx context.Context, child, parent recon.ViewID, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if parent == recon.RootViewID {
		b.rootChild, b.hasRoot = child, true
		return nil
	}
	p, ok := b.views[parent]
	if !ok {
		return fmt.Errorf("tui: attach_view onto unknown parent %d", parent)
	}
	if c, ok := b.views[child]; ok {
		c.parent = parent
	}
	p.children = insertAt(p.children, child, index)
	return nil
}

func (b *Bridge) DetachView(ctx context.Context, child recon.ViewID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rootChild == child {
		b.hasRoot = false
		return nil
	}
	c, ok := b.views[child]
	if !ok {
		return nil
	}
	if p, ok := b.views[c.parent]; ok {
		p.children = removeValue(p.children, child)
	}
	return nil
}

func (b *Bridge) SetChildren(ctx context.Context, parent recon.ViewID, children []recon.ViewID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if parent == recon.RootViewID {
		if len(children) > 0 {
			b.rootChild, b.hasRoot = children[0], true
		} else {
			b.hasRoot = false
		}
		return nil
	}
	p, ok := b.views[parent]
	if !ok {
		return fmt.Errorf("tui: set_children on unknown parent %d", parent)
	}
	p.children = append([]recon.ViewID(nil), children...)
	for _, c := range children {
		if cn, ok := b.views[c]; ok {
			cn.parent = parent
		}
	}
	return nil
}

func (b *Bridge) AddEventListeners(ctx context.Context, viewID recon.ViewID, types []string) error {
	return nil
}

func (b *Bridge) RemoveEventListeners(ctx context.Context, viewID recon.ViewID, types []string) error {
	return nil
}

func cloneProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func insertAt(ids []recon.ViewID, id recon.ViewID, index int) []recon.ViewID {
	ids = removeValue(ids, id)
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	ids = append(ids, recon.NoViewID)
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	return ids
}

func removeValue(ids []recon.ViewID, id recon.ViewID) []recon.ViewID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (b *Bridge) rebuildListLocked(viewID recon.ViewID, node *viewNode) {
	items := stringItems(node.props["items"])
	if l, ok := b.lists[viewID]; ok {
		l.SetItems(items)
		return
	}
	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, b.width, listHeight(b.height))
	l.Title = titleOf(node.props)
	l.SetShowHelp(false)
	b.lists[viewID] = &l
}

func titleOf(props map[string]any) string {
	if t, ok := props["title"].(string); ok {
		return t
	}
	return ""
}

func stringItems(v any) []list.Item {
	labels, _ := v.([]string)
	items := make([]list.Item, len(labels))
	for i, s := range labels {
		items[i] = listItem{label: s}
	}
	return items
}

// rebuildFocusOrderLocked walks the committed tree in document order,
// collecting every focusable (Button, List) view; must be called with mu
// held.
func (b *Bridge) rebuildFocusOrderLocked() {
	var order []recon.ViewID
	if b.hasRoot {
		b.walkLocked(b.rootChild, &order)
	}
	b.focusOrder = order
	if b.focusIdx >= len(order) {
		b.focusIdx = 0
	}
}

func (b *Bridge) walkLocked(id recon.ViewID, order *[]recon.ViewID) {
	node, ok := b.views[id]
	if !ok {
		return
	}
	if node.typeName == "Button" || node.typeName == "List" {
		*order = append(*order, id)
	}
	for _, c := range node.children {
		b.walkLocked(c, order)
	}
}

// Focused returns the view-id currently receiving keyboard input, or
// NoViewID if nothing is focusable yet.
func (b *Bridge) Focused() recon.ViewID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.focusOrder) == 0 {
		return recon.NoViewID
	}
	return b.focusOrder[b.focusIdx]
}

// FocusNext/FocusPrev cycle the focus ring Tab/Shift+Tab drive.
func (b *Bridge) FocusNext() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.focusOrder) == 0 {
		return
	}
	b.focusIdx = (b.focusIdx + 1) % len(b.focusOrder)
}

func (b *Bridge) FocusPrev() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.focusOrder) == 0 {
		return
	}
	b.focusIdx = (b.focusIdx - 1 + len(b.focusOrder)) % len(b.focusOrder)
}

// TypeOf reports the view type at viewID, used by the tea.Model to decide
// whether Enter means "click" or "select".
func (b *Bridge) TypeOf(viewID recon.ViewID) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n, ok := b.views[viewID]; ok {
		return n.typeName
	}
	return ""
}

// Dispatch forwards a key-triggered interaction on viewID to whatever
// handler the engine installed via SetEventHandler.
func (b *Bridge) Dispatch(viewID recon.ViewID, eventType string, data map[string]any) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(viewID, eventType, data)
	}
}

// ListModel returns the live bubbles/list.Model for viewID, if any, so the
// tea.Model can forward key messages into it directly.
func (b *Bridge) ListModel(viewID recon.ViewID) (*list.Model, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lists[viewID]
	return l, ok
}

// View renders the whole committed tree to a single string.
func (b *Bridge) View() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasRoot {
		return ""
	}
	return b.renderLocked(b.rootChild)
}

func (b *Bridge) renderLocked(id recon.ViewID) string {
	node, ok := b.views[id]
	if !ok {
		return ""
	}
	switch node.typeName {
	case "Text":
		content, _ := node.props["content"].(string)
		style := lipgloss.NewStyle().Foreground(b.theme.Muted)
		if bold, _ := node.props["bold"].(bool); bold {
			style = style.Bold(true).Foreground(b.theme.Primary)
		}
		return style.Render(content)
	case "Button":
		label, _ := node.props["label"].(string)
		style := lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder())
		if id == b.currentFocusLocked() {
			style = style.BorderForeground(b.theme.Primary).Foreground(b.theme.Primary).Bold(true)
		} else {
			style = style.BorderForeground(b.theme.Muted).Foreground(b.theme.Muted)
		}
		return style.Render(label)
	case "List":
		if l, ok := b.lists[id]; ok {
			return l.View()
		}
		return ""
	case "Box":
		parts := make([]string, 0, len(node.children))
		for _, c := range node.children {
			parts = append(parts, b.renderLocked(c))
		}
		direction, _ := node.props["direction"].(string)
		var joined string
		if direction == "row" {
			joined = lipgloss.JoinHorizontal(lipgloss.Top, parts...)
		} else {
			joined = lipgloss.JoinVertical(lipgloss.Left, parts...)
		}
		if border, _ := node.props["border"].(bool); border {
			return lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(b.theme.Border).Padding(1).Render(joined)
		}
		return joined
	default:
		return ""
	}
}

func (b *Bridge) currentFocusLocked() recon.ViewID {
	if len(b.focusOrder) == 0 {
		return recon.NoViewID
	}
	return b.focusOrder[b.focusIdx]
}
