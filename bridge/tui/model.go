package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nbusch/reconcile/pkg/recon"
)

// redrawMsg is sent to the running tea.Program whenever the engine commits
// a batch on the scheduler's own goroutine (§4.6), the same "send a message
// from outside the Update loop" shape the teacher's asyncWrapperModel uses
// for its periodic tick, adapted here for event-driven rather than
// time-driven redraws.
type redrawMsg struct{}

// Model is the single tea.Model this bridge needs: it owns the Engine and
// the Bridge and forwards every key press either to the focused Button/List
// or to focus-cycling, mirroring the thin forwarding shape of the teacher's
// autoWrapperModel (pkg/bubbly/wrapper.go) rather than reimplementing a
// second event loop on top of bubbletea's.
type Model struct {
	engine *recon.Engine
	bridge *Bridge
	root   recon.Node

	mountErr error
	footer   string
}

// NewModel wires engine and bridge together and registers the engine as the
// bridge's native-event handler, the same wiring Run performs; exposed
// separately so callers that need the tea.Program reference before Run
// (for bridge.OnCommit) can still build the Model themselves.
func NewModel(engine *recon.Engine, bridge *Bridge, root recon.Node) *Model {
	bridge.SetEventHandler(engine.DispatchEvent)
	return &Model{engine: engine, bridge: bridge, root: root, footer: "tab: focus next  enter: activate  q: quit"}
}

// Run mounts root onto engine through bridge and drives a bubbletea program
// until it exits, matching the teacher's Run() signature shape
// (pkg/bubbly/runner.go) narrowed to this package's one supported model.
func Run(engine *recon.Engine, bridge *Bridge, root recon.Node, opts ...tea.ProgramOption) error {
	m := NewModel(engine, bridge, root)
	p := tea.NewProgram(m, opts...)
	bridge.OnCommit(func() { p.Send(redrawMsg{}) })
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	if err := m.engine.Mount(context.Background(), m.root); err != nil {
		m.mountErr = err
	}
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case redrawMsg:
		return m, nil
	case tea.WindowSizeMsg:
		m.bridge.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		m.bridge.FocusNext()
		return m, nil
	case "shift+tab":
		m.bridge.FocusPrev()
		return m, nil
	}

	focused := m.bridge.Focused()
	if focused == recon.NoViewID {
		return m, nil
	}

	switch m.bridge.TypeOf(focused) {
	case "Button":
		if msg.String() == "enter" || msg.String() == " " {
			m.bridge.Dispatch(focused, "click", nil)
		}
	case "List":
		if l, ok := m.bridge.ListModel(focused); ok {
			updated, cmd := l.Update(msg)
			*l = updated
			if msg.String() == "enter" {
				if item, ok := l.SelectedItem().(listItem); ok {
					m.bridge.Dispatch(focused, "select", map[string]any{
						"index": l.Index(),
						"item":  item.label,
					})
				}
			}
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) View() string {
	if m.mountErr != nil {
		return fmt.Sprintf("mount failed: %v\n", m.mountErr)
	}
	body := m.bridge.View()
	footer := lipgloss.NewStyle().Foreground(DefaultTheme.Muted).Render(m.footer)
	return lipgloss.JoinVertical(lipgloss.Left, body, "", footer)
}
