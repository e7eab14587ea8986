package main

import (
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nbusch/reconcile/bridge/tui"
	"github.com/nbusch/reconcile/pkg/recon"
)

// newCounterComponent is the demo tree S1-S3 exercise against a live
// terminal: a Box holding a counter Text kept current by two Buttons, and
// a List whose selection updates a second Text. Every state change goes
// through ScheduleUpdate rather than touching the bridge directly — the
// engine owns when and how the tree actually gets re-rendered.
func newCounterComponent() *recon.StatefulComponent {
	var (
		count    int
		selected = "alpha"
		items    = []string{"alpha", "bravo", "charlie", "delta"}
	)

	var c *recon.StatefulComponent
	render := func() recon.Node {
		return recon.NewElement("Box", map[string]any{"direction": "column", "border": true},
			recon.NewElement("Text", map[string]any{"content": fmt.Sprintf("count: %d", count), "bold": true}),
			recon.NewElement("Box", map[string]any{"direction": "row"},
				recon.NewElement("Button", map[string]any{
					"label": "+1",
					"click": recon.NewEventHandler(func(data map[string]any) {
						count++
						c.ScheduleUpdate()
					}),
				}),
				recon.NewElement("Button", map[string]any{
					"label": "-1",
					"click": recon.NewEventHandler(func(data map[string]any) {
						count--
						c.ScheduleUpdate()
					}),
				}),
			),
			recon.NewElement("Text", map[string]any{"content": "selected: " + selected}),
			recon.NewElement("List", map[string]any{
				"title": "pick one",
				"items": items,
				"select": recon.NewEventHandler(func(data map[string]any) {
					if item, ok := data["item"].(string); ok {
						selected = item
						c.ScheduleUpdate()
					}
				}),
			}),
		)
	}

	c = recon.NewStatefulComponent("counter-1", "Counter", render)
	return c
}

func main() {
	cfg := recon.DefaultConfig()
	bridge := tui.NewBridge(tui.DefaultTheme)
	engine := recon.NewEngine(bridge, cfg)

	root := newCounterComponent()
	if err := tui.Run(engine, bridge, root, tea.WithAltScreen()); err != nil {
		log.Fatal(err)
	}
}
