// Command mcpserver mounts a demo tree on a headless RecordingBridge and
// exposes the running engine over the Model Context Protocol via stdio, so
// an agent can inspect tree://current and invoke force_full_rerender
// without sharing a terminal with a live TUI.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/nbusch/reconcile/devtools/mcp"
	"github.com/nbusch/reconcile/pkg/recon"
)

func newCounterComponent() *recon.StatefulComponent {
	var count int
	var c *recon.StatefulComponent
	render := func() recon.Node {
		return recon.NewElement("Box", map[string]any{"direction": "column"},
			recon.NewElement("Text", map[string]any{"content": fmt.Sprintf("count: %d", count)}),
			recon.NewElement("Button", map[string]any{
				"label": "+1",
				"click": recon.NewEventHandler(func(data map[string]any) {
					count++
					c.ScheduleUpdate()
				}),
			}),
		)
	}
	c = recon.NewStatefulComponent("counter-headless", "Counter", render)
	return c
}

func main() {
	cfg := recon.DefaultConfig()
	bridge := recon.NewRecordingBridge()
	engine := recon.NewEngine(bridge, cfg)
	bridge.SetEventHandler(engine.DispatchEvent)

	if err := engine.Mount(context.Background(), newCounterComponent()); err != nil {
		log.Fatalf("mount failed: %v", err)
	}

	srv, err := mcp.NewServer(mcp.DefaultConfig(), engine)
	if err != nil {
		log.Fatalf("mcp server init failed: %v", err)
	}
	if err := srv.StartStdio(context.Background()); err != nil {
		log.Fatalf("mcp stdio server error: %v", err)
	}
}
