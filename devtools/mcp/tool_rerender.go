package mcp

import (
	"context"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ForceFullRerenderResult describes a force_full_rerender outcome. The tool
// handler does not return it; it replies with a plain text message naming
// the time the re-render was scheduled.
type ForceFullRerenderResult struct {
	Scheduled bool      `json:"scheduled"`
	Timestamp time.Time `json:"timestamp"`
}

// RegisterForceFullRerenderTool registers the force_full_rerender tool,
// which calls Engine.ForceFullRerender, the same hot-reload path exposed to
// hosts (§6.2). Unlike the teacher's clear_state_history/clear_event_log
// tools this one is non-destructive, so it takes no parameters and needs no
// confirm flag.
func (s *Server) RegisterForceFullRerenderTool() (err error) {
	defer recoverAndReport("RegisterForceFullRerenderTool")

	tool := &sdkmcp.Tool{
		Name:        "force_full_rerender",
		Description: "Schedule every mounted stateful component for re-render on its next batch.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}

	s.server.AddTool(tool, s.handleForceFullRerenderTool)
	return nil
}

func (s *Server) handleForceFullRerenderTool(ctx context.Context, req *sdkmcp.CallToolRequest) (result *sdkmcp.CallToolResult, err error) {
	defer recoverAndReport("handleForceFullRerenderTool")

	s.engine.ForceFullRerender()

	result = &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{
				Text: fmt.Sprintf("Scheduled full re-render at %s", time.Now().Format(time.RFC3339)),
			},
		},
		IsError: false,
	}
	return result, nil
}
