package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TreeResource is the JSON body returned by the tree://current resource:
// the engine's currently committed tree plus a capture timestamp, shaped
// after the teacher's ComponentsResource (resource_components.go).
type TreeResource struct {
	Root      interface{} `json:"root"`
	Timestamp time.Time   `json:"timestamp"`
}

// RegisterTreeResource registers the tree://current resource, which returns
// a function-free snapshot of the engine's committed tree (§ devtools).
func (s *Server) RegisterTreeResource() (err error) {
	defer recoverAndReport("RegisterTreeResource")

	s.server.AddResource(
		&sdkmcp.Resource{
			URI:         "tree://current",
			Name:        "current-tree",
			Description: "Snapshot of the currently committed virtual tree",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, req *sdkmcp.ReadResourceRequest) (result *sdkmcp.ReadResourceResult, err error) {
			defer recoverAndReport("readTreeResource")
			return s.readTreeResource(ctx, req)
		},
	)
	return nil
}

func (s *Server) readTreeResource(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	snapshot := s.engine.Snapshot()
	resource := TreeResource{Root: snapshot, Timestamp: time.Now()}

	data, err := json.MarshalIndent(resource, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: failed to marshal tree resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
