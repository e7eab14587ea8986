package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// StartStdio starts the server on stdio transport (newline-delimited
// JSON-RPC over stdin/stdout) and blocks until the client disconnects or
// ctx is canceled, mirroring the teacher's StartStdioServer
// (pkg/bubbly/devtools/mcp/transport_stdio.go).
func (s *Server) StartStdio(ctx context.Context) (err error) {
	defer recoverAndReport("StartStdio")

	transport := &sdkmcp.StdioTransport{}
	session, err := s.server.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcp: failed to connect stdio transport: %w", err)
	}

	if err := session.Wait(); err != nil {
		return fmt.Errorf("mcp: stdio session ended with error: %w", err)
	}
	return nil
}
