package mcp

import (
	"fmt"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nbusch/reconcile/pkg/recon"
)

// Server is the MCP server wrapper around a running Engine, grounded on the
// teacher's MCPServer (pkg/bubbly/devtools/mcp/server.go): same
// create-then-register-then-start-transport lifecycle, narrowed to one data
// source (the engine) instead of a separate DevToolsStore.
type Server struct {
	server *sdkmcp.Server
	config *Config
	engine *recon.Engine

	mu sync.RWMutex
}

// NewServer creates and initializes a new devtools MCP server bound to
// engine. The server is created but not started; call StartStdio to begin
// accepting connections.
func NewServer(config *Config, engine *recon.Engine) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("mcp: config cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("mcp: engine cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("mcp: invalid config: %w", err)
	}

	impl := &sdkmcp.Implementation{
		Name:    config.ServerName,
		Version: config.ServerVersion,
	}
	opts := &sdkmcp.ServerOptions{}

	s := &Server{
		server: sdkmcp.NewServer(impl, opts),
		config: config,
		engine: engine,
	}

	if err := s.RegisterTreeResource(); err != nil {
		return nil, err
	}
	if err := s.RegisterForceFullRerenderTool(); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns the server's configuration.
func (s *Server) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Engine returns the engine this server introspects.
func (s *Server) Engine() *recon.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}
