// Package mcp exposes a running Engine over the Model Context Protocol, so
// an AI agent or external tool can inspect the committed tree and force a
// full re-render without sharing a process with the host UI, adapted from
// the teacher's devtools/mcp package (pkg/bubbly/devtools/mcp) narrowed to
// stdio transport and the two capabilities this repo actually needs.
package mcp

import (
	"fmt"
	"time"
)

// Config holds configuration for the devtools MCP server. Unlike the
// teacher's Config, there is no HTTP transport here: stdio is the only
// supported transport (§ ambient stack, MCP devtools).
type Config struct {
	// ServerName and ServerVersion identify this server to connecting
	// clients during the initialize handshake.
	ServerName    string
	ServerVersion string

	// SnapshotThrottle is validated to be non-negative but is not read by
	// the tree://current handler: every read takes a fresh
	// Engine.Snapshot and no previous snapshot is reused.
	SnapshotThrottle time.Duration
}

// DefaultConfig returns sensible defaults for local stdio use.
func DefaultConfig() *Config {
	return &Config{
		ServerName:       "reconcile-devtools",
		ServerVersion:    "1.0.0",
		SnapshotThrottle: 100 * time.Millisecond,
	}
}

// Validate checks that c is usable.
func (c *Config) Validate() error {
	if c.ServerName == "" {
		return fmt.Errorf("mcp: server name cannot be empty")
	}
	if c.SnapshotThrottle < 0 {
		return fmt.Errorf("mcp: snapshot throttle must be non-negative, got %v", c.SnapshotThrottle)
	}
	return nil
}
