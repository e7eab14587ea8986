package mcp

import (
	"fmt"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
)

// recoverAndReport reports a panic from op to Sentry rather than letting it
// cross the MCP SDK's goroutine boundary, adapted from the teacher's
// recoverToolRegistration (pkg/bubbly/devtools/mcp/tool_clear.go) narrowed to
// this package's single reporter (sentry-go directly; there is no
// devtools-wide ErrorReporter interface in this stack, see recon.SentryReporter).
func recoverAndReport(op string) {
	if r := recover(); r != nil {
		sentry.CurrentHub().WithScope(func(scope *sentry.Scope) {
			scope.SetTag("mcp.op", op)
			scope.SetExtra("stack", string(debug.Stack()))
			sentry.CurrentHub().CaptureException(fmt.Errorf("mcp: panic in %s: %v", op, r))
		})
	}
}
