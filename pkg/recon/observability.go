package recon

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryReporter sends E2 (RenderThrew) and E4 (InfiniteRender) errors that
// escape every ErrorBoundary to Sentry, adapted from the teacher's
// SentryReporter (pkg/bubbly/observability/sentry_reporter.go): same Hub-
// based WithScope/CaptureException shape, narrowed to the two error kinds
// that can legitimately reach the engine's own commit-cycle boundary rather
// than a component-local one.
type SentryReporter struct {
	hub *sentry.Hub
}

// SentryOption configures the Sentry client during NewSentryReporter.
type SentryOption func(*sentry.ClientOptions)

// WithEnvironment sets the environment tag for every reported event.
func WithEnvironment(environment string) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Environment = environment }
}

// WithRelease sets the release tag for every reported event.
func WithRelease(release string) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Release = release }
}

// NewSentryReporter initializes the Sentry SDK against dsn (empty disables
// sending, for tests) and returns a reporter bound to the resulting hub.
func NewSentryReporter(dsn string, opts ...SentryOption) (*SentryReporter, error) {
	clientOpts := sentry.ClientOptions{Dsn: dsn}
	for _, opt := range opts {
		opt(&clientOpts)
	}
	if err := sentry.Init(clientOpts); err != nil {
		return nil, fmt.Errorf("recon: sentry init failed: %w", err)
	}
	return &SentryReporter{hub: sentry.CurrentHub()}, nil
}

// ReportRenderThrew reports an E2 that escaped every ErrorBoundary.
func (r *SentryReporter) ReportRenderThrew(err *RenderThrewError) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("recon.error_kind", "E2_render_threw")
		scope.SetTag("recon.component", err.ComponentID)
		scope.SetExtra("panic_value", err.PanicValue)
		scope.SetExtra("stack", string(err.Stack))
		r.hub.CaptureException(err)
	})
}

// ReportInfiniteRender reports an E4 render-cycle guard trip.
func (r *SentryReporter) ReportInfiniteRender(err *InfiniteRenderError) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("recon.error_kind", "E4_infinite_render")
		scope.SetTag("recon.component", err.ComponentID)
		scope.SetExtra("count", err.Count)
		scope.SetExtra("limit", err.Limit)
		r.hub.CaptureException(err)
	})
}

// Flush blocks until every pending event is sent or timeout elapses.
func (r *SentryReporter) Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
