// Package transport implements the resilience chain applied to every
// outgoing request: request identification, credential attachment with a
// single refresh-and-replay on authorization failure, and fixed-backoff
// retry of transient server failures.
//
// The chain is built from independent http.RoundTripper layers so each
// policy can be tested and reasoned about in isolation. Composition order,
// outermost first: tracing, request id, authorization, transient retry.
// The authorization replay passes through the retry layer again, so an
// authorization retry and transient retries consume separate budgets.
package transport

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// TokenSource supplies access credentials to the authorization layer.
// It is implemented by the session manager.
type TokenSource interface {
	// Token returns the current access credential, or "" when signed out.
	Token() string
	// Refresh exchanges the refresh credential for a fresh access
	// credential. stale is the credential the caller observed failing;
	// implementations return the current credential without a network
	// round trip when it has already been rotated past stale.
	Refresh(ctx context.Context, stale string) (string, error)
}

// Config holds the transport chain configuration.
type Config struct {
	// MaxRetries is the transient-failure retry budget per call.
	MaxRetries int
	// RetryDelay is the fixed wait between transient retries.
	RetryDelay time.Duration
	// AttemptTimeout bounds each individual attempt, independent of the
	// retry budget. Zero disables the per-attempt timeout.
	AttemptTimeout time.Duration
	// Base is the innermost round tripper. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// TracerProvider is used by the outer otelhttp layer when set.
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns the production chain configuration: 3 retries,
// 2 second fixed delay, 15 second per-attempt timeout.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		AttemptTimeout: 15 * time.Second,
	}
}

// New builds the full round tripper chain. source may be nil, in which case
// the authorization layer is a pass-through.
func New(cfg Config, source TokenSource) http.RoundTripper {
	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport
	}

	var rt http.RoundTripper = &Retry{
		next: base,
		policy: Policy{
			MaxRetries: cfg.MaxRetries,
			Delay:      cfg.RetryDelay,
		},
		attemptTimeout: cfg.AttemptTimeout,
	}
	rt = &Auth{next: rt, source: source}
	rt = &RequestID{next: rt}

	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	return otelhttp.NewTransport(rt, opts...)
}

type skipAuthKey struct{}

// WithoutAuth marks the request context so the authorization layer neither
// attaches a credential nor reacts to a 401. The credential refresh call
// itself must use this, or an expired refresh credential would recurse into
// another refresh.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthKey{}, struct{}{})
}

func skipAuth(ctx context.Context) bool {
	return ctx.Value(skipAuthKey{}) != nil
}
