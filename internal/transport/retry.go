package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Policy is a pure description of the transient retry behaviour: given the
// outcome of an attempt it decides whether to retry and how long to wait.
// Keeping the decision side-effect free keeps retry composition independent
// of transport mechanics.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// Delay is the fixed wait before each retry.
	Delay time.Duration
}

// Next reports whether the call should be retried after the given attempt.
// retries is the number of retries already performed. A transport error or
// a transient status consumes budget; any other outcome is final.
func (p Policy) Next(retries int, resp *http.Response, err error) (time.Duration, bool) {
	if retries >= p.MaxRetries {
		return 0, false
	}
	if err != nil {
		return p.Delay, true
	}
	if TransientStatus(resp.StatusCode) {
		return p.Delay, true
	}
	return 0, false
}

// TransientStatus reports whether an HTTP status designates a retriable
// server failure. Definitive rejections (4xx other than 429) are never
// retried.
func TransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Retry resubmits calls that fail with a transient status or a transport
// error, waiting a fixed delay between attempts. Requests with a
// non-replayable body are passed through with a single attempt.
type Retry struct {
	next           http.RoundTripper
	policy         Policy
	attemptTimeout time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *Retry) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		return t.attempt(req)
	}

	for retries := 0; ; retries++ {
		resp, err := t.attempt(req)

		delay, retry := t.policy.Next(retries, resp, err)
		if !retry {
			return resp, err
		}
		if resp != nil {
			drain(resp.Body)
		}

		zctx.From(req.Context()).Debug("retrying transient failure",
			zap.String("url", req.URL.Path),
			zap.Int("retries", retries+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}
}

// attempt issues one clone of the request, bounded by the per-attempt
// timeout. The timeout context is kept alive until the response body is
// closed by the caller.
func (t *Retry) attempt(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	cancel := context.CancelFunc(func() {})
	if t.attemptTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.attemptTimeout)
	}

	r := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, err
		}
		r.Body = body
	}

	resp, err := t.next.RoundTrip(r)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the per-attempt context when the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// drain discards and closes an abandoned response body so the underlying
// connection can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
	_ = body.Close()
}
