package transport

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Auth attaches the current access credential to outgoing calls and, on an
// authorization failure, drives one credential refresh and replays the
// original call exactly once with the fresh credential. The replay's
// response is returned as-is, so a call is never retried more than once for
// this reason. On refresh failure the original 401 propagates; the token
// source is responsible for tearing the session down in that case.
type Auth struct {
	next   http.RoundTripper
	source TokenSource
}

// RoundTrip implements http.RoundTripper.
func (t *Auth) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.source == nil || skipAuth(req.Context()) {
		return t.next.RoundTrip(req)
	}

	token := t.source.Token()
	resp, err := t.next.RoundTrip(t.withToken(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if req.Body != nil && req.GetBody == nil {
		// Cannot replay the body; surface the 401.
		return resp, nil
	}

	fresh, refreshErr := t.source.Refresh(req.Context(), token)
	if refreshErr != nil {
		zctx.From(req.Context()).Debug("credential refresh failed",
			zap.String("url", req.URL.Path),
			zap.Error(refreshErr))
		return resp, nil
	}
	drain(resp.Body)

	replay := t.withToken(req, fresh)
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, bodyErr
		}
		replay.Body = body
	}
	return t.next.RoundTrip(replay)
}

// withToken clones the request with the Authorization header set. An empty
// token leaves the request untouched so unauthenticated flows (login,
// sign-up) pass through cleanly.
func (t *Auth) withToken(req *http.Request, token string) *http.Request {
	if token == "" {
		return req
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}
