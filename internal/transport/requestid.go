package transport

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestID ensures every outgoing call carries an X-Request-ID header so
// backend logs can be correlated with client-side failures. A caller-set
// header is preserved; the authorization replay and transient retries of a
// call all share one id because the header is set before those layers run.
type RequestID struct {
	next http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *RequestID) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("X-Request-ID") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("X-Request-ID", uuid.New().String())
	return t.next.RoundTrip(r)
}
