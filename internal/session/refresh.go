package session

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/shopsync/internal/domain/auth"
	"github.com/xenking/shopsync/internal/transport"
)

// Compile-time check: the manager feeds the transport's authorization layer.
var _ transport.TokenSource = (*Manager)(nil)

// Token implements transport.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

// Refresh implements transport.TokenSource. It exchanges the refresh
// credential for a new pair, coalescing concurrent callers into one
// in-flight exchange: the backend rotates the refresh token on use, so
// parallel refreshes would strand every caller but the first.
//
// stale is the access credential the caller observed failing. When the
// session has already rotated past it, the current credential is returned
// without a network call. On exchange failure the session is forcibly
// logged out and the error returned, so the triggering request is
// abandoned rather than retried forever.
func (m *Manager) Refresh(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	current, refresh := m.access, m.refresh
	m.mu.Unlock()

	if current != "" && current != stale {
		return current, nil
	}
	if refresh == "" {
		return "", auth.ErrNotSignedIn
	}

	token, err, shared := m.refreshGroup.Do("refresh", func() (any, error) {
		pair, err := m.api.RefreshToken(ctx, refresh)
		if err != nil {
			m.log.Warn("credential refresh failed, forcing logout", zap.Error(err))
			m.setErr(err)
			m.Logout()
			return nil, errors.Wrap(err, "refresh credentials")
		}

		m.mu.Lock()
		m.access = pair.AccessToken
		m.refresh = pair.RefreshToken
		m.mu.Unlock()

		m.persist(ctx, pair)
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		m.log.Debug("credential refresh coalesced")
	}
	return token.(string), nil
}
