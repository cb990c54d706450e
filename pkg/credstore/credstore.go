// Package credstore defines the narrow contract for persisting session
// credentials across process restarts, plus a JSON file implementation.
// Secure platform keychains are expected to sit behind the same interface;
// their internals are out of scope here.
package credstore

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/shopsync/internal/domain/auth"
)

// ErrNoCredentials is returned by Load when nothing has been persisted.
var ErrNoCredentials = errors.New("no persisted credentials")

// Store persists one token pair. Implementations must treat the pair as a
// unit: the backend rotates the refresh token on use, so a partially
// updated pair is unusable.
type Store interface {
	Load(ctx context.Context) (*auth.TokenPair, error)
	Save(ctx context.Context, pair *auth.TokenPair) error
	Clear(ctx context.Context) error
}
