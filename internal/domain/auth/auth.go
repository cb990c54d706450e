package auth

import "github.com/go-faster/errors"

// Sentinel errors for session lifecycle violations.
var (
	// ErrNotSignedIn is returned when an operation requires stored
	// credentials and the session has none.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNoPendingEmail is returned when a verification step runs without a
	// preceding sign-up in this session.
	ErrNoPendingEmail = errors.New("no pending verification email")
)

// State is the session authentication state.
type State int

const (
	// StateSignedOut is the initial state and the state re-entered on logout
	// or unrecoverable refresh failure.
	StateSignedOut State = iota
	// StatePendingVerification follows a successful sign-up; the account
	// exists but its email is not yet verified.
	StatePendingVerification
	// StateVerifiedUnauthenticated follows a successful verification.
	// Verification never logs the user in; an explicit login is required.
	StateVerifiedUnauthenticated
	// StateSignedIn means access and refresh credentials are held.
	StateSignedIn
)

// String returns a stable lowercase name for logging.
func (s State) String() string {
	switch s {
	case StateSignedOut:
		return "signed-out"
	case StatePendingVerification:
		return "pending-verification"
	case StateVerifiedUnauthenticated:
		return "verified-unauthenticated"
	case StateSignedIn:
		return "signed-in"
	default:
		return "unknown"
	}
}

// TokenPair holds the opaque credentials issued by the auth backend. The
// backend rotates the refresh token on every use, so a pair is only valid
// as a unit.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Profile is the server-side user record. The backend may normalize fields
// on update (e.g. rewriting avatar URLs), so the local copy is always
// overwritten with the server's authoritative version.
type Profile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}
