// Package session owns the authentication lifecycle: the signed-out →
// pending-verification → verified → signed-in state machine, credential
// storage and rotation, and the single-flight refresh the transport layer
// drives on authorization failures.
package session

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/shopsync/internal/api"
	"github.com/xenking/shopsync/internal/domain/auth"
	"github.com/xenking/shopsync/pkg/credstore"
)

// Snapshot is an immutable view of the session state. Profile is a copy.
type Snapshot struct {
	State        auth.State
	Profile      *auth.Profile
	PendingEmail string
	LastError    string
}

// Manager is the session manager. It never returns an inconsistent view:
// all transitions happen under the lock and every public operation settles
// into an inspectable state. Errors are additionally returned to the caller
// in the usual Go style.
//
// The zero state is signed-out. Managers are created per app lifecycle and
// injected, never ambient.
type Manager struct {
	api   api.Auth
	creds credstore.Store // optional
	log   *zap.Logger

	mu           sync.Mutex
	state        auth.State
	access       string
	refresh      string
	profile      *auth.Profile
	pendingEmail string
	lastErr      error

	refreshGroup singleflight.Group
}

// New creates a Manager. creds may be nil when the platform offers no
// credential persistence; lg may be nil.
func New(authAPI api.Auth, creds credstore.Store, lg *zap.Logger) *Manager {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Manager{
		api:   authAPI,
		creds: creds,
		log:   lg.Named("session"),
		state: auth.StateSignedOut,
	}
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		State:        m.state,
		PendingEmail: m.pendingEmail,
	}
	if m.profile != nil {
		p := *m.profile
		snap.Profile = &p
	}
	if m.lastErr != nil {
		snap.LastError = m.lastErr.Error()
	}
	return snap
}

// State returns the current authentication state.
func (m *Manager) State() auth.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Profile returns a copy of the cached profile, or nil.
func (m *Manager) Profile() *auth.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	p := *m.profile
	return &p
}

// Restore seeds the session from persisted credentials at startup. With a
// valid pair on disk the session moves straight to signed-in; the profile
// is fetched lazily on first use. Missing credentials leave the session
// signed out without error.
func (m *Manager) Restore(ctx context.Context) error {
	if m.creds == nil {
		return nil
	}
	pair, err := m.creds.Load(ctx)
	if err != nil {
		if errors.Is(err, credstore.ErrNoCredentials) {
			return nil
		}
		return errors.Wrap(err, "load credentials")
	}

	m.mu.Lock()
	m.access = pair.AccessToken
	m.refresh = pair.RefreshToken
	m.state = auth.StateSignedIn
	m.lastErr = nil
	m.mu.Unlock()

	m.log.Info("session restored from persisted credentials")
	return nil
}

// SignUp registers a new account. On success the session enters
// pending-verification and remembers the email for the OTP exchange; on
// failure the state is unchanged and the error recorded.
func (m *Manager) SignUp(ctx context.Context, form api.SignUpForm) error {
	if err := m.api.SignUp(ctx, form); err != nil {
		m.setErr(err)
		return errors.Wrap(err, "sign up")
	}

	m.mu.Lock()
	if m.state == auth.StateSignedOut {
		m.state = auth.StatePendingVerification
	}
	m.pendingEmail = form.Email
	m.lastErr = nil
	m.mu.Unlock()
	return nil
}

// Verify confirms the emailed OTP for the pending sign-up. A successful
// verification moves to verified-unauthenticated but never signs the user
// in; the backend requires an explicit login afterwards.
func (m *Manager) Verify(ctx context.Context, code string) error {
	m.mu.Lock()
	email := m.pendingEmail
	m.mu.Unlock()
	if email == "" {
		m.setErr(auth.ErrNoPendingEmail)
		return auth.ErrNoPendingEmail
	}

	if err := m.api.VerifyOTP(ctx, email, code); err != nil {
		m.setErr(err)
		return errors.Wrap(err, "verify otp")
	}

	m.mu.Lock()
	if m.state == auth.StatePendingVerification {
		m.state = auth.StateVerifiedUnauthenticated
	}
	m.lastErr = nil
	m.mu.Unlock()
	return nil
}

// Resend re-issues the verification code for the pending email. No state
// transition occurs.
func (m *Manager) Resend(ctx context.Context) error {
	m.mu.Lock()
	email := m.pendingEmail
	m.mu.Unlock()
	if email == "" {
		m.setErr(auth.ErrNoPendingEmail)
		return auth.ErrNoPendingEmail
	}

	if err := m.api.ResendOTP(ctx, email); err != nil {
		m.setErr(err)
		return errors.Wrap(err, "resend otp")
	}
	m.setErr(nil)
	return nil
}

// ForgotPassword starts the password reset flow. No state transition.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	if err := m.api.ForgotPassword(ctx, email); err != nil {
		m.setErr(err)
		return errors.Wrap(err, "forgot password")
	}
	m.setErr(nil)
	return nil
}

// Login exchanges credentials for a token pair, stores it, and eagerly
// fetches the profile. A failed login leaves state and credentials
// untouched. A failed profile fetch does not fail the login; the profile
// is retried lazily.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	pair, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.setErr(err)
		return errors.Wrap(err, "login")
	}

	m.mu.Lock()
	m.access = pair.AccessToken
	m.refresh = pair.RefreshToken
	m.state = auth.StateSignedIn
	m.lastErr = nil
	m.mu.Unlock()

	m.persist(ctx, pair)

	if prof, err := m.api.GetProfile(ctx); err != nil {
		m.log.Warn("profile fetch after login failed", zap.Error(err))
	} else {
		m.mu.Lock()
		m.profile = prof
		m.mu.Unlock()
	}
	return nil
}

// Logout tears the session down synchronously: credentials and profile are
// cleared without any network call. Persisted credentials are removed
// best-effort.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.state = auth.StateSignedOut
	m.access = ""
	m.refresh = ""
	m.profile = nil
	m.pendingEmail = ""
	m.mu.Unlock()

	if m.creds != nil {
		if err := m.creds.Clear(context.Background()); err != nil {
			m.log.Warn("clearing persisted credentials failed", zap.Error(err))
		}
	}
	m.log.Info("signed out")
}

// UpdateProfile persists a profile change and overwrites the local copy
// with the server's authoritative response, never a client-side merge.
func (m *Manager) UpdateProfile(ctx context.Context, form api.ProfileForm) error {
	m.mu.Lock()
	signedIn := m.state == auth.StateSignedIn
	m.mu.Unlock()
	if !signedIn {
		m.setErr(auth.ErrNotSignedIn)
		return auth.ErrNotSignedIn
	}

	prof, err := m.api.UpdateProfile(ctx, form)
	if err != nil {
		m.setErr(err)
		return errors.Wrap(err, "update profile")
	}

	m.mu.Lock()
	m.profile = prof
	m.lastErr = nil
	m.mu.Unlock()
	return nil
}

// setErr records the most recent operation error.
func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// persist saves the pair best-effort; a persistence failure never fails the
// session operation that produced the pair.
func (m *Manager) persist(ctx context.Context, pair *auth.TokenPair) {
	if m.creds == nil {
		return
	}
	if err := m.creds.Save(ctx, pair); err != nil {
		m.log.Warn("persisting credentials failed", zap.Error(err))
	}
}
