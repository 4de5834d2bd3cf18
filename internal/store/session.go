package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/procurehub/portal-client/internal/domain/account"
	"github.com/procurehub/portal-client/internal/domain/errors"
	"github.com/procurehub/portal-client/internal/infrastructure/keystore"
)

// SessionState is the lifecycle state of the authenticated session.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateAuthenticated   SessionState = "authenticated"
)

// SessionStore owns the authenticated identity. Every state transition
// writes the keystore in the same step, so the persisted token and the
// in-memory session never disagree: a failure to persist is a failed
// login, and logout clears both unconditionally.
type SessionStore struct {
	api    AuthAPI
	keys   keystore.Store
	logger *zap.Logger

	mu      sync.RWMutex
	state   SessionState
	user    account.User
	lastErr error
}

// NewSessionStore creates a session store in the unauthenticated state.
func NewSessionStore(api AuthAPI, keys keystore.Store, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		api:    api,
		keys:   keys,
		logger: logger,
		state:  StateUnauthenticated,
	}
}

// Login exchanges credentials for a session. When the login response
// omits the profile it is fetched separately; the token is persisted
// first so the profile request carries it.
func (s *SessionStore) Login(ctx context.Context, creds account.Credentials) (account.User, error) {
	if err := creds.Validate(); err != nil {
		return account.User{}, s.fail(err)
	}

	s.setState(StateAuthenticating)

	res, err := s.api.Login(ctx, creds)
	if err != nil {
		return account.User{}, s.fail(err)
	}
	return s.establish(ctx, res)
}

// Register creates an account and establishes a session from the result.
func (s *SessionStore) Register(ctx context.Context, reg account.Registration) (account.User, error) {
	if err := reg.Validate(); err != nil {
		return account.User{}, s.fail(err)
	}

	s.setState(StateAuthenticating)

	res, err := s.api.Register(ctx, reg)
	if err != nil {
		return account.User{}, s.fail(err)
	}
	return s.establish(ctx, res)
}

// establish persists the token, resolves the profile, and transitions to
// authenticated. Any failure along the way tears the session down whole.
func (s *SessionStore) establish(ctx context.Context, res account.AuthResponse) (account.User, error) {
	if res.Token == "" {
		return account.User{}, s.fail(errors.NewUnauthorizedError("login response carried no token"))
	}

	if err := s.keys.Set(keystore.KeyToken, res.Token); err != nil {
		return account.User{}, s.fail(errors.NewInternalError("persisting session token").WithCause(err))
	}

	var user account.User
	if res.User != nil {
		user = *res.User
	} else {
		fetched, err := s.api.Me(ctx)
		if err != nil {
			return account.User{}, s.fail(err)
		}
		user = fetched
	}
	user = user.Normalize()

	if err := s.persistUser(user); err != nil {
		return account.User{}, s.fail(err)
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = user
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info("session established",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role.String()))
	return user, nil
}

// Rehydrate restores the session from the keystore at startup. Without a
// persisted token it settles in unauthenticated with no network call; an
// expired token is cleared the same way. Otherwise the stored profile is
// restored immediately and verified against the profile endpoint, and any
// verification failure tears the session down.
func (s *SessionStore) Rehydrate(ctx context.Context) error {
	token, err := s.keys.Get(keystore.KeyToken)
	if err != nil || token == "" {
		if err != nil && !keystore.IsNotFound(err) {
			s.logger.Warn("reading persisted token", zap.Error(err))
		}
		s.Logout()
		return nil
	}

	if tokenExpired(token) {
		s.logger.Info("persisted token expired, discarding session")
		s.Logout()
		return nil
	}

	// Show the stored profile right away; the verify below replaces it.
	if raw, err := s.keys.Get(keystore.KeyUser); err == nil && raw != "" {
		var stored account.User
		if err := json.Unmarshal([]byte(raw), &stored); err == nil {
			s.mu.Lock()
			s.state = StateAuthenticated
			s.user = stored.Normalize()
			s.mu.Unlock()
		}
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Warn("session verification failed", zap.Error(err))
		s.Logout()
		return err
	}
	user = user.Normalize()

	if err := s.persistUser(user); err != nil {
		s.Logout()
		return err
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = user
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// UpdateProfile applies a partial profile update and refreshes the cached
// and persisted user from the server's response.
func (s *SessionStore) UpdateProfile(ctx context.Context, patch account.ProfileUpdate) (account.User, error) {
	if !s.IsAuthenticated() {
		err := errors.NewUnauthorizedError("no active session")
		s.setError(err)
		return account.User{}, err
	}

	user, err := s.api.UpdateMe(ctx, patch)
	if err != nil {
		s.setError(err)
		return account.User{}, err
	}
	user = user.Normalize()

	if err := s.persistUser(user); err != nil {
		s.setError(err)
		return account.User{}, err
	}

	s.mu.Lock()
	s.user = user
	s.lastErr = nil
	s.mu.Unlock()
	return user, nil
}

// Logout clears the persisted session and the in-memory state. It has no
// failure mode; keystore errors are logged and swallowed.
func (s *SessionStore) Logout() {
	for _, key := range []string{keystore.KeyToken, keystore.KeyUser} {
		if err := s.keys.Delete(key); err != nil && !keystore.IsNotFound(err) {
			s.logger.Warn("clearing persisted session", zap.String("key", key), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.state = StateUnauthenticated
	s.user = account.User{}
	s.lastErr = nil
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the authenticated user, if any.
func (s *SessionStore) User() (account.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.state == StateAuthenticated
}

// IsAuthenticated reports whether a session is established.
func (s *SessionStore) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// ErrorMessage returns the human-readable message for the last failure,
// or "" when the last operation succeeded.
func (s *SessionStore) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastErr == nil {
		return ""
	}
	return errors.UserMessage(s.lastErr)
}

// ClearError dismisses the last recorded failure.
func (s *SessionStore) ClearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

// fail tears down any partial session and records the failure.
func (s *SessionStore) fail(err error) error {
	for _, key := range []string{keystore.KeyToken, keystore.KeyUser} {
		if derr := s.keys.Delete(key); derr != nil && !keystore.IsNotFound(derr) {
			s.logger.Warn("clearing persisted session", zap.String("key", key), zap.Error(derr))
		}
	}

	s.mu.Lock()
	s.state = StateUnauthenticated
	s.user = account.User{}
	s.lastErr = err
	s.mu.Unlock()
	return err
}

func (s *SessionStore) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *SessionStore) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *SessionStore) persistUser(user account.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return errors.NewInternalError("encoding user profile").WithCause(err)
	}
	if err := s.keys.Set(keystore.KeyUser, string(raw)); err != nil {
		return errors.NewInternalError("persisting user profile").WithCause(err)
	}
	return nil
}

// tokenExpired reports whether the persisted bearer token is a JWT whose
// expiry has passed. Opaque tokens and claims without an expiry are left
// for the server to judge.
func tokenExpired(raw string) bool {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
