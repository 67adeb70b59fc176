// Package auth is the authentication and authorization core: credential
// verification, token lifecycle, role and status gating, self-modification
// safety checks, and audit recording of every attempt.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gatehouse.org/internal/audit"
	"gatehouse.org/internal/identity"
	"gatehouse.org/internal/obs"
	"gatehouse.org/internal/security"
)

// Service is the facade consumed by transport and admin layers. All
// operations are call-and-return; the only shared mutable state lives in
// the optional limiter.
type Service struct {
	creds    *CredentialStore
	tokens   *TokenService
	store    identity.Reader
	recorder audit.Recorder
	limiter  *security.Limiter
	attempts security.AttemptStore
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

// WithLimiter enables login throttling and lockout.
func WithLimiter(l *security.Limiter) ServiceOption {
	return func(s *Service) { s.limiter = l }
}

// WithAttemptStore enables per-attempt login records for security
// monitoring.
func WithAttemptStore(st security.AttemptStore) ServiceOption {
	return func(s *Service) { s.attempts = st }
}

func NewService(store identity.Reader, recorder audit.Recorder, creds *CredentialStore, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil || recorder == nil || creds == nil || tokens == nil {
		return nil, errors.New("store, recorder, credentials and tokens are required")
	}
	s := &Service{
		creds:    creds,
		tokens:   tokens,
		store:    store,
		recorder: recorder,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Tokens exposes the token service for callers that only need issuance
// parameters such as the TTL.
func (s *Service) Tokens() *TokenService { return s.tokens }

// Authenticate verifies credentials and issues an access token. Exactly one
// audit entry and one login-attempt record are produced per call, whatever
// the outcome. Unknown users and wrong secrets are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, secret string, origin audit.Origin) (string, time.Time, error) {
	username = strings.TrimSpace(username)

	if s.limiter != nil {
		if err := s.limiter.Allow(username, origin.IP); err != nil {
			s.noteAttempt(ctx, username, origin, false)
			s.record(ctx, audit.NewEntry("", audit.ActionRateLimited, "", origin).Failed("too many attempts"))
			obs.ObserveLogin("rate_limited")
			return "", time.Time{}, ErrRateLimited
		}
	}

	entry := audit.NewEntry("", audit.ActionLogin, "", origin)

	id, err := s.creds.Verify(ctx, username, secret)
	if err != nil {
		s.noteAttempt(ctx, username, origin, false)
		if !errors.Is(err, ErrInvalidCredentials) {
			s.record(ctx, entry.Failed("credential lookup error"))
			obs.ObserveLogin("error")
			return "", time.Time{}, err
		}
		s.record(ctx, entry.Failed("invalid credentials"))
		obs.ObserveLogin("failure")
		if s.limiter != nil && s.limiter.Fail(username) {
			s.record(ctx, audit.NewEntry("", audit.ActionLockout, "", origin).Failed("failure threshold reached"))
		}
		return "", time.Time{}, ErrInvalidCredentials
	}

	entry.ActorID = id.ID
	if err := RequireActive(id); err != nil {
		s.noteAttempt(ctx, username, origin, false)
		s.record(ctx, entry.Failed("account inactive"))
		obs.ObserveLogin("failure")
		return "", time.Time{}, err
	}

	token, exp, err := s.tokens.Issue(id.ID)
	if err != nil {
		s.noteAttempt(ctx, username, origin, false)
		s.record(ctx, entry.Failed("token issuance error"))
		obs.ObserveLogin("error")
		return "", time.Time{}, err
	}

	if s.limiter != nil {
		s.limiter.Reset(username)
	}
	s.noteAttempt(ctx, username, origin, true)
	s.record(ctx, entry.Succeeded())
	obs.ObserveLogin("success")
	return token, exp, nil
}

// Identify verifies a bearer token and resolves its subject to an active
// identity. A token whose subject no longer exists is treated as malformed.
func (s *Service) Identify(ctx context.Context, token string) (*identity.Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			obs.ObserveTokenCheck("expired")
		} else {
			obs.ObserveTokenCheck("malformed")
		}
		return nil, err
	}
	id, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			obs.ObserveTokenCheck("unknown_subject")
			return nil, ErrTokenMalformed
		}
		return nil, err
	}
	if err := RequireActive(id); err != nil {
		obs.ObserveTokenCheck("inactive")
		return nil, err
	}
	obs.ObserveTokenCheck("ok")
	return id, nil
}

// Authorize verifies the token and then gates on status before role, per
// the guard's ordering contract.
func (s *Service) Authorize(ctx context.Context, token string, role identity.Role) (*identity.Identity, error) {
	id, err := s.Identify(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := RequireRole(id, role); err != nil {
		return nil, err
	}
	return id, nil
}

// Refresh exchanges a still-valid token for a fresh one. The presented
// token is superseded, not revoked; it remains valid until its own expiry.
func (s *Service) Refresh(ctx context.Context, token string, origin audit.Origin) (string, time.Time, error) {
	entry := audit.NewEntry("", audit.ActionRefreshToken, "", origin)

	id, err := s.Identify(ctx, token)
	if err != nil {
		s.record(ctx, entry.Failed(ReasonFor(err)))
		return "", time.Time{}, err
	}
	entry.ActorID = id.ID

	fresh, exp, err := s.tokens.Issue(id.ID)
	if err != nil {
		s.record(ctx, entry.Failed("token issuance error"))
		return "", time.Time{}, err
	}
	s.record(ctx, entry.Succeeded())
	return fresh, exp, nil
}

// RecordAction appends one audit entry for a privileged operation decided
// outside this package, for example a read of the audit log itself.
func (s *Service) RecordAction(ctx context.Context, actorID string, action audit.Action, targetID string, outcome audit.Outcome, reason string, origin audit.Origin) error {
	e := audit.NewEntry(actorID, action, targetID, origin)
	e.Outcome = outcome
	e.Reason = reason
	return s.record(ctx, e)
}

// record appends synchronously on the decision path, so a rejection is
// durable before the error reaches the caller, then mirrors the entry to
// the structured log.
func (s *Service) record(ctx context.Context, e *audit.Entry) error {
	if err := s.recorder.Append(ctx, e); err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "audit append failed", "action": string(e.Action)})
		return err
	}
	audit.Emit(e)
	return nil
}

func (s *Service) noteAttempt(ctx context.Context, username string, origin audit.Origin, success bool) {
	if s.attempts == nil || username == "" {
		return
	}
	a := &security.LoginAttempt{
		Username: username,
		OriginIP: origin.IP,
		Success:  success,
	}
	if err := s.attempts.Record(ctx, a); err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "login attempt record failed"})
	}
}

// ReasonFor maps a taxonomy error to the non-sensitive reason string stored
// in audit entries. Raw secrets and tokens never appear here.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, ErrAccountInactive):
		return "account inactive"
	case errors.Is(err, ErrInsufficientRole):
		return "insufficient role"
	case errors.Is(err, ErrTokenMalformed):
		return "token malformed"
	case errors.Is(err, ErrTokenExpired):
		return "token expired"
	case errors.Is(err, ErrSelfModification):
		return "self-modification"
	case errors.Is(err, ErrRateLimited):
		return "rate limited"
	case errors.Is(err, identity.ErrNotFound):
		return "target not found"
	case errors.Is(err, identity.ErrAlreadyExists):
		return "username already exists"
	case errors.Is(err, identity.ErrInvalidInput):
		return "invalid input"
	default:
		return "internal error"
	}
}
