package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/skillforge/api/internal/platform/auth"
)

var (
	errAuthSessionsRequired = errors.New("auth service: session manager is required")
	errAuthClockRequired    = errors.New("auth service: clock is required")
)

// ErrAuthInvalidInput indicates malformed credentials (not a wrong password;
// the simulated backend accepts any well-formed ones).
var ErrAuthInvalidInput = errors.New("auth service: invalid input")

// ErrAuthUnavailable indicates the session could not be issued.
var ErrAuthUnavailable = errors.New("auth service: unavailable")

const minPasswordLength = 6

// AuthServiceDeps wires the simulated credential flow dependencies.
type AuthServiceDeps struct {
	Sessions *auth.SessionManager
	// Delay mimics the round trip of a real identity provider; zero in tests.
	Delay      time.Duration
	SessionTTL time.Duration
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type authService struct {
	sessions *auth.SessionManager
	delay    time.Duration
	ttl      time.Duration
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewAuthService constructs an AuthService enforcing dependency validation.
func NewAuthService(deps AuthServiceDeps) (AuthService, error) {
	if deps.Sessions == nil {
		return nil, errAuthSessionsRequired
	}
	if deps.Clock == nil {
		return nil, errAuthClockRequired
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &authService{
		sessions: deps.Sessions,
		delay:    deps.Delay,
		ttl:      ttl,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (Session, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrAuthInvalidInput, minPasswordLength)
	}
	if err := s.simulateRoundTrip(ctx); err != nil {
		return Session{}, err
	}

	name := strings.SplitN(normalized, "@", 2)[0]
	session, err := s.issue(normalized, name)
	if err != nil {
		return Session{}, err
	}
	s.logger(ctx, "auth.login", map[string]any{"userID": session.UserID})
	return session, nil
}

func (s *authService) Signup(ctx context.Context, name, email, password string) (Session, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return Session{}, fmt.Errorf("%w: name is required", ErrAuthInvalidInput)
	}
	if len(password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrAuthInvalidInput, minPasswordLength)
	}
	if err := s.simulateRoundTrip(ctx); err != nil {
		return Session{}, err
	}

	session, err := s.issue(normalized, trimmedName)
	if err != nil {
		return Session{}, err
	}
	s.logger(ctx, "auth.signup", map[string]any{"userID": session.UserID})
	return session, nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	if _, err := normalizeEmail(email); err != nil {
		return err
	}
	if err := s.simulateRoundTrip(ctx); err != nil {
		return err
	}
	// Nothing is sent anywhere; the flow only exists so the form resolves.
	s.logger(ctx, "auth.forgot_password", nil)
	return nil
}

func (s *authService) issue(email, name string) (Session, error) {
	identity := auth.Identity{
		UserID: deriveUserID(email),
		Email:  email,
		Name:   name,
	}
	token, err := s.sessions.Issue(identity)
	if err != nil {
		return Session{}, ErrAuthUnavailable
	}
	return Session{
		Token:     token,
		UserID:    identity.UserID,
		Email:     identity.Email,
		Name:      identity.Name,
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

func (s *authService) simulateRoundTrip(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// deriveUserID maps an email to a stable id so carts, drafts and orders
// survive across sessions of the same simulated account.
func deriveUserID(email string) string {
	h := fnv.New64a()
	h.Write([]byte(email))
	return fmt.Sprintf("user-%016x", h.Sum64())
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(normalized, "@")
	if at < 1 || at == len(normalized)-1 || strings.Contains(normalized, " ") {
		return "", fmt.Errorf("%w: malformed email", ErrAuthInvalidInput)
	}
	return normalized, nil
}
