package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrInvalidSession indicates the presented token failed verification.
	ErrInvalidSession = errors.New("auth: invalid session token")

	errSecretRequired = errors.New("auth: session secret is required")
)

type sessionClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies the HS256 session tokens backing the
// mocked authentication flow.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

// NewSessionManager constructs a SessionManager with the given signing secret.
func NewSessionManager(secret string, ttl time.Duration, clock func() time.Time) (*SessionManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errSecretRequired
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if clock == nil {
		clock = time.Now
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  func() time.Time { return clock().UTC() },
	}, nil
}

// Issue signs a session token for the identity.
func (m *SessionManager) Issue(identity Identity) (string, error) {
	if m == nil {
		return "", errSecretRequired
	}
	userID := strings.TrimSpace(identity.UserID)
	if userID == "" {
		return "", fmt.Errorf("%w: user id required", ErrInvalidSession)
	}

	now := m.clock()
	claims := sessionClaims{
		Email: strings.TrimSpace(identity.Email),
		Name:  strings.TrimSpace(identity.Name),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates a session token, returning the embedded identity.
func (m *SessionManager) Verify(token string) (Identity, error) {
	if m == nil {
		return Identity{}, errSecretRequired
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidSession
	}

	// Claim validation is done by hand against the injected clock; the
	// library validates against the wall clock only.
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidSession, t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidSession
	}

	now := m.clock()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return Identity{}, ErrInvalidSession
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(now) {
		return Identity{}, ErrInvalidSession
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return Identity{}, ErrInvalidSession
	}
	return Identity{
		UserID: userID,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}
