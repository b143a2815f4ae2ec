package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
)

// ErrInvalidToken is returned for any token that fails parsing or validation.
var ErrInvalidToken = errors.New("jwt: invalid session token")

// ErrKeyIDMissing indicates the token header carries no kid.
var ErrKeyIDMissing = errors.New("jwt: missing key identifier")

const defaultSessionTTL = 12 * time.Hour

// SessionClaims carries the session identity inside a signed token.
type SessionClaims struct {
	UserID     string `json:"uid"`
	Role       string `json:"role"`
	BuildingID string `json:"building_id,omitempty"`
	FlatID     string `json:"flat_id,omitempty"`
	jwt.RegisteredClaims
}

// SessionTokenOptions configures a SessionTokenManager.
type SessionTokenOptions struct {
	Issuer   string
	Audience string
	TTL      time.Duration
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// SessionTokenManager signs and verifies RS256 session tokens.
type SessionTokenManager struct {
	keys     KeyProvider
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionTokenManager constructs a manager for the supplied key provider.
func NewSessionTokenManager(keys KeyProvider, opts SessionTokenOptions) (*SessionTokenManager, error) {
	if keys == nil {
		return nil, fmt.Errorf("jwt: key provider not configured")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}
	audience := strings.TrimSpace(opts.Audience)
	if audience == "" {
		audience = issuer
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionTokenManager{keys: keys, issuer: issuer, audience: audience, ttl: ttl, now: now}, nil
}

// TTL returns the lifetime of issued tokens.
func (m *SessionTokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for session and returns it with its expiry.
func (m *SessionTokenManager) Issue(session domain.Session) (string, time.Time, error) {
	userID := strings.TrimSpace(session.UserID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("jwt: user id is required")
	}

	kid, key, err := m.keys.SigningKey()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: get signing key: %w", err)
	}

	issuedAt := m.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.ttl)

	claims := &SessionClaims{
		UserID:     userID,
		Role:       string(session.Role),
		BuildingID: session.BuildingID,
		FlatID:     session.FlatID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, issuer, audience and expiry and returns the session.
func (m *SessionTokenManager) Parse(raw string) (domain.Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Session{}, ErrInvalidToken
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role := domain.Role(claims.Role)
	if claims.UserID == "" || !role.Valid() {
		return domain.Session{}, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}

	session := domain.Session{
		UserID:     claims.UserID,
		Role:       role,
		BuildingID: claims.BuildingID,
		FlatID:     claims.FlatID,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return session, nil
}

func (m *SessionTokenManager) keyFunc(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if strings.TrimSpace(kid) == "" {
		return nil, ErrKeyIDMissing
	}
	return m.keys.VerificationKey(kid)
}

var _ port.SessionTokenManager = (*SessionTokenManager)(nil)
