package utils // package utils provides helper functions for session tokens and password hashing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Verify for any malformed, forged or expired
// token.  Callers should not distinguish between those cases.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed session token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims is the claim set carried by every session token.  The
// subject holds the decimal user id.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *SessionClaims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// SessionIssuer signs and verifies HS256 session tokens.
type SessionIssuer struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// NewSessionIssuer builds an issuer.  defaultTTL is used by IssueDefault.
func NewSessionIssuer(secret string, defaultTTL time.Duration) *SessionIssuer {
	return &SessionIssuer{secret: []byte(secret), defaultTTL: defaultTTL, now: time.Now}
}

// WithClock replaces the issuer's time source.  Intended for tests.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	cp := *s
	cp.now = now
	return &cp
}

// DefaultTTL is the configured session lifetime.
func (s *SessionIssuer) DefaultTTL() time.Duration { return s.defaultTTL }

// Issue signs a token for the user that expires ttl from now.
func (s *SessionIssuer) Issue(userID uint64, email string, ttl time.Duration) (AccessToken, error) {
	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(ttl)
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign session token: %w", err)
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// IssueDefault signs a token with the configured default lifetime.
func (s *SessionIssuer) IssueDefault(userID uint64, email string) (AccessToken, error) {
	return s.Issue(userID, email, s.defaultTTL)
}

// Verify checks signature and expiry and returns the claims.  Only HMAC
// signing methods are accepted.
func (s *SessionIssuer) Verify(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
