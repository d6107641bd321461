package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "podio"

// DefaultTokenTTL is the 12-week lifetime inherited from the system this
// service replaced. Long-lived tokens trade revocability for low re-auth
// friction; there is no server-side revocation list, so a token stays
// valid until expiry. Rotating the signing secret invalidates every
// outstanding token at once.
const DefaultTokenTTL = 12 * 7 * 24 * time.Hour

// Claims is the self-contained snapshot embedded in every token: identity
// plus the role ids held at issuance time. The role list is display data;
// authorization always re-queries live assignments.
type Claims struct {
	UserID  string   `json:"user_id"`
	Email   string   `json:"email"`
	RoleIDs []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenCodec issues and validates HS256 bearer tokens with a process-wide
// symmetric secret injected at construction.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption configures TokenCodec behavior.
type CodecOption func(*TokenCodec)

// WithTokenTTL overrides the default token lifetime.
func WithTokenTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) CodecOption {
	return func(c *TokenCodec) {
		if strings.TrimSpace(issuer) != "" {
			c.issuer = strings.TrimSpace(issuer)
		}
	}
}

// WithClock overrides the time source (useful for expiry tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewTokenCodec constructs a codec for the given signing secret.
func NewTokenCodec(secret string, opts ...CodecOption) (*TokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	c := &TokenCodec{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for user carrying the given role-id snapshot and
// returns the encoded token with its absolute expiry.
func (c *TokenCodec) Issue(user *User, roleIDs []string) (string, time.Time, error) {
	if user == nil || strings.TrimSpace(user.Username) == "" {
		return "", time.Time{}, ErrInvalidInput
	}
	now := c.now().UTC()
	exp := now.Add(c.ttl)
	if roleIDs == nil {
		roleIDs = []string{}
	}
	claims := Claims{
		UserID:  user.ID,
		Email:   user.Email,
		RoleIDs: roleIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Validate verifies signature and expiry and returns the decoded claims.
// Failures wrap ErrInvalidToken; the wrapped reason (malformed, bad
// signature, expired) is for server-side logging only and must never
// change the outward response.
func (c *TokenCodec) Validate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMalformed
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenBadSignature
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrTokenBadSignature):
			return nil, ErrTokenBadSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Issuer != c.issuer {
		return nil, ErrTokenMalformed
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
