package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type tags carried in the "type" claim.
const (
	TokenTypeAccess      = "access"
	TokenTypeRefresh     = "refresh"
	TokenTypeVerifyEmail = "verify_email"
)

const defaultIssuer = "askhub"

// Leeway tolerated when checking exp/iat against the current clock.
const clockSkewLeeway = 5 * time.Second

// Claims is the signed token payload. Version is a pointer so refresh and
// verification tokens, which are not version-stamped, omit it entirely on the
// wire.
type Claims struct {
	Role      Role   `json:"role,omitempty"`
	Version   *int64 `json:"version,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// EmbeddedVersion returns the revocation version carried by the token, or 0
// when absent.
func (c *Claims) EmbeddedVersion() int64 {
	if c.Version == nil {
		return 0
	}
	return *c.Version
}

// Codec signs and verifies compact HS256 tokens. The signature is always
// verified before any claim is trusted.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewCodec builds a Codec for the given signing secret.
func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	return &Codec{secret: []byte(secret), issuer: defaultIssuer, now: time.Now}, nil
}

// Encode signs claims with expiry now+ttl and returns the compact token.
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("auth: claims subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("auth: ttl must be greater than zero")
	}
	now := c.now().UTC()
	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and temporal claims of a compact token.
// Failures map onto the taxonomy: ErrMalformed for structural problems,
// ErrBadSignature for a signature that does not verify, ErrExpired for a token
// past its expiry (with clockSkewLeeway of tolerance).
func (c *Codec) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMalformed
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrBadSignature
		}
		return c.secret, nil
	},
		jwt.WithLeeway(clockSkewLeeway),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrBadSignature):
			return nil, ErrBadSignature
		default:
			return nil, ErrMalformed
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.TokenType == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}
