// Package token issues and verifies the signed access tokens handed out
// after a successful login. Tokens are stateless: everything needed to
// check them is the configured secret and algorithm.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/emberhollow/auth-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrInvalidPayload   = errors.New("token payload is invalid")
)

// Claims is the verified content of an access token.
type Claims struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies access tokens with a single fixed HMAC
// algorithm. Tokens signed with any other method are rejected.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

func NewCodec(secret []byte, algorithm string, ttl time.Duration) (*Codec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not HMAC", algorithm)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &Codec{secret: secret, method: method, ttl: ttl}, nil
}

// Issue signs a fresh token for the user, valid from now until now+ttl.
func (c *Codec) Issue(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(c.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, and expiry, and returns the claims.
// Expiry is exact — no clock-skew leeway.
func (c *Codec) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.Parse(raw,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrInvalidPayload
		default:
			// Covers tampered signatures and foreign algorithms alike.
			return nil, ErrInvalidSignature
		}
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidPayload
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidPayload
	}
	email, _ := mc["email"].(string)

	claims := &Claims{UserID: sub, Email: email}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
