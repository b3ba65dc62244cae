package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenMalformed       = errors.New("token malformed")
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

// Claims is the signed payload of an access token. The subject carries the
// user ID; issued-at and expiry come from jwt.RegisteredClaims.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies signed access tokens. It is stateless and
// safe for concurrent use; secret, algorithm and TTL are fixed at
// construction.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewTokenCodec builds a codec for the given shared secret and algorithm
// identifier (only HMAC variants such as "HS256" are accepted).
func NewTokenCodec(secret, algorithm string, ttl time.Duration) (*TokenCodec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}

	return &TokenCodec{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
	}, nil
}

// Issue signs a token for the given user with expiry = issued-at + TTL.
func (c *TokenCodec) Issue(userID uint64) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Verify checks signature and expiry and returns the embedded user ID.
// A token is already invalid at the exact expiry instant.
func (c *TokenCodec) Verify(tokenString string) (uint64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return 0, ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, ErrTokenExpired
	default:
		return 0, ErrTokenInvalid
	}

	if !token.Valid {
		return 0, ErrTokenInvalid
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenMalformed
	}

	return userID, nil
}
