package mockbackend

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

var errWrongTokenType = errors.New("token has wrong type")

// Claims mirrors the payload of the platform's simplejwt tokens.
type Claims struct {
	TokenType string `json:"token_type"`
	Username  string `json:"username"`
	UserID    string `json:"user_id"`
	jwt.RegisteredClaims
}

type issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clockwork.Clock
}

func (i *issuer) issue(u User, typ string) (string, *Claims, error) {
	ttl := i.accessTTL
	if typ == typeRefresh {
		ttl = i.refreshTTL
	}
	now := i.clock.Now()
	claims := &Claims{
		TokenType: typ,
		Username:  u.Username,
		UserID:    u.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// parse validates raw. An empty typ accepts either token type.
func (i *issuer) parse(raw, typ string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if typ != "" && claims.TokenType != typ {
		return nil, errWrongTokenType
	}
	return claims, nil
}

// remaining is how long the token stays valid, never negative.
func (i *issuer) remaining(c *Claims) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(i.clock.Now()), 0)
}
