package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSessionToken = errors.New("invalid or expired session token")

type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionTokenManager signs and verifies the stateless session credential.
// Possession of a valid, unexpired token is the whole session; there is no
// server-side revocation list.
type SessionTokenManager struct {
	issuer   string
	audience string
	secret   []byte
	ttl      time.Duration
}

func NewSessionTokenManager(issuer, audience, secret string, ttl time.Duration) *SessionTokenManager {
	return &SessionTokenManager{issuer: issuer, audience: audience, secret: []byte(secret), ttl: ttl}
}

func (m *SessionTokenManager) TTL() time.Duration { return m.ttl }

// Sign issues a session token whose subject is the user's document id.
func (m *SessionTokenManager) Sign(userID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies signature, expiry, issuer and audience, and returns the
// embedded claims.
func (m *SessionTokenManager) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSessionToken
	}
	return claims, nil
}
