package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload signed into the CASTGC cookie. Binding the
// TGT id into a signed token means a tampered cookie fails verification
// before the store is ever consulted, instead of silently resolving to
// someone else's session.
type SessionClaims struct {
	TicketGrantingTicket string `json:"tgt"`
	Principal            string `json:"principal"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the SSO session cookie.
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secretKey: []byte(secret),
		ttl:       ttl,
	}
}

// GenerateToken signs a session token for the given TGT and principal.
func (tm *TokenManager) GenerateToken(tgtID, principal string) (string, error) {
	ttl := tm.ttl
	if ttl <= 0 {
		ttl = time.Hour
	}

	claims := &SessionClaims{
		TicketGrantingTicket: tgtID,
		Principal:            principal,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Subject:   principal,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and verifies the session cookie's signature and
// expiry; it says nothing about whether the TGT it names is still live in
// the ticket store, which callers must check separately.
func (tm *TokenManager) ValidateToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
