package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/graphgate/internal/core/domain"
	"github.com/custodia-labs/graphgate/internal/core/ports/driven"
)

// Ensure Adapter implements SessionTokens
var _ driven.SessionTokens = (*Adapter)(nil)

// sessionClaims is the JWT payload of a session token.
type sessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Adapter issues and verifies HS256-signed session tokens.
type Adapter struct {
	secret []byte
}

// NewAdapter creates a session token adapter with the given signing secret.
func NewAdapter(secret string) *Adapter {
	return &Adapter{secret: []byte(secret)}
}

// Issue creates a signed session token for a user.
func (a *Adapter) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify validates a session token and returns the user it was issued to.
func (a *Adapter) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSessionInvalid, err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", domain.ErrSessionInvalid
	}

	return claims.UserID, nil
}
