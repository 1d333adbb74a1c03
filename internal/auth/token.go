// Package auth issues and verifies the signed tokens that carry a user's
// identity, and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Issuer names of the two token kinds.
const (
	SessionIssuer = "session"
	ResetIssuer   = "password-reset"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the identity carried by a session token.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with one secret. Session tokens and
// password-reset tokens use separate issuers so one cannot stand in for the
// other.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	name   string
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, name string) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, name: name, now: time.Now}
}

// Issue creates a signed token for the given identity.
func (i *Issuer) Issue(userID, email, role string) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("token secret is not configured")
	}
	now := i.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.name,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and issuer and returns the claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	if len(i.secret) == 0 {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Issuer != i.name || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
