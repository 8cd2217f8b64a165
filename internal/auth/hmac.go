package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer of service-signed tokens.
const Issuer = "musicgen-api"

// HMACVerifier validates HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier returns a verifier for secret, or nil when secret is
// empty.
func NewHMACVerifier(secret string) *HMACVerifier {
	if secret == "" {
		return nil
	}
	return &HMACVerifier{secret: []byte(secret)}
}

// Validate implements TokenVerifier.
func (v *HMACVerifier) Validate(tokenString string) (*Claims, error) {
	if v == nil {
		return nil, ErrNoVerifier
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.User() == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Issue signs a token for userID valid for ttl. A zero ttl never expires.
func (v *HMACVerifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	if v == nil {
		return "", ErrNoVerifier
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
