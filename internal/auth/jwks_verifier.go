// Package auth verifies the bearer tokens of API callers.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/makeasinger/musicgen/internal/config"
)

// ErrNoVerifier is returned by a Chain with no verifier configured.
var ErrNoVerifier = errors.New("authentication not configured")

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Validate(tokenString string) (*Claims, error)
}

// Claims are the caller identity carried by an access token. OIDC tokens
// put the user id in sub; service-issued HMAC tokens use userId.
type Claims struct {
	UserID string   `json:"userId,omitempty"`
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// User returns the user id of the token.
func (c *Claims) User() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// JWKSVerifier validates tokens signed by an OIDC provider.
type JWKSVerifier struct {
	jwks     keyfunc.Keyfunc
	issuer   string
	audience string
}

// NewJWKSVerifier discovers the provider's JWKS and returns a verifier
// for its tokens.
func NewJWKSVerifier(ctx context.Context, cfg *config.OIDCConfig) (*JWKSVerifier, error) {
	issuer := cfg.Issuer
	if issuer == "" && cfg.Domain != "" {
		issuer = "https://" + strings.TrimPrefix(cfg.Domain, "https://")
	}
	if issuer == "" {
		return nil, fmt.Errorf("oidc issuer is required")
	}
	issuer = strings.TrimRight(issuer, "/")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	jwksURL, err := discoverJWKSURL(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover JWKS URL: %w", err)
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS keyfunc: %w", err)
	}

	return &JWKSVerifier{
		jwks:     jwks,
		issuer:   issuer,
		audience: cfg.ClientID,
	}, nil
}

func discoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	discoveryURL := fmt.Sprintf("%s/.well-known/openid-configuration", issuer)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create discovery request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if doc.JWKSURI == "" {
		return "", fmt.Errorf("jwks_uri not found in discovery document")
	}
	return doc.JWKSURI, nil
}

// Validate implements TokenVerifier.
func (v *JWKSVerifier) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.jwks.Keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if v.audience != "" {
		aud, err := claims.GetAudience()
		if err != nil {
			return nil, fmt.Errorf("failed to get audience: %w", err)
		}
		if !slices.Contains(aud, v.audience) {
			return nil, fmt.Errorf("invalid audience")
		}
	}
	return claims, nil
}

// Chain tries each verifier in order and returns the first success.
type Chain []TokenVerifier

// Validate implements TokenVerifier.
func (c Chain) Validate(tokenString string) (*Claims, error) {
	var errs []error
	for _, v := range c {
		if v == nil {
			continue
		}
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoVerifier
	}
	return nil, errors.Join(errs...)
}
