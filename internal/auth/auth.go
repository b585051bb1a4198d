// Package auth validates Entra bearer tokens and resolves the request
// identity. With auth disabled, a header-supplied dev identity stands in so
// the API stays usable without a tenant.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps any token validation failure.
var ErrInvalidToken = errors.New("auth: invalid token")

// ErrNotConfigured means auth is enabled but tenant/audience are missing.
var ErrNotConfigured = errors.New("auth: tenant and audience must be configured")

// Identity is the authenticated caller.
type Identity struct {
	UserID            string   `json:"userId"`
	Name              string   `json:"name,omitempty"`
	Email             string   `json:"email,omitempty"`
	PreferredUsername string   `json:"preferredUsername,omitempty"`
	Scopes            []string `json:"scopes,omitempty"`
}

// Config holds the validator settings.
type Config struct {
	// Enabled turns token validation on. When false, requests carry an
	// X-User-Id header instead.
	Enabled bool `yaml:"enabled"`

	// TenantID is the Entra tenant.
	TenantID string `yaml:"tenantId"`

	// Audience is the API application ID URI (api://<app-id>).
	Audience string `yaml:"audience"`
}

// jwksURI is where the tenant publishes its signing keys.
func (c Config) jwksURI() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", c.TenantID)
}

// validIssuers lists both issuer formats; which one a token carries depends
// on the app registration's accepted token version.
func (c Config) validIssuers() []string {
	return []string{
		fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", c.TenantID),
		fmt.Sprintf("https://sts.windows.net/%s/", c.TenantID),
	}
}

// Validator checks bearer tokens against the tenant's JWKS.
type Validator struct {
	cfg     Config
	keyfunc jwt.Keyfunc
}

// NewValidator builds a Validator. With auth enabled it starts the
// background JWKS refresh; the context bounds that goroutine's lifetime.
func NewValidator(ctx context.Context, cfg Config) (*Validator, error) {
	v := &Validator{cfg: cfg}
	if !cfg.Enabled {
		return v, nil
	}
	if cfg.TenantID == "" || cfg.Audience == "" {
		return nil, ErrNotConfigured
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.jwksURI()})
	if err != nil {
		return nil, fmt.Errorf("init jwks client: %w", err)
	}
	v.keyfunc = kf.Keyfunc
	return v, nil
}

// Enabled reports whether token validation is active.
func (v *Validator) Enabled() bool {
	return v.cfg.Enabled
}

// Validate parses and verifies a bearer token, returning the caller
// identity. Signature, expiry, audience and required claims are checked by
// the parser; the issuer is matched against both accepted formats.
func (v *Validator) Validate(tokenString string) (*Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	for _, required := range []string{"sub", "exp", "iat", "iss", "aud"} {
		if _, ok := claims[required]; !ok {
			return nil, fmt.Errorf("%w: missing claim %q", ErrInvalidToken, required)
		}
	}

	issuer, _ := claims["iss"].(string)
	if !v.issuerAllowed(issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, issuer)
	}

	return identityFromClaims(claims), nil
}

func (v *Validator) issuerAllowed(issuer string) bool {
	for _, valid := range v.cfg.validIssuers() {
		if issuer == valid {
			return true
		}
	}
	return false
}

func identityFromClaims(claims jwt.MapClaims) *Identity {
	id := &Identity{}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		id.UserID = sub
	} else if oid, ok := claims["oid"].(string); ok {
		id.UserID = oid
	}
	if name, ok := claims["name"].(string); ok {
		id.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if username, ok := claims["preferred_username"].(string); ok {
		id.PreferredUsername = username
	}
	if scp, ok := claims["scp"].(string); ok && scp != "" {
		id.Scopes = strings.Fields(scp)
	}
	return id
}

// DevIdentity is the stand-in identity used when auth is disabled.
func DevIdentity(userID string) *Identity {
	return &Identity{
		UserID:            userID,
		Name:              "Local Dev User",
		PreferredUsername: userID,
		Scopes:            []string{"Decks.ReadWrite", "Cards.ReadWrite"},
	}
}
