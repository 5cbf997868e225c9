package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL is the lifetime of access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the lifetime of refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token types carried in the "typ" claim. A refresh token is never accepted
// where an access token is expected and vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Authentication method references for the "amr" claim.
const (
	AMRPassword   = "pwd"
	AMROTP        = "otp"
	AMRBackupCode = "backup_code"
	AMRMFA        = "mfa"
	AMRSAML       = "saml"
	AMROIDC       = "oidc"
)

// Claims are the claims of both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Type is TypeAccess or TypeRefresh.
	Type string `json:"typ"`

	TenantID string   `json:"tid,omitempty"`
	Role     string   `json:"role,omitempty"`
	Sites    []string `json:"sites,omitempty"`
	Email    string   `json:"email,omitempty"`

	// MFAVerified is true only when the session passed a second factor. It is
	// carried forward unchanged through refresh rotation.
	MFAVerified bool `json:"mfaVerified"`

	// Authentication Methods Reference, e.g. ["pwd","otp","mfa"].
	AMR []string `json:"amr,omitempty"`
}

// Principal is the identity a token is minted for.
type Principal struct {
	UserID   string
	TenantID string
	Role     string
	Sites    []string
	Email    string
}

// NewClaims builds claims of the given type for p, valid from now for ttl.
func NewClaims(
	typ string,
	p Principal,
	mfaVerified bool,
	amr []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Type:        typ,
		TenantID:    p.TenantID,
		Role:        p.Role,
		Sites:       p.Sites,
		Email:       p.Email,
		MFAVerified: mfaVerified,
		AMR:         amr,
	}
}

// NewJTI returns a random UUID for the "jti" claim. Two tokens minted in the
// same second for the same user still differ, which keeps blacklist
// fingerprints unique.
func NewJTI() string {
	return uuid.NewString()
}

// Remaining is the time left until exp, zero when already expired.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateType checks the "typ" claim.
func (c *Claims) ValidateType(expected string) error {
	if c.Type != expected {
		return ErrWrongType
	}
	return nil
}

// ValidateExpiryAt ensures the token hasn't expired (exp) and isn't before
// nbf at the given instant, allowing leeway for clock skew.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
