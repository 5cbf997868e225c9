package authsdk

import (
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
)

// ============================================================================
// Login Types
// ============================================================================

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"ada@example.com"`
	Password string `json:"password"`
}

// LoginResponse is either an MFA challenge (RequireMFA set) or a token
// response. Never both.
type LoginResponse struct {
	RequireMFA     bool       `json:"requireMFA"`
	UserID         string     `json:"userId,omitempty"`
	ChallengeToken string     `json:"challengeToken,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`

	*TokenResponse
}

// MFAVerifyRequest is the body of POST /v1/auth/mfa/verify.
type MFAVerifyRequest struct {
	UserID         string `json:"userId"`
	Code           string `json:"code" example:"123456"`
	ChallengeToken string `json:"challengeToken"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse carries a freshly issued access and refresh pair.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType" example:"Bearer"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expiresIn" example:"900"`

	// User is set on login responses and omitted on refresh.
	User *UserSummary `json:"user,omitempty"`
}

// RefreshRequest is the body of POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the optional body of POST /v1/auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// MessageResponse is returned by endpoints without a payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// User Types
// ============================================================================

// UserSummary is the account a token pair was issued for.
type UserSummary struct {
	ID         string   `json:"id"`
	TenantID   string   `json:"tenantId"`
	Email      string   `json:"email"`
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Role       string   `json:"role"`
	SiteScope  []string `json:"siteScope"`
	MFAEnabled bool     `json:"mfaEnabled"`
}

// ProfileResponse is returned from GET /v1/auth/me.
type ProfileResponse struct {
	ID                   string     `json:"id"`
	TenantID             string     `json:"tenantId"`
	Email                string     `json:"email"`
	FirstName            string     `json:"firstName,omitempty"`
	LastName             string     `json:"lastName,omitempty"`
	Role                 string     `json:"role"`
	SiteScope            []string   `json:"siteScope"`
	MFAEnabled           bool       `json:"mfaEnabled"`
	MFAVerified          bool       `json:"mfaVerified"`
	BackupCodesRemaining int        `json:"backupCodesRemaining"`
	LastLoginAt          *time.Time `json:"lastLoginAt,omitempty"`
}

// ============================================================================
// MFA Types
// ============================================================================

// MFASetupResponse is returned once when enrollment starts. The backup codes
// cannot be fetched again.
type MFASetupResponse struct {
	Secret                string    `json:"secret" example:"JBSWY3DPEHPK3PXP"`
	SecretProvisioningURI string    `json:"secretProvisioningUri" example:"otpauth://totp/Gatehouse:ada@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Gatehouse"`
	BackupCodes           []string  `json:"backupCodes"`
	ExpiresAt             time.Time `json:"expiresAt"`
}

// MFAConfirmRequest is the body of POST /v1/auth/mfa/confirm.
type MFAConfirmRequest struct {
	Code string `json:"code" example:"123456"`
}

// MFADisableRequest is the body of POST /v1/auth/mfa/disable.
type MFADisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code" example:"123456"`
}

// ============================================================================
// SSO Types
// ============================================================================

// RedirectResponse is returned by SSO start endpoints when the caller asks for
// JSON instead of a 302.
type RedirectResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime" example:"1h2m3s"`
	Version string        `json:"version" example:"v0.1.0"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the dependencies /readyz checks.
type HealthChecks struct {
	Database    string `json:"database"`
	SecretStore string `json:"secretStore"`
	Signer      string `json:"signer"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse contains the public keys that verify issued tokens.
type JWKSResponse jwtx.JWKS
