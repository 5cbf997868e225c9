package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the Gatehouse authentication service.
// It provides access to unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login authenticates with email and password. Accounts with MFA enabled
// return a *MFARequiredError to be completed with VerifyMFA.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var out LoginResponse
	err := c.postJSON(ctx, "/v1/auth/login", LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}

	if out.RequireMFA {
		mfaErr := &MFARequiredError{UserID: out.UserID, ChallengeToken: out.ChallengeToken}
		if out.ExpiresAt != nil {
			mfaErr.ExpiresAt = *out.ExpiresAt
		}
		return nil, mfaErr
	}
	if out.TokenResponse == nil {
		return nil, ErrInternal
	}
	return newSession(c, out.TokenResponse), nil
}

// VerifyMFA completes a login that stopped at the MFA challenge. code is a
// TOTP code or an unused backup code.
func (c *SDKClient) VerifyMFA(ctx context.Context, challenge *MFARequiredError, code string) (*Session, error) {
	var out TokenResponse
	err := c.postJSON(ctx, "/v1/auth/mfa/verify", MFAVerifyRequest{
		UserID:         challenge.UserID,
		Code:           code,
		ChallengeToken: challenge.ChallengeToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return newSession(c, &out), nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// is spent whether or not the caller keeps the response.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.postJSON(ctx, "/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithRefreshToken creates a session from a stored refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	tokenResp, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// NewSessionFromTokens creates a session from tokens obtained elsewhere, for
// example from an SSO callback. The session still refreshes on expiry.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}

// GetJWKS retrieves the JSON Web Key Set for token verification.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}
