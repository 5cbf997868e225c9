package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// AuthHandler serves the password login, MFA challenge, refresh, logout and
// profile endpoints.
type AuthHandler struct {
	LoginService *service.LoginService
	TokenService *service.TokenService
	UserService  *service.UserService
}

// HandleLogin godoc
//
//	@Summary		Log in with email and password
//	@Description	Returns a token pair, or an MFA challenge when the account has MFA enabled.
//	@Description	Unknown email, wrong password and inactive account are indistinguishable.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Tokens or MFA challenge"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil || req.Email == "" || req.Password == "" {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	res, err := h.LoginService.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeLoginResult(w, res)
}

// HandleVerifyMFA godoc
//
//	@Summary		Complete an MFA challenge
//	@Description	Accepts a TOTP code or an unused backup code for a pending login challenge.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.MFAVerifyRequest	true	"Challenge and code"
//	@Success		200		{object}	authsdk.TokenResponse		"Token pair"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Expired challenge or invalid code"
//	@Failure		403		{object}	authsdk.ErrorResponse		"Account inactive"
//	@Failure		429		{object}	authsdk.ErrorResponse		"Too many attempts"
//	@Router			/v1/auth/mfa/verify [post].
func (h *AuthHandler) HandleVerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req authsdk.MFAVerifyRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil ||
		req.UserID == "" || req.Code == "" || req.ChallengeToken == "" {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	res, err := h.LoginService.VerifyMFA(r.Context(), req.UserID, req.ChallengeToken, strings.TrimSpace(req.Code))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res))
}

// HandleRefresh godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Each refresh token is accepted once. The response carries a new pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse	"New token pair"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid, revoked or inactive"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil || req.RefreshToken == "" {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair, nil))
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the given refresh token. The access token expires naturally.
//	@Description	Unknown or already revoked refresh tokens still return 200.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LogoutRequest		false	"Refresh token to revoke"
//	@Success		200		{object}	authsdk.MessageResponse		"Logged out"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LogoutRequest
	if err := httpx.DecodeJSON(r, &req, true); err != nil {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	if req.RefreshToken != "" {
		if err := h.TokenService.Revoke(ctx, req.RefreshToken); err != nil {
			if !errors.Is(err, service.ErrTokenInvalid) {
				writeError(w, r, err)
				return
			}
			log.Warn("logout with invalid refresh token", "err", err)
		}
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "logged out"})
}

// HandleMe godoc
//
//	@Summary		Current user profile
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.ProfileResponse	"Profile"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid token or inactive user"
//	@Router			/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	u, mfa, err := h.UserService.Profile(ctx, claims.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ProfileResponse{
		ID:                   u.ID,
		TenantID:             u.TenantID,
		Email:                u.Email,
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		Role:                 u.Role,
		SiteScope:            nonNil(u.SiteScope),
		MFAEnabled:           mfa.Enabled,
		MFAVerified:          claims.MFAVerified,
		BackupCodesRemaining: mfa.BackupCodesRemaining,
		LastLoginAt:          u.LastLoginAt,
	})
}

// writeLoginResult writes either the challenge or the token pair.
func writeLoginResult(w http.ResponseWriter, res domain.LoginResult) {
	if res.RequiresMFA() {
		expiresAt := res.Challenge.ExpiresAt
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			RequireMFA:     true,
			UserID:         res.Challenge.UserID,
			ChallengeToken: res.Challenge.Token,
			ExpiresAt:      &expiresAt,
		})
		return
	}
	tr := tokenResponse(res)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{TokenResponse: &tr})
}

func tokenResponse(res domain.LoginResult) authsdk.TokenResponse {
	id := res.Identity
	return toTokenResponse(*res.Tokens, &authsdk.UserSummary{
		ID:         id.UserID,
		TenantID:   id.TenantID,
		Email:      id.Email,
		FirstName:  id.FirstName,
		LastName:   id.LastName,
		Role:       id.Role,
		SiteScope:  nonNil(id.SiteScope),
		MFAEnabled: id.MFAEnabled,
	})
}

func toTokenResponse(pair domain.TokenPair, user *authsdk.UserSummary) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		User:         user,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
