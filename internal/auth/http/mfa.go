package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

// MFAHandler handles MFA enrollment and removal for the signed-in user.
type MFAHandler struct {
	MFAService *service.MFAController
}

// HandleSetup godoc
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates a TOTP secret and ten backup codes. Nothing is enabled until the first code is confirmed.
//	@Description	The backup codes are only ever returned here.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MFASetupResponse	"Secret, provisioning URI and backup codes"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409	{object}	authsdk.ErrorResponse		"MFA already enabled"
//	@Router			/v1/auth/mfa/setup [post].
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	enr, err := h.MFAService.StartEnrollment(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFASetupResponse{
		Secret:                enr.Secret,
		SecretProvisioningURI: enr.ProvisioningURI,
		BackupCodes:           enr.BackupCodes,
		ExpiresAt:             enr.ExpiresAt,
	})
}

// HandleConfirm godoc
//
//	@Summary		Confirm TOTP enrollment
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.MFAConfirmRequest	true	"First code from the authenticator"
//	@Success		200		{object}	authsdk.MessageResponse		"MFA enabled"
//	@Failure		400		{object}	authsdk.ErrorResponse		"No pending enrollment"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Invalid code"
//	@Failure		409		{object}	authsdk.ErrorResponse		"MFA already enabled"
//	@Router			/v1/auth/mfa/confirm [post].
func (h *MFAHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	var req authsdk.MFAConfirmRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil || req.Code == "" {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	if err := h.MFAService.ConfirmEnrollment(r.Context(), userID, strings.TrimSpace(req.Code)); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "mfa enabled"})
}

// HandleDisable godoc
//
//	@Summary		Disable MFA
//	@Description	Requires the account password and a current TOTP code. All backup codes are discarded.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.MFADisableRequest	true	"Password and code"
//	@Success		200		{object}	authsdk.MessageResponse		"MFA disabled"
//	@Failure		400		{object}	authsdk.ErrorResponse		"MFA not enabled"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Wrong password or code"
//	@Router			/v1/auth/mfa/disable [post].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	var req authsdk.MFADisableRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil || req.Password == "" || req.Code == "" {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	if err := h.MFAService.Disable(r.Context(), userID, req.Password, strings.TrimSpace(req.Code)); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "mfa disabled"})
}
