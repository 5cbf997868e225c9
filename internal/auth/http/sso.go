package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/internal/auth/sso"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

// maxACSFormBytes caps the form posted to the ACS. The SAMLResponse itself is
// capped again after decoding.
const maxACSFormBytes = 2 << 20

// SSOHandler serves the SAML SP and OIDC RP endpoints. Successful federated
// logins end in the same token or challenge response as a password login.
type SSOHandler struct {
	FederationService *service.FederationService
}

// HandleSAMLMetadata godoc
//
//	@Summary		SAML SP metadata
//	@Tags			SSO
//	@Produce		xml
//	@Param			tenant	query		string	true	"Tenant id"
//	@Success		200		{string}	string	"EntityDescriptor"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Tenant has no SAML federation"
//	@Router			/v1/auth/sso/saml/metadata [get].
func (h *SSOHandler) HandleSAMLMetadata(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	if tenant == "" {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	doc, err := h.FederationService.SAMLMetadata(r.Context(), tenant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/samlmetadata+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// HandleSAMLLogin godoc
//
//	@Summary		Start a SAML login
//	@Description	Redirects to the tenant's IdP with an AuthnRequest (HTTP-Redirect binding).
//	@Tags			SSO
//	@Param			tenant		path	string	true	"Tenant id"
//	@Param			RelayState	query	string	false	"Opaque value echoed back to the ACS"
//	@Success		302
//	@Failure		404	{object}	authsdk.ErrorResponse	"Tenant has no SAML federation"
//	@Router			/v1/auth/sso/saml/{tenant}/login [get].
func (h *SSOHandler) HandleSAMLLogin(w http.ResponseWriter, r *http.Request) {
	target, err := h.FederationService.SAMLLoginURL(r.Context(), r.PathValue("tenant"), r.URL.Query().Get("RelayState"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	redirect(w, r, target)
}

// HandleSAMLACS godoc
//
//	@Summary		SAML assertion consumer service
//	@Description	Validates the posted SAMLResponse: signature, issuer, audience, validity window and single use.
//	@Tags			SSO
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			tenant			path		string	true	"Tenant id"
//	@Param			SAMLResponse	formData	string	true	"Base64 encoded samlp:Response"
//	@Success		200				{object}	authsdk.LoginResponse	"Tokens or MFA challenge"
//	@Failure		400				{object}	authsdk.ErrorResponse	"Malformed body"
//	@Failure		401				{object}	authsdk.ErrorResponse	"FEDERATION_ERROR with reason"
//	@Router			/v1/auth/sso/saml/{tenant}/acs [post].
func (h *SSOHandler) HandleSAMLACS(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxACSFormBytes)
	if err := r.ParseForm(); err != nil {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}
	samlResponse := r.PostForm.Get("SAMLResponse")
	if samlResponse == "" {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	res, err := h.FederationService.SAMLAssertion(r.Context(), r.PathValue("tenant"), samlResponse)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeLoginResult(w, res)
}

// HandleOIDCAuthorize godoc
//
//	@Summary		Start an OIDC login
//	@Description	Redirects to the provider's authorization endpoint with state, nonce and PKCE.
//	@Tags			SSO
//	@Param			tenant	path	string	true	"Tenant id"
//	@Success		302
//	@Failure		401	{object}	authsdk.ErrorResponse	"FEDERATION_ERROR, reason transport when discovery fails"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Tenant has no OIDC federation"
//	@Router			/v1/auth/sso/oidc/{tenant}/authorize [get].
func (h *SSOHandler) HandleOIDCAuthorize(w http.ResponseWriter, r *http.Request) {
	target, err := h.FederationService.OIDCAuthorizeURL(r.Context(), r.PathValue("tenant"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	redirect(w, r, target)
}

// HandleOIDCCallback godoc
//
//	@Summary		OIDC redirect target
//	@Tags			SSO
//	@Produce		json
//	@Param			tenant	path		string	true	"Tenant id"
//	@Param			state	query		string	true	"State from the authorize redirect"
//	@Param			code	query		string	true	"Authorization code"
//	@Success		200		{object}	authsdk.LoginResponse	"Tokens or MFA challenge"
//	@Failure		401		{object}	authsdk.ErrorResponse	"FEDERATION_ERROR with reason"
//	@Router			/v1/auth/sso/oidc/{tenant}/callback [get].
func (h *SSOHandler) HandleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if idpErr := q.Get("error"); idpErr != "" {
		authsdk.ErrFederation.WithReason(sso.ReasonProtocol).WriteError(w)
		return
	}
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		authsdk.ErrBadRequest.WriteError(w)
		return
	}

	res, err := h.FederationService.OIDCCallback(r.Context(), r.PathValue("tenant"), state, code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeLoginResult(w, res)
}

// redirect sends a 302, or the target as JSON for clients that ask for it.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		httpx.WriteJSON(w, http.StatusOK, authsdk.RedirectResponse{RedirectURL: target})
		return
	}
	httpx.NoCache(w)
	http.Redirect(w, r, target, http.StatusFound)
}
