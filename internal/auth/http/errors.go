package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/internal/auth/sso"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// serviceErrors maps service sentinels to their API form. This is the only
// place where errors become status codes.
var serviceErrors = []struct {
	err error
	api *authsdk.APIError
}{
	{service.ErrInvalidCredentials, authsdk.ErrInvalidCredentials},
	{service.ErrAccountInactive, authsdk.ErrAccountInactive},
	{service.ErrMFAChallengeExpired, authsdk.ErrMFAChallengeExpired},
	{service.ErrInvalidMFACode, authsdk.ErrInvalidMFACode},
	{service.ErrMFAAttemptsExceeded, authsdk.ErrMFAAttemptsExceeded},
	{service.ErrMFAAlreadyEnabled, authsdk.ErrMFAAlreadyEnabled},
	{service.ErrMFANotEnabled, authsdk.ErrMFANotEnabled},
	{service.ErrNoPendingEnrollment, authsdk.ErrNoPendingEnrollment},
	{service.ErrTokenInvalid, authsdk.ErrTokenInvalid},
	{service.ErrTokenRevoked, authsdk.ErrTokenRevoked},
	{service.ErrUserInactive, authsdk.ErrUserInactive},
}

// apiError converts err to the response it produces. Unknown errors become
// INTERNAL_ERROR; their detail is logged and never returned.
func apiError(r *http.Request, err error) *authsdk.APIError {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.api
		}
	}

	var fe *sso.FederationError
	if errors.As(err, &fe) {
		// Every reason stays a client error, transport included; only a
		// tenant without federation settings is reported as missing.
		out := authsdk.ErrFederation.WithReason(fe.Reason)
		if fe.Reason == sso.ReasonConfig {
			out.StatusCode = http.StatusNotFound
		}
		return out
	}

	slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	return authsdk.ErrInternal
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiError(r, err).WriteError(w)
}
