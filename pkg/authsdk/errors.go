package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

// Stable error codes returned in the "code" field of every API error.
const (
	ErrorCodeBadRequest          = "BAD_REQUEST"
	ErrorCodeUnauthorized        = "UNAUTHORIZED"
	ErrorCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrorCodeAccountInactive     = "ACCOUNT_INACTIVE"
	ErrorCodeMFAChallengeExpired = "MFA_CHALLENGE_EXPIRED"
	ErrorCodeInvalidMFACode      = "INVALID_MFA_CODE"
	ErrorCodeMFAAttemptsExceeded = "MFA_ATTEMPTS_EXCEEDED"
	ErrorCodeMFAAlreadyEnabled   = "MFA_ALREADY_ENABLED"
	ErrorCodeMFANotEnabled       = "MFA_NOT_ENABLED"
	ErrorCodeNoPendingEnrollment = "NO_PENDING_ENROLLMENT"
	ErrorCodeTokenInvalid        = "TOKEN_INVALID"
	ErrorCodeTokenRevoked        = "TOKEN_REVOKED"
	ErrorCodeUserInactive        = "USER_INACTIVE"
	ErrorCodeFederation          = "FEDERATION_ERROR"
	ErrorCodeRateLimited         = "RATE_LIMITED"
	ErrorCodeInternal            = "INTERNAL_ERROR"
)

// APIError is the error body of the API. The server writes it with
// WriteError and the SDK returns it from failed calls.
type APIError struct {
	StatusCode int `json:"-"`

	Code    string `json:"code"`
	Message string `json:"message"`

	// Reason narrows FEDERATION_ERROR, e.g. "signature" or "audience".
	Reason string `json:"reason,omitempty"`
}

// ErrorResponse documents the error body in the OpenAPI spec.
type ErrorResponse = APIError

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteError writes e as the response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

// WithReason returns a copy of e carrying reason.
func (e *APIError) WithReason(reason string) *APIError {
	c := *e
	c.Reason = reason
	return &c
}

// NewAPIError builds an APIError.
func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

var (
	ErrBadRequest = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeBadRequest,
		Message:    "the request is malformed or missing required fields",
	}

	ErrUnauthorized = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeUnauthorized,
		Message:    "missing or invalid access token",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidCredentials,
		Message:    "invalid email or password",
	}

	ErrAccountInactive = &APIError{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeAccountInactive,
		Message:    "account is inactive",
	}

	ErrMFAChallengeExpired = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeMFAChallengeExpired,
		Message:    "mfa challenge expired, log in again",
	}

	ErrInvalidMFACode = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidMFACode,
		Message:    "invalid mfa code",
	}

	ErrMFAAttemptsExceeded = &APIError{
		StatusCode: http.StatusTooManyRequests,
		Code:       ErrorCodeMFAAttemptsExceeded,
		Message:    "too many mfa attempts, log in again",
	}

	ErrMFAAlreadyEnabled = &APIError{
		StatusCode: http.StatusConflict,
		Code:       ErrorCodeMFAAlreadyEnabled,
		Message:    "mfa is already enabled",
	}

	ErrMFANotEnabled = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeMFANotEnabled,
		Message:    "mfa is not enabled",
	}

	ErrNoPendingEnrollment = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeNoPendingEnrollment,
		Message:    "no pending mfa enrollment, start setup again",
	}

	ErrTokenInvalid = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeTokenInvalid,
		Message:    "token is invalid or expired",
	}

	ErrTokenRevoked = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeTokenRevoked,
		Message:    "token has been revoked",
	}

	ErrUserInactive = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeUserInactive,
		Message:    "user is inactive",
	}

	ErrFederation = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeFederation,
		Message:    "federated login failed",
	}

	ErrInternal = &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeInternal,
		Message:    "internal server error",
	}
)

// MFARequiredError is returned by SDKClient.Login when the account has MFA
// enabled. Pass it to SDKClient.VerifyMFA with a TOTP or backup code.
type MFARequiredError struct {
	UserID         string
	ChallengeToken string
	ExpiresAt      time.Time
}

func (e *MFARequiredError) Error() string {
	return "mfa required"
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// parseErrorResponse turns a non-success response into an *APIError. Bodies
// that are not API errors keep the status and raw text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       http.StatusText(resp.StatusCode),
		Message:    string(body),
	}
}
