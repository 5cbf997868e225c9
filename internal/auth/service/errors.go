package service

import "errors"

// Errors returned to callers. The HTTP layer is the only place that maps
// them to status codes.
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrMFAChallengeExpired = errors.New("mfa challenge expired or not found")
	ErrInvalidMFACode      = errors.New("invalid mfa code")
	ErrMFAAttemptsExceeded = errors.New("too many mfa attempts")
	ErrMFAAlreadyEnabled   = errors.New("mfa already enabled")
	ErrMFANotEnabled       = errors.New("mfa not enabled")
	ErrNoPendingEnrollment = errors.New("no pending mfa enrollment")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrUserInactive        = errors.New("user inactive")
)
