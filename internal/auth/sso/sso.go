// Package sso adapts external identity providers (SAML 2.0 and OpenID
// Connect) into a normalized domain.FederatedIdentity.
//
// Every failure is reported as a *FederationError carrying a coarse reason;
// a partial identity is never returned.
package sso

import (
	"errors"
	"fmt"
	"time"
)

// Failure reasons.
const (
	ReasonSignature = "signature"
	ReasonAudience  = "audience"
	ReasonExpiry    = "expiry"
	ReasonTransport = "transport"
	ReasonIssuer    = "issuer"
	ReasonNonce     = "nonce"
	ReasonIdentity  = "identity"
	ReasonProtocol  = "protocol"
	ReasonConfig    = "config"
)

// DefaultTimeout bounds the outbound calls made for one login.
const DefaultTimeout = 10 * time.Second

// FederationError is returned for every rejected federated login.
type FederationError struct {
	Reason string
	Err    error
}

func (e *FederationError) Error() string {
	if e.Err == nil {
		return "federation: " + e.Reason
	}
	return fmt.Sprintf("federation %s: %v", e.Reason, e.Err)
}

func (e *FederationError) Unwrap() error { return e.Err }

// ReasonOf returns the reason of a FederationError in err's chain, or "".
func ReasonOf(err error) string {
	var fe *FederationError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}

func fail(reason string, err error) *FederationError {
	return &FederationError{Reason: reason, Err: err}
}

func failf(reason, format string, args ...any) *FederationError {
	return &FederationError{Reason: reason, Err: fmt.Errorf(format, args...)}
}
