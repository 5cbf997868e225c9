package domain

// LoginResult is either a token pair with the identity it was issued for, or
// an MFA challenge. Never both.
type LoginResult struct {
	Tokens    *TokenPair
	Identity  Identity
	Challenge *Challenge
}

// RequiresMFA reports whether the login stopped at the second factor.
func (r LoginResult) RequiresMFA() bool {
	return r.Challenge != nil
}
