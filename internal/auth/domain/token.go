package domain

import "time"

// TokenPair is an access JWT plus the refresh JWT that rotates it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // "Bearer"
	ExpiresIn    time.Duration
}

// Blacklist tombstone reasons.
const (
	RevokedRotated = "rotated"
	RevokedLogout  = "logout"
)
