package domain

import "time"

// User is a stored credential record.
type User struct {
	ID           string
	TenantID     string
	Email        string // unique, matched exactly
	PasswordHash string // argon2id PHC, legacy bcrypt accepted
	Role         string
	Active       bool
	SiteScope    []string
	FirstName    string
	LastName     string
	MFAEnabledAt *time.Time // nil when MFA is off
	MFASecret    *string    // sealed TOTP seed, set only while MFA is on
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFAEnabled reports whether the account has a confirmed second factor.
func (u *User) MFAEnabled() bool {
	return u.MFAEnabledAt != nil
}

// Identity returns the verified identity for u, minus any secret material.
func (u *User) Identity(method string) Identity {
	return Identity{
		UserID:     u.ID,
		TenantID:   u.TenantID,
		Email:      u.Email,
		Role:       u.Role,
		SiteScope:  u.SiteScope,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		MFAEnabled: u.MFAEnabled(),
		Method:     method,
	}
}

// BackupCode is one stored backup code fingerprint.
type BackupCode struct {
	ID        string
	UserID    string
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}
