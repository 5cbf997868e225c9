package domain

import "time"

// MFA methods reported after a successful challenge.
const (
	MFAMethodTOTP       = "totp"
	MFAMethodBackupCode = "backup_code"
)

// EnrollmentTicket is the pending enrollment kept in the secret store until
// the first TOTP code is confirmed.
type EnrollmentTicket struct {
	Secret           string    `json:"secret"`
	BackupCodeHashes []string  `json:"backupCodeHashes"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ChallengeTicket binds a login in progress to the challenge token handed
// to the client. Only the token fingerprint is stored.
type ChallengeTicket struct {
	TokenHash   string    `json:"tokenHash"`
	FirstFactor string    `json:"firstFactor,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Enrollment is returned once when enrollment starts. The backup codes are
// never retrievable again.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
	BackupCodes     []string
	ExpiresAt       time.Time
}

// Challenge is handed to a client whose login needs a second factor.
type Challenge struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// MFAResult is a satisfied challenge: the second factor used and the first
// factor that opened the challenge.
type MFAResult struct {
	Method      string
	FirstFactor string
}

// MFAStatus summarises a user's second factor for profile responses.
type MFAStatus struct {
	Enabled              bool
	BackupCodesRemaining int
}
