package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// BackupCodeAlphabet leaves out characters that are easy to misread (0/O, 1/I).
const BackupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	backupCodeGroups    = 4
	backupCodeGroupSize = 4
)

// GenerateBackupCode returns an 80 bit code formatted as XXXX-XXXX-XXXX-XXXX.
func GenerateBackupCode() (string, error) {
	max := big.NewInt(int64(len(BackupCodeAlphabet)))

	var b strings.Builder
	for g := range backupCodeGroups {
		if g > 0 {
			b.WriteByte('-')
		}
		for range backupCodeGroupSize {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("failed to generate backup code: %w", err)
			}
			b.WriteByte(BackupCodeAlphabet[n.Int64()])
		}
	}
	return b.String(), nil
}

// NormalizeBackupCode strips separators and whitespace and upper-cases the
// code so users can type it however they like.
func NormalizeBackupCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ' || r == '\t':
			return -1
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		default:
			return r
		}
	}, code)
}

// FingerprintBackupCode is the stored form of a backup code.
func FingerprintBackupCode(code string) string {
	return FingerprintToken(NormalizeBackupCode(code))
}
