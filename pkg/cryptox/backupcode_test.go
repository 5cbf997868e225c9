package cryptox

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var backupCodePattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}(-[A-HJ-NP-Z2-9]{4}){3}$`)

func TestGenerateBackupCode(t *testing.T) {
	seen := map[string]struct{}{}
	for range 50 {
		code, err := GenerateBackupCode()
		require.NoError(t, err)
		require.Regexp(t, backupCodePattern, code)

		_, dup := seen[code]
		require.False(t, dup)
		seen[code] = struct{}{}
	}
}

func TestNormalizeBackupCode(t *testing.T) {
	require.Equal(t, "ABCD2345EFGH6789", NormalizeBackupCode("abcd-2345 efgh-6789"))
	require.Equal(t, "ABCD", NormalizeBackupCode("\tAbCd "))
}

func TestFingerprintBackupCode(t *testing.T) {
	require.Equal(t,
		FingerprintBackupCode("ABCD-2345-EFGH-6789"),
		FingerprintBackupCode("abcd2345efgh6789"),
	)
	require.NotEqual(t,
		FingerprintBackupCode("ABCD-2345-EFGH-6789"),
		FingerprintBackupCode("ABCD-2345-EFGH-6788"),
	)
}
