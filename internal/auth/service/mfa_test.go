package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatehouse/internal/auth/audit"
	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
)

func TestStartEnrollment(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	u := h.seedUser("ada@example.com")

	enr, err := h.mfa.StartEnrollment(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)
	require.True(t, strings.HasPrefix(enr.ProvisioningURI, "otpauth://totp/"))
	require.Contains(t, enr.ProvisioningURI, "issuer=Gatehouse")
	require.Len(t, enr.BackupCodes, 10)
	require.Equal(t, h.clock.Now().Add(MaxEnrollmentTTL), enr.ExpiresAt)

	// Nothing is enabled until confirmation.
	status, err := h.mfa.Status(context.Background(), u.ID)
	require.NoError(t, err)
	require.False(t, status.Enabled)
	require.Len(t, h.events(audit.EventEnrollmentStarted), 1)
}

func TestConfirmEnrollment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("enables mfa and stores backup codes", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		h.enableMFA(u.ID)

		status, err := h.mfa.Status(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, domain.MFAStatus{Enabled: true, BackupCodesRemaining: 10}, status)

		stored, err := h.store.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.MFASecret)
		require.Len(t, h.events(audit.EventMFAEnabled), 1)

		_, err = h.secrets.Get(ctx, enrollKey(u.ID))
		require.Error(t, err, "ticket is consumed")
	})

	t.Run("wrong code keeps the ticket", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr, err := h.mfa.StartEnrollment(ctx, u.ID)
		require.NoError(t, err)

		require.ErrorIs(t, h.mfa.ConfirmEnrollment(ctx, u.ID, h.wrongCode(enr.Secret)), ErrInvalidMFACode)
		require.NoError(t, h.mfa.ConfirmEnrollment(ctx, u.ID, h.code(enr.Secret)))
	})

	t.Run("no pending enrollment", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		require.ErrorIs(t, h.mfa.ConfirmEnrollment(ctx, u.ID, "123456"), ErrNoPendingEnrollment)
	})

	t.Run("enrollment expires", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr, err := h.mfa.StartEnrollment(ctx, u.ID)
		require.NoError(t, err)

		h.advance(MaxEnrollmentTTL + time.Second)
		require.ErrorIs(t, h.mfa.ConfirmEnrollment(ctx, u.ID, h.code(enr.Secret)), ErrNoPendingEnrollment)
	})

	t.Run("already enabled", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		h.enableMFA(u.ID)

		_, err := h.mfa.StartEnrollment(ctx, u.ID)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})

	t.Run("confirmation code is spent for the next login", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr, err := h.mfa.StartEnrollment(ctx, u.ID)
		require.NoError(t, err)
		code := h.code(enr.Secret)
		require.NoError(t, h.mfa.ConfirmEnrollment(ctx, u.ID, code))
		require.Equal(t, totpReplayWindow, h.mr.TTL("test:"+totpUsedKey(u.ID, code)))

		// Same step: the code that enabled MFA cannot also complete a login.
		ch, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, code)
		require.ErrorIs(t, err, ErrInvalidMFACode)

		// The next step's code goes through.
		h.advance(30 * time.Second)
		ch, err = h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, h.code(enr.Secret))
		require.NoError(t, err)
	})

	t.Run("failed enable releases the code", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr, err := h.mfa.StartEnrollment(ctx, u.ID)
		require.NoError(t, err)
		code := h.code(enr.Secret)

		h.mfa.Store = failingTxStore{Store: h.store}
		require.ErrorIs(t, h.mfa.ConfirmEnrollment(ctx, u.ID, code), errTxFailed)
		require.False(t, h.mr.Exists("test:"+totpUsedKey(u.ID, code)))

		h.mfa.Store = h.store
		require.NoError(t, h.mfa.ConfirmEnrollment(ctx, u.ID, code))
		status, err := h.mfa.Status(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, status.Enabled)
	})

	t.Run("enroll ttl is capped", func(t *testing.T) {
		h := newHarness(t)
		h.mfa.EnrollTTL = time.Hour
		u := h.seedUser("ada@example.com")

		enr, err := h.mfa.StartEnrollment(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, h.clock.Now().Add(MaxEnrollmentTTL), enr.ExpiresAt)
		require.Equal(t, MaxEnrollmentTTL, h.mr.TTL("test:"+enrollKey(u.ID)))
	})
}

// failingTxStore fails every transaction while leaving reads intact.
type failingTxStore struct {
	store.Store
}

var errTxFailed = errors.New("tx failed")

func (failingTxStore) WithTx(context.Context, func(store.Tx) error) error {
	return errTxFailed
}

func TestVerifyChallenge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("totp", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)

		ch, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		res, err := h.mfa.Verify(ctx, u.ID, ch.Token, h.code(enr.Secret))
		require.NoError(t, err)
		require.Equal(t, domain.MFAResult{Method: domain.MFAMethodTOTP, FirstFactor: domain.MethodPassword}, res)

		// The challenge is single use.
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, h.code(enr.Secret))
		require.ErrorIs(t, err, ErrMFAChallengeExpired)
	})

	t.Run("totp code cannot be replayed", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)
		code := h.code(enr.Secret)

		ch, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, code)
		require.NoError(t, err)

		ch, err = h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, code)
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	t.Run("backup code is consumed forever", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)
		backup := strings.ToLower(enr.BackupCodes[3])

		ch, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		res, err := h.mfa.Verify(ctx, u.ID, ch.Token, backup)
		require.NoError(t, err)
		require.Equal(t, domain.MFAMethodBackupCode, res.Method)

		status, err := h.mfa.Status(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, 9, status.BackupCodesRemaining)

		ch, err = h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, backup)
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	t.Run("wrong token", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)

		_, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		_, err = h.mfa.Verify(ctx, u.ID, "not-the-token", h.code(enr.Secret))
		require.ErrorIs(t, err, ErrMFAChallengeExpired)
	})

	t.Run("new challenge replaces the old one", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)

		first, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		second, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)

		_, err = h.mfa.Verify(ctx, u.ID, first.Token, h.code(enr.Secret))
		require.ErrorIs(t, err, ErrMFAChallengeExpired)

		// The stale token dropped the ticket too.
		_, err = h.mfa.Verify(ctx, u.ID, second.Token, h.code(enr.Secret))
		require.ErrorIs(t, err, ErrMFAChallengeExpired)
	})

	t.Run("challenge expires after five minutes", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)

		ch, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, h.clock.Now().Add(MaxChallengeTTL), ch.ExpiresAt)

		h.advance(MaxChallengeTTL)
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, h.code(enr.Secret))
		require.ErrorIs(t, err, ErrMFAChallengeExpired)
	})

	t.Run("challenge requires mfa", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		_, err := h.mfa.Challenge(ctx, u.ID)
		require.ErrorIs(t, err, ErrMFANotEnabled)
	})
}

func TestVerifyAttemptLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("exhausts after max attempts", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)

		ch, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		for range DefaultMaxMFAAttempts - 1 {
			_, err := h.mfa.Verify(ctx, u.ID, ch.Token, h.wrongCode(enr.Secret))
			require.ErrorIs(t, err, ErrInvalidMFACode)
		}
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, h.wrongCode(enr.Secret))
		require.ErrorIs(t, err, ErrMFAAttemptsExceeded)

		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, h.code(enr.Secret))
		require.ErrorIs(t, err, ErrMFAChallengeExpired)
	})

	t.Run("zero means ttl only", func(t *testing.T) {
		h := newHarness(t)
		h.mfa.MaxAttempts = 0
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)

		ch, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		for range 2 * DefaultMaxMFAAttempts {
			_, err := h.mfa.Verify(ctx, u.ID, ch.Token, h.wrongCode(enr.Secret))
			require.ErrorIs(t, err, ErrInvalidMFACode)
		}
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, h.code(enr.Secret))
		require.NoError(t, err)
	})

	t.Run("new challenge resets the budget", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)

		ch, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		for range DefaultMaxMFAAttempts - 1 {
			_, err := h.mfa.Verify(ctx, u.ID, ch.Token, h.wrongCode(enr.Secret))
			require.ErrorIs(t, err, ErrInvalidMFACode)
		}

		ch, err = h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, h.wrongCode(enr.Secret))
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})
}

func TestConcurrentBackupCodeConsumption(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	u := h.seedUser("ada@example.com")
	enr := h.enableMFA(u.ID)

	ch, err := h.mfa.Challenge(ctx, u.ID)
	require.NoError(t, err)

	// Stay under the attempt budget so losers cannot drop the challenge.
	const workers = DefaultMaxMFAAttempts - 1
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.mfa.Verify(ctx, u.ID, ch.Token, enr.BackupCodes[0]); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	status, err := h.mfa.Status(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 9, status.BackupCodesRemaining)
}

func TestDisableMFA(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("requires password and code", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		enr := h.enableMFA(u.ID)

		require.ErrorIs(t, h.mfa.Disable(ctx, u.ID, "wrong password", h.code(enr.Secret)), ErrInvalidCredentials)
		require.ErrorIs(t, h.mfa.Disable(ctx, u.ID, testPassword, h.wrongCode(enr.Secret)), ErrInvalidMFACode)
		require.NoError(t, h.mfa.Disable(ctx, u.ID, testPassword, h.code(enr.Secret)))

		status, err := h.mfa.Status(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, domain.MFAStatus{}, status)

		n, err := h.store.BackupCodes().CountUnusedBackupCodes(ctx, u.ID)
		require.NoError(t, err)
		require.Zero(t, n)
		require.Len(t, h.events(audit.EventMFADisabled), 1)
	})

	t.Run("not enabled", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		require.ErrorIs(t, h.mfa.Disable(ctx, u.ID, testPassword, "123456"), ErrMFANotEnabled)
	})

	t.Run("re-enrolling issues fresh backup codes", func(t *testing.T) {
		h := newHarness(t)
		u := h.seedUser("ada@example.com")
		old := h.enableMFA(u.ID)
		require.NoError(t, h.mfa.Disable(ctx, u.ID, testPassword, h.code(old.Secret)))
		h.advance(30 * time.Second)

		fresh := h.enableMFA(u.ID)
		ch, err := h.mfa.Challenge(ctx, u.ID)
		require.NoError(t, err)
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, old.BackupCodes[0])
		require.ErrorIs(t, err, ErrInvalidMFACode)
		_, err = h.mfa.Verify(ctx, u.ID, ch.Token, fresh.BackupCodes[0])
		require.NoError(t, err)
	})
}
