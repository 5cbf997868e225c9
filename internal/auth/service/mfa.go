package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/audit"
	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/secrets"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	backupCodeCount = 10

	// MaxEnrollmentTTL and MaxChallengeTTL bound the configurable lifetimes.
	MaxEnrollmentTTL = 10 * time.Minute
	MaxChallengeTTL  = 5 * time.Minute

	// DefaultMaxMFAAttempts is the failed-code budget per challenge.
	DefaultMaxMFAAttempts = 5

	totpPeriod = 30
	totpSkew   = 1
	// An accepted code is remembered for the whole ±1 step window.
	totpReplayWindow = (2*totpSkew + 1) * totpPeriod * time.Second
)

func enrollKey(userID string) string    { return "mfa:enroll:" + userID }
func challengeKey(userID string) string { return "mfa:challenge:" + userID }
func attemptsKey(userID string) string  { return "mfa:attempts:" + userID }
func totpUsedKey(userID, code string) string {
	return "mfa:totp-used:" + userID + ":" + code
}

// MFAController drives TOTP enrollment, login challenges and their
// verification. Pending enrollments and challenges live only in the secret
// store; confirmed secrets are sealed before they reach the identity store.
type MFAController struct {
	Store       store.Store
	Secrets     secrets.Store
	Sealer      *cryptox.Sealer
	Credentials *CredentialVerifier
	Audit       audit.Sink

	// Issuer is the label authenticator apps show next to the account.
	Issuer string

	EnrollTTL    time.Duration
	ChallengeTTL time.Duration

	// MaxAttempts is the number of failed codes that exhausts a challenge.
	// Zero leaves the challenge TTL as the only bound.
	MaxAttempts int

	Now func() time.Time
}

// StartEnrollment generates a TOTP secret and backup codes and parks them in
// a pending ticket. Starting again replaces the pending ticket.
func (c *MFAController) StartEnrollment(ctx context.Context, userID string) (domain.Enrollment, error) {
	u, err := c.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("lookup user: %w", err)
	}
	if u.MFAEnabled() {
		return domain.Enrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      c.Issuer,
		AccountName: u.Email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	codes := make([]string, backupCodeCount)
	hashes := make([]string, backupCodeCount)
	for i := range backupCodeCount {
		code, err := cryptox.GenerateBackupCode()
		if err != nil {
			return domain.Enrollment{}, err
		}
		codes[i] = code
		hashes[i] = cryptox.FingerprintBackupCode(code)
	}

	now := c.now()
	ttl := c.enrollTTL()
	ticket := domain.EnrollmentTicket{
		Secret:           key.Secret(),
		BackupCodeHashes: hashes,
		CreatedAt:        now,
	}
	if err := c.putJSON(ctx, enrollKey(userID), ticket, ttl); err != nil {
		return domain.Enrollment{}, err
	}

	audit.Emit(ctx, c.Audit, audit.Event{
		Type:     audit.EventEnrollmentStarted,
		UserID:   u.ID,
		TenantID: u.TenantID,
		Success:  true,
	})

	return domain.Enrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		BackupCodes:     codes,
		ExpiresAt:       now.Add(ttl),
	}, nil
}

// ConfirmEnrollment enables MFA once the user proves possession of the
// pending secret. A wrong code leaves the ticket in place until it expires.
func (c *MFAController) ConfirmEnrollment(ctx context.Context, userID, code string) error {
	l := slogx.FromContext(ctx)

	var ticket domain.EnrollmentTicket
	if err := c.getJSON(ctx, enrollKey(userID), &ticket); err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return ErrNoPendingEnrollment
		}
		return err
	}

	u, err := c.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if u.MFAEnabled() {
		_ = c.Secrets.Delete(ctx, enrollKey(userID))
		return ErrMFAAlreadyEnabled
	}

	ok, err := c.checkTOTP(ctx, userID, ticket.Secret, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidMFACode
	}

	sealed, err := c.Sealer.Seal(ticket.Secret)
	if err != nil {
		return fmt.Errorf("seal mfa secret: %w", err)
	}

	err = c.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().EnableMFA(ctx, userID, sealed, c.now()); err != nil {
			return fmt.Errorf("enable mfa: %w", err)
		}
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("clear backup codes: %w", err)
		}
		if err := tx.BackupCodes().CreateBackupCodes(ctx, userID, ticket.BackupCodeHashes); err != nil {
			return fmt.Errorf("store backup codes: %w", err)
		}
		return nil
	})
	if err != nil {
		// Nothing was enabled, so the code has not really been spent.
		if derr := c.Secrets.Delete(ctx, totpUsedKey(userID, strings.TrimSpace(code))); derr != nil {
			l.Warn("failed to release totp replay guard", slog.Any("err", derr))
		}
		return err
	}

	if err := c.Secrets.Delete(ctx, enrollKey(userID)); err != nil {
		l.Warn("failed to delete enrollment ticket", slog.Any("err", err))
	}

	l.Info("mfa enabled", slog.String("user_id", userID))
	audit.Emit(ctx, c.Audit, audit.Event{
		Type:     audit.EventMFAEnabled,
		UserID:   u.ID,
		TenantID: u.TenantID,
		Success:  true,
	})
	return nil
}

// Challenge opens a second-factor challenge for a login in progress. Any
// earlier challenge for the user is replaced.
func (c *MFAController) Challenge(ctx context.Context, userID string) (domain.Challenge, error) {
	return c.ChallengeAfter(ctx, userID, domain.MethodPassword)
}

// ChallengeAfter is Challenge for a login whose first factor was firstFactor
// (a domain.Method* value).
func (c *MFAController) ChallengeAfter(ctx context.Context, userID, firstFactor string) (domain.Challenge, error) {
	u, err := c.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.MFAEnabled() {
		return domain.Challenge{}, ErrMFANotEnabled
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Challenge{}, err
	}

	now := c.now()
	ttl := c.challengeTTL()
	ticket := domain.ChallengeTicket{
		TokenHash:   cryptox.FingerprintToken(token),
		FirstFactor: firstFactor,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := c.putJSON(ctx, challengeKey(userID), ticket, ttl); err != nil {
		return domain.Challenge{}, err
	}
	if err := c.Secrets.Delete(ctx, attemptsKey(userID)); err != nil {
		return domain.Challenge{}, err
	}

	return domain.Challenge{UserID: userID, Token: token, ExpiresAt: ticket.ExpiresAt}, nil
}

// Verify checks a code against the live challenge. The result names the
// method that satisfied it (MFAMethodTOTP or MFAMethodBackupCode).
func (c *MFAController) Verify(ctx context.Context, userID, challengeToken, code string) (domain.MFAResult, error) {
	l := slogx.FromContext(ctx)

	var ticket domain.ChallengeTicket
	if err := c.getJSON(ctx, challengeKey(userID), &ticket); err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return domain.MFAResult{}, ErrMFAChallengeExpired
		}
		return domain.MFAResult{}, err
	}
	if !c.now().Before(ticket.ExpiresAt) || !cryptox.MatchesFingerprint(challengeToken, ticket.TokenHash) {
		c.dropChallenge(ctx, userID)
		return domain.MFAResult{}, ErrMFAChallengeExpired
	}

	u, err := c.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.MFAEnabled() || u.MFASecret == nil {
		c.dropChallenge(ctx, userID)
		return domain.MFAResult{}, ErrMFAChallengeExpired
	}
	secret, err := c.Sealer.Open(*u.MFASecret)
	if err != nil {
		return domain.MFAResult{}, fmt.Errorf("open mfa secret: %w", err)
	}

	method := ""
	ok, err := c.checkTOTP(ctx, userID, secret, code)
	if err != nil {
		return domain.MFAResult{}, err
	}
	if ok {
		method = domain.MFAMethodTOTP
	} else {
		used, err := c.Store.BackupCodes().ConsumeBackupCode(ctx, userID, cryptox.FingerprintBackupCode(code), c.now())
		if err != nil {
			return domain.MFAResult{}, fmt.Errorf("consume backup code: %w", err)
		}
		if used {
			method = domain.MFAMethodBackupCode
		}
	}

	if method == "" {
		return domain.MFAResult{}, c.recordFailure(ctx, userID)
	}

	// Claim the ticket. A concurrent verify that got here first wins.
	raw, err := c.Secrets.Take(ctx, challengeKey(userID))
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return domain.MFAResult{}, ErrMFAChallengeExpired
		}
		return domain.MFAResult{}, err
	}
	var claimed domain.ChallengeTicket
	if err := json.Unmarshal(raw, &claimed); err != nil || claimed.TokenHash != ticket.TokenHash {
		return domain.MFAResult{}, ErrMFAChallengeExpired
	}
	if err := c.Secrets.Delete(ctx, attemptsKey(userID)); err != nil {
		l.Warn("failed to reset mfa attempts", slog.Any("err", err))
	}

	if method == domain.MFAMethodBackupCode {
		l.Info("backup code consumed", slog.String("user_id", userID))
	}
	firstFactor := ticket.FirstFactor
	if firstFactor == "" {
		firstFactor = domain.MethodPassword
	}
	return domain.MFAResult{Method: method, FirstFactor: firstFactor}, nil
}

// Disable turns MFA off after re-checking both the password and a current
// TOTP code.
func (c *MFAController) Disable(ctx context.Context, userID, password, code string) error {
	u, err := c.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !u.MFAEnabled() || u.MFASecret == nil {
		return ErrMFANotEnabled
	}

	if err := c.Credentials.VerifyUserPassword(ctx, userID, password); err != nil {
		return err
	}

	secret, err := c.Sealer.Open(*u.MFASecret)
	if err != nil {
		return fmt.Errorf("open mfa secret: %w", err)
	}
	ok, err := c.checkTOTP(ctx, userID, secret, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidMFACode
	}

	err = c.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("delete backup codes: %w", err)
		}
		if err := tx.Users().DisableMFA(ctx, userID); err != nil {
			return fmt.Errorf("disable mfa: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.dropChallenge(ctx, userID)

	slogx.FromContext(ctx).Info("mfa disabled", slog.String("user_id", userID))
	audit.Emit(ctx, c.Audit, audit.Event{
		Type:     audit.EventMFADisabled,
		UserID:   u.ID,
		TenantID: u.TenantID,
		Success:  true,
	})
	return nil
}

// Status reports whether MFA is on and how many backup codes remain.
func (c *MFAController) Status(ctx context.Context, userID string) (domain.MFAStatus, error) {
	u, err := c.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAStatus{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.MFAEnabled() {
		return domain.MFAStatus{}, nil
	}
	n, err := c.Store.BackupCodes().CountUnusedBackupCodes(ctx, userID)
	if err != nil {
		return domain.MFAStatus{}, fmt.Errorf("count backup codes: %w", err)
	}
	return domain.MFAStatus{Enabled: true, BackupCodesRemaining: n}, nil
}

// checkTOTP validates code within ±1 step and rejects a code that was
// already accepted for this user.
func (c *MFAController) checkTOTP(ctx context.Context, userID, secret, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != int(otp.DigitsSix) {
		return false, nil
	}

	ok, err := totp.ValidateCustom(code, secret, c.now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		return false, nil
	}

	fresh, err := c.Secrets.SetNX(ctx, totpUsedKey(userID, code), []byte("1"), totpReplayWindow)
	if err != nil {
		return false, err
	}
	return fresh, nil
}

func (c *MFAController) recordFailure(ctx context.Context, userID string) error {
	if c.MaxAttempts <= 0 {
		return ErrInvalidMFACode
	}
	n, err := c.Secrets.Incr(ctx, attemptsKey(userID), c.challengeTTL())
	if err != nil {
		return err
	}
	if n >= int64(c.MaxAttempts) {
		c.dropChallenge(ctx, userID)
		slogx.FromContext(ctx).Warn("mfa challenge exhausted", slog.String("user_id", userID), slog.Int64("attempts", n))
		return ErrMFAAttemptsExceeded
	}
	return ErrInvalidMFACode
}

func (c *MFAController) dropChallenge(ctx context.Context, userID string) {
	if err := c.Secrets.Delete(ctx, challengeKey(userID), attemptsKey(userID)); err != nil {
		slogx.FromContext(ctx).Warn("failed to delete mfa challenge", slog.Any("err", err))
	}
}

func (c *MFAController) putJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Secrets.Set(ctx, key, raw, ttl)
}

func (c *MFAController) getJSON(ctx context.Context, key string, v any) error {
	raw, err := c.Secrets.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *MFAController) enrollTTL() time.Duration {
	if c.EnrollTTL <= 0 || c.EnrollTTL > MaxEnrollmentTTL {
		return MaxEnrollmentTTL
	}
	return c.EnrollTTL
}

func (c *MFAController) challengeTTL() time.Duration {
	if c.ChallengeTTL <= 0 || c.ChallengeTTL > MaxChallengeTTL {
		return MaxChallengeTTL
	}
	return c.ChallengeTTL
}

func (c *MFAController) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
