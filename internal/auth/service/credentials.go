package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/audit"
	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// Internal failure reasons. They reach the audit log and never the caller.
const (
	reasonUnknownEmail = "unknown_email"
	reasonInactive     = "inactive"
	reasonBadPassword  = "bad_password"
)

// CredentialVerifier checks email and password pairs against the identity
// store.
type CredentialVerifier struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Audit  audit.Sink

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Verify returns the identity for a valid, active account. Unknown email,
// inactive account and wrong password all yield ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (domain.Identity, error) {
	l := slogx.FromContext(ctx)

	u, err := v.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			v.Hasher.VerifyDummy(password)
			v.fail(ctx, "", "", reasonUnknownEmail)
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	// Hash before looking at the active flag so both paths cost the same.
	hashErr := v.Hasher.Verify(password, u.PasswordHash)

	if !u.Active {
		v.fail(ctx, u.ID, u.TenantID, reasonInactive)
		return domain.Identity{}, ErrInvalidCredentials
	}
	if hashErr != nil {
		if !errors.Is(hashErr, cryptox.ErrPasswordMismatch) {
			l.Error("stored password hash unusable", slog.String("user_id", u.ID), slog.Any("err", hashErr))
		}
		v.fail(ctx, u.ID, u.TenantID, reasonBadPassword)
		return domain.Identity{}, ErrInvalidCredentials
	}

	return u.Identity(domain.MethodPassword), nil
}

// VerifyUserPassword re-checks the password of an already authenticated user.
func (v *CredentialVerifier) VerifyUserPassword(ctx context.Context, userID, password string) error {
	u, err := v.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			v.Hasher.VerifyDummy(password)
			return ErrInvalidCredentials
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if err := v.Hasher.Verify(password, u.PasswordHash); err != nil || !u.Active {
		return ErrInvalidCredentials
	}
	return nil
}

// RecordLogin stamps the last successful login.
func (v *CredentialVerifier) RecordLogin(ctx context.Context, userID string) error {
	return v.Store.Users().TouchLastLogin(ctx, userID, v.now())
}

func (v *CredentialVerifier) fail(ctx context.Context, userID, tenantID, reason string) {
	audit.Emit(ctx, v.Audit, audit.Event{
		Type:     audit.EventLogin,
		UserID:   userID,
		TenantID: tenantID,
		Method:   domain.MethodPassword,
		Success:  false,
		Reason:   reason,
	})
}

func (v *CredentialVerifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}
