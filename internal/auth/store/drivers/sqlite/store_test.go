package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s store.Store, email string) domain.User {
	t.Helper()
	u := domain.User{
		ID:           idx.New().String(),
		TenantID:     "tenant-a",
		Email:        email,
		PasswordHash: "$argon2id$placeholder",
		Role:         "operator",
		Active:       true,
		SiteScope:    []string{"site-1", "site-2"},
		FirstName:    "Ada",
		LastName:     "Lovelace",
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	u := seedUser(t, s, "ada@example.com")

	got, err := s.Users().GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, []string{"site-1", "site-2"}, got.SiteScope)
	require.True(t, got.Active)
	require.Nil(t, got.MFAEnabledAt)
	require.Nil(t, got.MFASecret)
	require.False(t, got.MFAEnabled())

	// Exact match only.
	_, err = s.Users().GetUserByEmail(ctx, "ADA@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.Users().CreateUser(ctx, domain.User{ID: "other", TenantID: "t", Email: "ada@example.com", Role: "r"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsersMutations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := seedUser(t, s, "grace@example.com")

	require.NoError(t, s.Users().SetActive(ctx, u.ID, false))
	require.NoError(t, s.Users().UpdateAccess(ctx, u.ID, "admin", []string{"site-9"}))
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Users().TouchLastLogin(ctx, u.ID, at))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Equal(t, "admin", got.Role)
	require.Equal(t, []string{"site-9"}, got.SiteScope)
	require.NotNil(t, got.LastLoginAt)
	require.True(t, at.Equal(*got.LastLoginAt))

	require.ErrorIs(t, s.Users().SetActive(ctx, "missing", true), store.ErrNotFound)
}

func TestEnableDisableMFAInTx(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := seedUser(t, s, "mfa@example.com")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().EnableMFA(ctx, u.ID, "sealed", time.Now()); err != nil {
			return err
		}
		return tx.BackupCodes().CreateBackupCodes(ctx, u.ID, []string{"h1", "h2"})
	})
	require.NoError(t, err)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.MFAEnabled())
	require.Equal(t, "sealed", *got.MFASecret)

	n, err := s.BackupCodes().CountUnusedBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, s.Users().DisableMFA(ctx, u.ID))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.MFAEnabled())
	require.Nil(t, got.MFASecret)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := seedUser(t, s, "rollback@example.com")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().EnableMFA(ctx, u.ID, "sealed", time.Now()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.MFAEnabled())
}

func TestConsumeBackupCode(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := seedUser(t, s, "codes@example.com")
	require.NoError(t, s.BackupCodes().CreateBackupCodes(ctx, u.ID, []string{"h1", "h2"}))

	ok, err := s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "h1", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "h1", time.Now())
	require.NoError(t, err)
	require.False(t, ok, "a consumed code stays consumed")

	ok, err = s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "unknown", time.Now())
	require.NoError(t, err)
	require.False(t, ok)

	n, err := s.BackupCodes().CountUnusedBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestConsumeBackupCodeConcurrently(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := seedUser(t, s, "race@example.com")
	require.NoError(t, s.BackupCodes().CreateBackupCodes(ctx, u.ID, []string{"h1"}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "h1", time.Now())
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func TestDeleteUsedBackupCodes(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := seedUser(t, s, "prune@example.com")
	require.NoError(t, s.BackupCodes().CreateBackupCodes(ctx, u.ID, []string{"old", "new", "unused"}))

	now := time.Now()
	_, err := s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "old", now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "new", now)
	require.NoError(t, err)

	n, err := s.BackupCodes().DeleteUsedBackupCodes(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// The recently used code is still present and still consumed.
	ok, err := s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "new", now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFederationConfigs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.FederationConfigs().GetFederationConfig(ctx, "tenant-a", domain.ProtocolOIDC)
	require.ErrorIs(t, err, store.ErrNotFound)

	cfg := domain.FederationConfig{
		TenantID: "tenant-a",
		Protocol: domain.ProtocolOIDC,
		OIDC: &domain.OIDCConfig{
			IssuerURL: "https://idp.example.com",
			ClientID:  "gatehouse",
		},
	}
	require.NoError(t, s.FederationConfigs().UpsertFederationConfig(ctx, cfg))

	cfg.OIDC.ClientID = "gatehouse-2"
	require.NoError(t, s.FederationConfigs().UpsertFederationConfig(ctx, cfg))

	got, err := s.FederationConfigs().GetFederationConfig(ctx, "tenant-a", domain.ProtocolOIDC)
	require.NoError(t, err)
	require.Equal(t, "gatehouse-2", got.OIDC.ClientID)
	require.Nil(t, got.SAML)

	all, err := s.FederationConfigs().ListFederationConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
