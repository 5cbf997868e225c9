package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

var (
	ErrBootstrapAlready = errors.New("identity store already has accounts")
	ErrBootstrapInvalid = errors.New("bootstrap account requires tenant, email and password")
)

// BootstrapService seeds a fresh deployment from configuration: the first
// account and the per-tenant federation settings.
type BootstrapService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// IsBootstrapped reports whether any account exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// SeedAccount creates acct when the identity store is empty and returns the
// new user id. A store that already has accounts yields ErrBootstrapAlready.
func (s *BootstrapService) SeedAccount(ctx context.Context, acct domain.BootstrapAccount) (string, error) {
	l := slogx.FromContext(ctx)

	if acct.TenantID == "" || acct.Email == "" || acct.Password == "" {
		return "", ErrBootstrapInvalid
	}
	if bootstrapped, err := s.IsBootstrapped(ctx); err != nil {
		return "", fmt.Errorf("check bootstrap state: %w", err)
	} else if bootstrapped {
		return "", ErrBootstrapAlready
	}

	hash, err := s.Hasher.Hash(acct.Password)
	if err != nil {
		l.Error("failed to hash bootstrap password", slog.Any("err", err))
		return "", fmt.Errorf("hash password: %w", err)
	}

	role := acct.Role
	if role == "" {
		role = "admin"
	}

	userID := idx.New().String()
	err = s.Store.Users().CreateUser(ctx, domain.User{
		ID:           userID,
		TenantID:     acct.TenantID,
		Email:        acct.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		SiteScope:    acct.SiteScope,
		FirstName:    acct.FirstName,
		LastName:     acct.LastName,
	})
	if err != nil {
		l.Error("failed to create bootstrap account", slog.String("user_id", userID), slog.Any("err", err))
		return "", fmt.Errorf("create bootstrap account: %w", err)
	}

	l.Info("seeded bootstrap account",
		slog.String("user_id", userID),
		slog.String("tenant_id", acct.TenantID),
	)
	return userID, nil
}

// SyncFederation upserts every configured federation in one transaction.
func (s *BootstrapService) SyncFederation(ctx context.Context, cfgs []domain.FederationConfig) error {
	if len(cfgs) == 0 {
		return nil
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, cfg := range cfgs {
			if err := tx.FederationConfigs().UpsertFederationConfig(ctx, cfg); err != nil {
				return fmt.Errorf("upsert %s federation for %q: %w", cfg.Protocol, cfg.TenantID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("synced federation configs", slog.Int("count", len(cfgs)))
	return nil
}
