package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for the identity store. Drivers
// expose sub-repositories so a Tx can hand out the same repos bound to the
// transaction, and nobody opens a transaction inside a transaction.
type Store interface {
	Users() Users
	BackupCodes() BackupCodes
	FederationConfigs() FederationConfigs

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches the email exactly (case-sensitive).
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a user; a duplicate email returns ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	IsEmpty(ctx context.Context) (bool, error)

	SetActive(ctx context.Context, userID string, active bool) error
	UpdateAccess(ctx context.Context, userID, role string, sites []string) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error

	// EnableMFA stores the sealed TOTP secret and sets mfa_enabled_at.
	EnableMFA(ctx context.Context, userID, sealedSecret string, at time.Time) error

	// DisableMFA clears the secret and the enabled timestamp.
	DisableMFA(ctx context.Context, userID string) error
}

// BackupCodes is a map of code fingerprint to used/unused per user.
type BackupCodes interface {
	CreateBackupCodes(ctx context.Context, userID string, hashes []string) error

	// ConsumeBackupCode marks an unused code used. It reports false when the
	// code is unknown or already used; exactly one concurrent caller wins.
	ConsumeBackupCode(ctx context.Context, userID, hash string, at time.Time) (bool, error)

	CountUnusedBackupCodes(ctx context.Context, userID string) (int, error)
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// DeleteUsedBackupCodes removes codes consumed before cutoff.
	DeleteUsedBackupCodes(ctx context.Context, cutoff time.Time) (int64, error)
}

type FederationConfigs interface {
	GetFederationConfig(ctx context.Context, tenantID, protocol string) (domain.FederationConfig, error)
	UpsertFederationConfig(ctx context.Context, cfg domain.FederationConfig) error
	ListFederationConfigs(ctx context.Context) ([]domain.FederationConfig, error)
}
