package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, tenant_id, email, password_hash, role, active, site_scope,
	first_name, last_name, mfa_enabled_at, mfa_secret, last_login_at, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.TenantID, u.Email, u.PasswordHash, u.Role, u.Active, encodeList(u.SiteScope),
		u.FirstName, u.LastName,
		formatOptionalTime(u.MFAEnabledAt), u.MFASecret, formatOptionalTime(u.LastLoginAt),
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return r.update(ctx, `UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active, formatTime(time.Now()), userID)
}

func (r *usersRepo) UpdateAccess(ctx context.Context, userID, role string, sites []string) error {
	return r.update(ctx, `UPDATE users SET role = ?, site_scope = ?, updated_at = ? WHERE id = ?`,
		role, encodeList(sites), formatTime(time.Now()), userID)
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.update(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, formatTime(at), userID)
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID, sealedSecret string, at time.Time) error {
	return r.update(ctx,
		`UPDATE users SET mfa_secret = ?, mfa_enabled_at = ?, updated_at = ? WHERE id = ?`,
		sealedSecret, formatTime(at), formatTime(at), userID)
}

func (r *usersRepo) DisableMFA(ctx context.Context, userID string) error {
	return r.update(ctx,
		`UPDATE users SET mfa_secret = NULL, mfa_enabled_at = NULL, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), userID)
}

// update runs a single-row UPDATE and maps zero affected rows to ErrNotFound.
func (r *usersRepo) update(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                     domain.User
		sites                 string
		mfaEnabled, lastLogin sql.NullString
		mfaSecret             sql.NullString
		createdAt, updatedAt  string
	)
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &sites,
		&u.FirstName, &u.LastName, &mfaEnabled, &mfaSecret, &lastLogin, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	if u.SiteScope, err = decodeList(sites); err != nil {
		return domain.User{}, fmt.Errorf("decode site_scope: %w", err)
	}
	if u.MFAEnabledAt, err = parseNullTime(mfaEnabled); err != nil {
		return domain.User{}, err
	}
	if u.LastLoginAt, err = parseNullTime(lastLogin); err != nil {
		return domain.User{}, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.User{}, err
	}
	u.MFASecret = mapNullStringPtr(mfaSecret)
	return u, nil
}
