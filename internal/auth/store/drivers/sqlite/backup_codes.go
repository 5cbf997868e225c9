package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/idx"
)

type backupCodesRepo struct {
	q querier
}

func (r *backupCodesRepo) CreateBackupCodes(ctx context.Context, userID string, hashes []string) error {
	now := formatTime(time.Now())
	for _, h := range hashes {
		_, err := r.q.ExecContext(ctx,
			`INSERT INTO backup_codes (id, user_id, code_hash, created_at) VALUES (?, ?, ?, ?)`,
			idx.New().String(), userID, h, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// ConsumeBackupCode flips used_at only while it is still NULL, so the row
// count is the arbiter between concurrent submissions of the same code.
func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID, hash string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE backup_codes SET used_at = ? WHERE user_id = ? AND code_hash = ? AND used_at IS NULL`,
		formatTime(at), userID, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *backupCodesRepo) CountUnusedBackupCodes(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE user_id = ? AND used_at IS NULL`, userID).Scan(&n)
	return n, err
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = ?`, userID)
	return err
}

func (r *backupCodesRepo) DeleteUsedBackupCodes(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE used_at IS NOT NULL AND used_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
