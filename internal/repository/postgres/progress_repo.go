package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/scanwin/internal/model"
	"github.com/and161185/scanwin/internal/repository"
)

// ProgressRepo implements ProgressRepository using PostgreSQL. The unique
// constraints on scans(user_id, token_id) and level_awards(user_id,
// token_scope, level) provide the atomic insert-if-absent primitive.
type ProgressRepo struct{ db *DB }

// NewProgressRepo constructs a progress repository.
func NewProgressRepo(db *DB) *ProgressRepo { return &ProgressRepo{db: db} }

// ClaimScanIfAbsent records the scan and the level award in one transaction.
// A duplicate (user, token) pair short-circuits to the committed aggregate; a
// scan whose level is already held is persisted with zero points. Any failure
// rolls the whole claim back, leaving no stranded scan row.
func (r *ProgressRepo) ClaimScanIfAbsent(
	ctx context.Context, rec model.ScanRecord, tokenScope string, level, points int,
) (res repository.ClaimResult, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return repository.ClaimResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const insScan = `
INSERT INTO scans (id, user_id, token_id, validation_status, points_awarded)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, token_id) DO NOTHING`
	tag, err := tx.Exec(ctx, insScan, rec.ID, rec.UserID, rec.TokenID, rec.ValidationStatus, points)
	if err != nil {
		return repository.ClaimResult{}, err
	}
	if tag.RowsAffected() == 0 {
		// Retried claim: nothing changes, report the committed aggregate.
		res.NewTotal, res.CurrentLevel, err = txProgress(ctx, tx, rec.UserID, tokenScope)
		return res, err
	}
	res.ScanInserted = true

	const insAward = `
INSERT INTO level_awards (user_id, token_scope, level, points)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, token_scope, level) DO NOTHING`
	tag, err = tx.Exec(ctx, insAward, rec.UserID, tokenScope, level, points)
	if err != nil {
		return repository.ClaimResult{}, err
	}
	if tag.RowsAffected() == 0 {
		// Level already held (earlier token in this scope): the scan row must
		// not claim points that were never credited.
		const zero = `UPDATE scans SET points_awarded = 0 WHERE id = $1`
		if _, err = tx.Exec(ctx, zero, rec.ID); err != nil {
			return repository.ClaimResult{}, err
		}
		res.NewTotal, res.CurrentLevel, err = txProgress(ctx, tx, rec.UserID, tokenScope)
		return res, err
	}
	res.LevelAwarded = true

	const upd = `
INSERT INTO user_progress (user_id, token_scope, points, current_level)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, token_scope) DO UPDATE
SET points = user_progress.points + EXCLUDED.points,
    current_level = GREATEST(user_progress.current_level, EXCLUDED.current_level),
    updated_at = now()
RETURNING points, current_level`
	if err = tx.QueryRow(ctx, upd, rec.UserID, tokenScope, points, level).Scan(&res.NewTotal, &res.CurrentLevel); err != nil {
		return repository.ClaimResult{}, err
	}
	return res, nil
}

// txProgress reads the aggregate inside a transaction; absence means Locked.
func txProgress(ctx context.Context, tx pgx.Tx, userID uuid.UUID, tokenScope string) (points, currentLevel int, err error) {
	const sel = `SELECT points, current_level FROM user_progress WHERE user_id=$1 AND token_scope=$2`
	err = tx.QueryRow(ctx, sel, userID, tokenScope).Scan(&points, &currentLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, nil
	}
	return points, currentLevel, err
}

// HasScan reports whether a scan record exists for (user, token).
func (r *ProgressRepo) HasScan(ctx context.Context, userID uuid.UUID, tokenID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM scans WHERE user_id=$1 AND token_id=$2)`
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, q, userID, tokenID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AwardLevelIfAbsent inserts the award row and credits points in one
// transaction. A concurrent duplicate blocks on the unique index until the
// winner commits, then resolves to inserted=false with the winner's balance.
func (r *ProgressRepo) AwardLevelIfAbsent(
	ctx context.Context, userID uuid.UUID, tokenScope string, level, points int,
) (inserted bool, newTotal int, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `
INSERT INTO level_awards (user_id, token_scope, level, points)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, token_scope, level) DO NOTHING`
	tag, err := tx.Exec(ctx, ins, userID, tokenScope, level, points)
	if err != nil {
		return false, 0, err
	}

	if tag.RowsAffected() == 0 {
		// Already awarded: the balance is whatever the first award committed.
		var total int
		total, _, err = txProgress(ctx, tx, userID, tokenScope)
		if err != nil {
			return false, 0, err
		}
		return false, total, nil
	}

	const upd = `
INSERT INTO user_progress (user_id, token_scope, points, current_level)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, token_scope) DO UPDATE
SET points = user_progress.points + EXCLUDED.points,
    current_level = GREATEST(user_progress.current_level, EXCLUDED.current_level),
    updated_at = now()
RETURNING points`
	if err = tx.QueryRow(ctx, upd, userID, tokenScope, points, level).Scan(&newTotal); err != nil {
		return false, 0, err
	}
	return true, newTotal, nil
}

// GetProgress returns the ladder aggregate; absence means Locked, not an error.
func (r *ProgressRepo) GetProgress(ctx context.Context, userID uuid.UUID, tokenScope string) (*model.UserProgress, error) {
	p := &model.UserProgress{UserID: userID, TokenScope: tokenScope}

	const q = `SELECT points, current_level FROM user_progress WHERE user_id=$1 AND token_scope=$2`
	err := r.db.Pool.QueryRow(ctx, q, userID, tokenScope).Scan(&p.Points, &p.CurrentLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return nil, err
	}

	const lv = `SELECT level FROM level_awards WHERE user_id=$1 AND token_scope=$2 ORDER BY level ASC`
	rows, err := r.db.Pool.Query(ctx, lv, userID, tokenScope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l int
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		p.AwardedLevels = append(p.AwardedLevels, l)
	}
	return p, rows.Err()
}
