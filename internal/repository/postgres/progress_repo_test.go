package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/scanwin/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func testScanRecord() model.ScanRecord {
	return model.ScanRecord{
		ID:               uuid.Must(uuid.NewV4()),
		UserID:           uuid.Must(uuid.NewV4()),
		TokenID:          "abc123",
		ValidationStatus: model.ScanStatusVerified,
	}
}

func TestProgressRepo_ClaimScanIfAbsent_FirstClaim(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	rec := testScanRecord()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO scans \(id, user_id, token_id, validation_status, points_awarded\)`).
		WithArgs(rec.ID, rec.UserID, rec.TokenID, rec.ValidationStatus, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO level_awards \(user_id, token_scope, level, points\)`).
		WithArgs(rec.UserID, "campaign:2", 1, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO user_progress \(user_id, token_scope, points, current_level\)`).
		WithArgs(rec.UserID, "campaign:2", 50, 1).
		WillReturnRows(pgxmock.NewRows([]string{"points", "current_level"}).AddRow(50, 1))
	mock.ExpectCommit()

	res, err := r.ClaimScanIfAbsent(context.Background(), rec, "campaign:2", 1, 50)
	require.NoError(t, err)
	require.True(t, res.ScanInserted)
	require.True(t, res.LevelAwarded)
	require.Equal(t, 50, res.NewTotal)
	require.Equal(t, 1, res.CurrentLevel)
}

func TestProgressRepo_ClaimScanIfAbsent_DuplicateToken(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	rec := testScanRecord()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO scans`).
		WithArgs(rec.ID, rec.UserID, rec.TokenID, rec.ValidationStatus, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT points, current_level FROM user_progress`).
		WithArgs(rec.UserID, "campaign:2").
		WillReturnRows(pgxmock.NewRows([]string{"points", "current_level"}).AddRow(50, 1))
	mock.ExpectCommit()

	res, err := r.ClaimScanIfAbsent(context.Background(), rec, "campaign:2", 1, 50)
	require.NoError(t, err)
	require.False(t, res.ScanInserted)
	require.False(t, res.LevelAwarded)
	require.Equal(t, 50, res.NewTotal)
	require.Equal(t, 1, res.CurrentLevel)
}

func TestProgressRepo_ClaimScanIfAbsent_LevelAlreadyHeld_ZeroesScanPoints(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	rec := testScanRecord()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO scans`).
		WithArgs(rec.ID, rec.UserID, rec.TokenID, rec.ValidationStatus, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO level_awards`).
		WithArgs(rec.UserID, "campaign:2", 1, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`UPDATE scans SET points_awarded = 0 WHERE id = \$1`).
		WithArgs(rec.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT points, current_level FROM user_progress`).
		WithArgs(rec.UserID, "campaign:2").
		WillReturnRows(pgxmock.NewRows([]string{"points", "current_level"}).AddRow(50, 1))
	mock.ExpectCommit()

	res, err := r.ClaimScanIfAbsent(context.Background(), rec, "campaign:2", 1, 50)
	require.NoError(t, err)
	require.True(t, res.ScanInserted)
	require.False(t, res.LevelAwarded)
	require.Equal(t, 50, res.NewTotal)
	require.Equal(t, 1, res.CurrentLevel)
}

func TestProgressRepo_ClaimScanIfAbsent_AwardErrRollsBackScan(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	rec := testScanRecord()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO scans`).
		WithArgs(rec.ID, rec.UserID, rec.TokenID, rec.ValidationStatus, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO level_awards`).
		WithArgs(rec.UserID, "campaign:2", 1, 50).
		WillReturnError(errors.New("award-fail"))
	mock.ExpectRollback()

	_, err := r.ClaimScanIfAbsent(context.Background(), rec, "campaign:2", 1, 50)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepo_ClaimScanIfAbsent_CommitErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	rec := testScanRecord()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO scans`).
		WithArgs(rec.ID, rec.UserID, rec.TokenID, rec.ValidationStatus, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO level_awards`).
		WithArgs(rec.UserID, "campaign:2", 1, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO user_progress`).
		WithArgs(rec.UserID, "campaign:2", 50, 1).
		WillReturnRows(pgxmock.NewRows([]string{"points", "current_level"}).AddRow(50, 1))
	mock.ExpectCommit().WillReturnError(errors.New("commit-fail"))

	_, err := r.ClaimScanIfAbsent(context.Background(), rec, "campaign:2", 1, 50)
	require.Error(t, err)
}

func TestProgressRepo_HasScan(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM scans WHERE user_id=\$1 AND token_id=\$2\)`).
		WithArgs(uid, "abc123").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := r.HasScan(context.Background(), uid, "abc123")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProgressRepo_AwardLevelIfAbsent_FirstInsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO level_awards \(user_id, token_scope, level, points\)`).
		WithArgs(uid, "campaign:2", 1, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO user_progress \(user_id, token_scope, points, current_level\)`).
		WithArgs(uid, "campaign:2", 50, 1).
		WillReturnRows(pgxmock.NewRows([]string{"points"}).AddRow(50))
	mock.ExpectCommit()

	inserted, total, err := r.AwardLevelIfAbsent(context.Background(), uid, "campaign:2", 1, 50)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, 50, total)
}

func TestProgressRepo_AwardLevelIfAbsent_AlreadyAwarded(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO level_awards`).
		WithArgs(uid, "campaign:2", 1, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT points, current_level FROM user_progress WHERE user_id=\$1 AND token_scope=\$2`).
		WithArgs(uid, "campaign:2").
		WillReturnRows(pgxmock.NewRows([]string{"points", "current_level"}).AddRow(50, 1))
	mock.ExpectCommit()

	inserted, total, err := r.AwardLevelIfAbsent(context.Background(), uid, "campaign:2", 1, 50)
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, 50, total)
}

func TestProgressRepo_AwardLevelIfAbsent_AlreadyAwarded_NoProgressRow(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO level_awards`).
		WithArgs(uid, "campaign:2", 1, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT points, current_level FROM user_progress`).
		WithArgs(uid, "campaign:2").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectCommit()

	inserted, total, err := r.AwardLevelIfAbsent(context.Background(), uid, "campaign:2", 1, 50)
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, 0, total)
}

func TestProgressRepo_AwardLevelIfAbsent_TxBeginErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)

	mock.ExpectBegin().WillReturnError(errors.New("boom"))
	_, _, err := r.AwardLevelIfAbsent(context.Background(), uuid.Must(uuid.NewV4()), "campaign:2", 1, 50)
	require.Error(t, err)
}

func TestProgressRepo_AwardLevelIfAbsent_InsertErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO level_awards`).
		WithArgs(uid, "campaign:2", 1, 50).
		WillReturnError(errors.New("insert-fail"))
	mock.ExpectRollback()

	_, _, err := r.AwardLevelIfAbsent(context.Background(), uid, "campaign:2", 1, 50)
	require.Error(t, err)
}

func TestProgressRepo_AwardLevelIfAbsent_UpdateErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO level_awards`).
		WithArgs(uid, "campaign:2", 2, 100).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO user_progress`).
		WithArgs(uid, "campaign:2", 100, 2).
		WillReturnError(errors.New("upd-fail"))
	mock.ExpectRollback()

	_, _, err := r.AwardLevelIfAbsent(context.Background(), uid, "campaign:2", 2, 100)
	require.Error(t, err)
}

func TestProgressRepo_AwardLevelIfAbsent_CommitErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO level_awards`).
		WithArgs(uid, "campaign:2", 1, 50).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO user_progress`).
		WithArgs(uid, "campaign:2", 50, 1).
		WillReturnRows(pgxmock.NewRows([]string{"points"}).AddRow(50))
	mock.ExpectCommit().WillReturnError(errors.New("commit-fail"))

	_, _, err := r.AwardLevelIfAbsent(context.Background(), uid, "campaign:2", 1, 50)
	require.Error(t, err)
}

func TestProgressRepo_GetProgress_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT points, current_level FROM user_progress WHERE user_id=\$1 AND token_scope=\$2`).
		WithArgs(uid, "campaign:2").
		WillReturnRows(pgxmock.NewRows([]string{"points", "current_level"}).AddRow(150, 2))
	mock.ExpectQuery(`SELECT level FROM level_awards WHERE user_id=\$1 AND token_scope=\$2 ORDER BY level ASC`).
		WithArgs(uid, "campaign:2").
		WillReturnRows(pgxmock.NewRows([]string{"level"}).AddRow(1).AddRow(2))

	p, err := r.GetProgress(context.Background(), uid, "campaign:2")
	require.NoError(t, err)
	require.Equal(t, 150, p.Points)
	require.Equal(t, 2, p.CurrentLevel)
	require.Equal(t, []int{1, 2}, p.AwardedLevels)
}

func TestProgressRepo_GetProgress_AbsentIsLocked(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT points, current_level FROM user_progress`).
		WithArgs(uid, "campaign:2").
		WillReturnError(pgx.ErrNoRows)

	p, err := r.GetProgress(context.Background(), uid, "campaign:2")
	require.NoError(t, err)
	require.Equal(t, 0, p.Points)
	require.Equal(t, 0, p.CurrentLevel)
	require.Empty(t, p.AwardedLevels)
}

func TestProgressRepo_GetProgress_QueryErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProgressRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT points, current_level FROM user_progress`).
		WithArgs(uid, "campaign:2").
		WillReturnError(errors.New("weird"))

	_, err := r.GetProgress(context.Background(), uid, "campaign:2")
	require.Error(t, err)
}
