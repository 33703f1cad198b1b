package diag

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/and161185/scanwin/internal/model"
)

type pgxExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PG writes events to the error_logs table. Insert failures are logged at
// warn level and otherwise ignored.
type PG struct {
	pool pgxExecer
	log  *zap.Logger
}

// NewPG constructs a PostgreSQL-backed sink.
func NewPG(pool pgxExecer, log *zap.Logger) *PG {
	return &PG{pool: pool, log: log}
}

// Log implements Sink.
func (s *PG) Log(ctx context.Context, e model.ErrorLog) {
	const q = `
INSERT INTO error_logs (error_type, error_message, token_id, user_id)
VALUES ($1, $2, $3, $4)`
	var userID any
	if e.UserID != uuid.Nil {
		userID = e.UserID
	}
	if _, err := s.pool.Exec(ctx, q, e.ErrorType, e.Message, e.TokenID, userID); err != nil {
		s.log.Warn("diagnostics sink write failed",
			zap.String("errorType", e.ErrorType),
			zap.Error(err),
		)
	}
}
