package service

import (
	"context"
	"fmt"

	"collab-server/shared/interfaces"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Transactor runs a function inside a database transaction. Extracted as an
// interface so service tests can run the function without a live pool.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error
}

// PgxTransactor implements Transactor on a pgx connection pool.
type PgxTransactor struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPgxTransactor(db *pgxpool.Pool, logger *zap.Logger) *PgxTransactor {
	return &PgxTransactor{
		db:     db,
		logger: logger.Named("Transactor"),
	}
}

// WithTransaction executes fn in a transaction with automatic rollback on
// error or panic.
func (t *PgxTransactor) WithTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx interfaces.DBTX) error,
) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				t.logger.Error("Failed to rollback transaction after panic",
					zap.Error(rollbackErr),
					zap.Any("panic", p))
			}
			panic(p) // re-throw panic after rollback
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			t.logger.Error("Failed to rollback transaction",
				zap.Error(rollbackErr),
				zap.NamedError("original_error", err))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
