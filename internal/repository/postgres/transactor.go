package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

var _ model.Transactor = (*Transactor)(nil)

// ErrTxNotFound is returned by extractTx when ctx carries no transaction.
var ErrTxNotFound = errors.New("tx not found in context")

// Transactor runs functions inside a pgx transaction carried by ctx.
// Nested calls join the outer transaction.
type Transactor struct {
	db     *Connection
	logger *logger.Logger
}

func NewTransactor(db *Connection, logger *logger.Logger) *Transactor {
	return &Transactor{
		db:     db,
		logger: logger,
	}
}

func (t *Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) (txErr error) {
	if _, err := extractTx(ctx); err == nil {
		return fn(ctx)
	}

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", model.ErrStoreUnavailable, err)
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if txErr != nil {
			if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
				t.logger.Error("Transactor: rollback failed", "error", err)
			}
			return
		}
		if err := tx.Commit(ctx); err != nil {
			t.logger.Error("Transactor: commit failed", "error", err)
			txErr = fmt.Errorf("failed to commit transaction: %w: %w", model.ErrStoreUnavailable, err)
		}
	}()

	return fn(txCtx)
}

type txKey struct{}

func extractTx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok || tx == nil {
		return nil, ErrTxNotFound
	}
	return tx, nil
}
