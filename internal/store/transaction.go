// Package store provides abstractions and implementations for data persistence
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-uams/internal/platform/logger"
	"github.com/phrazzld/scry-uams/internal/redact"
)

// TxFn is a function that executes within a database transaction.
// It receives the context and a transaction, and returns an error if the operation fails.
// The transaction is committed if the function returns nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction executes the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// Otherwise, the transaction is committed.
// The function handles rollbacks in case of panic and logs appropriate information.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	// Get logger from context or use default
	log := logger.FromContext(ctx)

	// Begin a transaction
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction",
			redact.Attr("error", err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Set up defer to handle panics and roll back the transaction if needed
	defer func() {
		if p := recover(); p != nil {
			// Attempt to roll back the transaction in case of panic
			txErr := tx.Rollback()
			if txErr != nil {
				log.Error("failed to roll back transaction after panic",
					redact.Attr("error", txErr),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic",
					slog.Any("panic", p))
			}
			// Re-panic to maintain the behavior
			// ALLOW-PANIC: Propagating caught panic from transaction
			panic(p)
		}
	}()

	// Execute the provided function within the transaction
	err = fn(ctx, tx)
	if err != nil {
		// If the function returns an error, roll back the transaction
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			log.Error("failed to roll back transaction",
				redact.Attr("rollback_error", rollbackErr),
				redact.Attr("original_error", err))
			// Return the combined errors to provide complete information
			return fmt.Errorf(
				"error rolling back transaction: %v (original error: %w)",
				rollbackErr,
				err,
			)
		}
		log.Debug("rolled back transaction due to error",
			redact.Attr("error", err))
		// Return the original error
		return err
	}

	// If the function executed successfully, commit the transaction
	err = tx.Commit()
	if err != nil {
		log.Error("failed to commit transaction",
			redact.Attr("error", err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug("transaction committed successfully")
	return nil
}

// Stores bundles the stores a study turn writes to.
type Stores struct {
	Cards     CardStore
	Sessions  SessionStore
	Responses ResponseLogStore
}

// WithTx returns copies of the stores bound to tx.
func (s Stores) WithTx(tx *sql.Tx) Stores {
	return Stores{
		Cards:     s.Cards.WithTx(tx),
		Sessions:  s.Sessions.WithTx(tx),
		Responses: s.Responses.WithTx(tx),
	}
}

// Transactor runs a unit of work atomically against transaction-bound stores.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// SQLTransactor implements Transactor on a database/sql connection pool.
type SQLTransactor struct {
	db     *sql.DB
	stores Stores
}

// NewSQLTransactor creates a transactor that binds stores to transactions on db.
func NewSQLTransactor(db *sql.DB, stores Stores) *SQLTransactor {
	return &SQLTransactor{db: db, stores: stores}
}

// InTx implements Transactor.
func (t *SQLTransactor) InTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	return RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, t.stores.WithTx(tx))
	})
}
