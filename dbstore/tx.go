package dbstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. Callers run the Store methods that take a
// pgx.Tx through here; single-statement writes such as InsertPrice go
// straight to the pool instead.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("dbstore: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op if already committed
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("dbstore: commit tx: %w", err)
	}
	return nil
}
