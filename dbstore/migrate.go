package dbstore

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the schema. It is idempotent (every statement is
// CREATE TABLE/INDEX IF NOT EXISTS) so it is safe to call on every
// process start, the way the teacher's FileStore recreated its JSON
// skeleton on load rather than requiring a separate migration step.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("dbstore: migrate: %w", err)
	}
	return nil
}
