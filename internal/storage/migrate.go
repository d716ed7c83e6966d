package storage // import "jobimporter.app/internal/storage"

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"jobimporter.app/internal/logging"
)

// Migrate applies pending schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	currentVersion, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Info("Running database migrations",
		slog.Int("current_version", currentVersion),
		slog.Int("latest_version", schemaVersion))

	for i := currentVersion; i < schemaVersion; i++ {
		if err := s.applyVersion(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// SchemaUpToDate fails when the database schema is behind the binary.
func (s *Storage) SchemaUpToDate(ctx context.Context) error {
	currentVersion, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return err
	}
	if currentVersion < schemaVersion {
		return fmt.Errorf(
			"storage: the database schema is not up to date: current=v%d expected=v%d",
			currentVersion, schemaVersion)
	}
	return nil
}

func (s *Storage) currentSchemaVersion(ctx context.Context) (int, error) {
	rows, _ := s.db.Query(ctx, `
SELECT EXISTS (
  SELECT FROM pg_tables WHERE tablename = 'schema_version')`)

	exists, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return 0, fmt.Errorf("storage: looking for schema_version table: %w", err)
	} else if !exists {
		return 0, nil
	}

	rows, _ = s.db.Query(ctx, `SELECT version FROM schema_version`)
	version, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int])
	if err != nil {
		return 0, fmt.Errorf("storage: read schema version: %w", err)
	}
	return version, nil
}

func (s *Storage) applyVersion(ctx context.Context, version int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin migration to v%d: %w", version+1, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, migrations[version]); err != nil {
		return fmt.Errorf("storage: migrate to v%d: %w", version+1, err)
	}

	_, err = tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (version integer not null)`)
	if err != nil {
		return fmt.Errorf("storage: create schema_version: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("storage: reset schema_version: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO schema_version (version) VALUES ($1)`, version+1)
	if err != nil {
		return fmt.Errorf("storage: record schema version v%d: %w",
			version+1, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit migration to v%d: %w",
			version+1, err)
	}
	return nil
}
