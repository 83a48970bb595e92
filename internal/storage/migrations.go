package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS splits (
					id TEXT PRIMARY KEY,
					splitwise_id TEXT UNIQUE NOT NULL,
					group_id TEXT NOT NULL,
					group_name TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					total_amount TEXT NOT NULL,
					paid_by TEXT NOT NULL DEFAULT '',
					created_by TEXT NOT NULL DEFAULT '',
					items TEXT NOT NULL,
					member_splits TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_splits_group ON splits(group_id)`,

				`CREATE TABLE IF NOT EXISTS pending_updates (
					id TEXT PRIMARY KEY,
					split_id TEXT NOT NULL,
					splitwise_id TEXT NOT NULL,
					requested_by_email TEXT NOT NULL,
					requested_by_name TEXT NOT NULL,
					changes TEXT NOT NULL,
					status TEXT NOT NULL,
					admin_notes TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					processed_at DATETIME,
					FOREIGN KEY (split_id) REFERENCES splits(id)
				)`,
				`CREATE INDEX idx_pending_updates_status ON pending_updates(status)`,
				`CREATE INDEX idx_pending_updates_expense ON pending_updates(splitwise_id)`,

				`CREATE TABLE IF NOT EXISTS member_mappings (
					id TEXT PRIMARY KEY,
					email TEXT UNIQUE NOT NULL,
					name TEXT NOT NULL,
					group_ids TEXT NOT NULL,
					is_active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Index requester email for member request listings",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_pending_updates_email ON pending_updates(requested_by_email)`)
			return err
		},
	},
	{
		Version:     3,
		Description: "Keep split updated_at current",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TRIGGER IF NOT EXISTS splits_updated_at
				AFTER UPDATE ON splits
				FOR EACH ROW
				BEGIN
					UPDATE splits SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
				END
			`)
			if err != nil {
				return fmt.Errorf("failed to create updated_at trigger: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
