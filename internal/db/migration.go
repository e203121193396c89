package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

type migration struct {
	version string
	sql     string
}

var migrations = []migration{
	{
		version: "000_create_daily_summaries",
		sql: `
			CREATE TABLE IF NOT EXISTS daily_summaries (
				user_id    VARCHAR(128) NOT NULL,
				date       VARCHAR(10)  NOT NULL,
				payload    JSON         NOT NULL,
				fetched_at DATETIME     NOT NULL,
				PRIMARY KEY (user_id, date)
			)`,
	},
	{
		version: "001_create_realtime_samples",
		sql: `
			CREATE TABLE IF NOT EXISTS realtime_samples (
				user_id      VARCHAR(128) NOT NULL,
				metric_type  VARCHAR(64)  NOT NULL,
				record_key   VARCHAR(64)  NOT NULL,
				timestamp_ms DOUBLE       NOT NULL,
				payload      JSON         NOT NULL,
				PRIMARY KEY (user_id, metric_type, record_key),
				INDEX idx_realtime_samples_ts (user_id, metric_type, timestamp_ms)
			)`,
	},
}

// RunMigrations applies pending migrations in order and records them in
// schema_migrations. MySQL commits DDL implicitly, so every statement must be
// safe to re-run after a partial failure.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    VARCHAR(255) PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.version,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.version, err)
		}
		if count > 0 {
			continue
		}

		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		log.Printf("[archive] applied migration: %s", m.version)
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", m.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range statements(m.sql) {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.version, err)
		}
	}

	if _, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.version, err)
	}
	return nil
}

// statements splits a migration on ";" and drops blanks.
func statements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
