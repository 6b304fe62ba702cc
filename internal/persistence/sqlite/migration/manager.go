package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Manager applies pending embedded migrations against a database handle.
type Manager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewManager constructs a Manager. A nil logger falls back to slog.Default.
func NewManager(db *sql.DB, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{db: db, logger: logger}
}

// RunMigrations executes all pending migrations in version order. Each
// migration runs in its own transaction together with its version bookkeeping
// row, so a failure leaves the schema at the last fully applied version.
func (m *Manager) RunMigrations(ctx context.Context) error {
	if err := m.initVersionTable(ctx); err != nil {
		return err
	}

	migrations, err := Load()
	if err != nil {
		return err
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}
	for version := range applied {
		if !containsVersion(migrations, version) {
			return fmt.Errorf("%w: %s", ErrOutOfOrder, version)
		}
	}

	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		start := time.Now()
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("migration %s failed: %w", mig.Version, err)
		}
		m.logger.InfoContext(ctx, "applied migration",
			"version", mig.Version,
			"description", mig.Description,
			"duration", time.Since(start),
		)
	}

	return nil
}

// AppliedVersions returns the migration versions recorded in the database in
// application order.
func (m *Manager) AppliedVersions(ctx context.Context) ([]string, error) {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	migrations, err := Load()
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(applied))
	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; ok {
			versions = append(versions, mig.Version)
		}
	}
	return versions, nil
}

func (m *Manager) initVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to initialise schema_migrations: %w", err)
	}
	return nil
}

func (m *Manager) appliedVersions(ctx context.Context) (map[string]struct{}, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = struct{}{}
	}
	return applied, rows.Err()
}

func (m *Manager) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
		mig.Version, mig.Description, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func containsVersion(migrations []Migration, version string) bool {
	for _, mig := range migrations {
		if mig.Version == version {
			return true
		}
	}
	return false
}
