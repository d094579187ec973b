package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"attestor/internal/upgrade/models"
	"attestor/pkg/domain"
	txcontext "attestor/pkg/platform/tx"
)

// PostgresStore persists versions and history in PostgreSQL. AppendHistory
// writes the history row and the version row in one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) CurrentVersion(ctx context.Context, component models.Component) (domain.SchemaVersion, error) {
	var raw string
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT version FROM component_versions WHERE component = $1`, string(component)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InitialVersion, nil
	}
	if err != nil {
		return "", fmt.Errorf("current version: %w", err)
	}
	version, err := domain.ParseSchemaVersion(raw)
	if err != nil {
		return "", fmt.Errorf("corrupt version %q: %w", raw, err)
	}
	return version, nil
}

func (s *PostgresStore) AppendHistory(ctx context.Context, component models.Component, entry models.UpgradeHistoryEntry) error {
	return txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		_, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO upgrade_history (component, version, applied_at, upgrader, implementation_ref, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			string(component),
			string(entry.Version),
			entry.Timestamp,
			entry.Upgrader.String(),
			entry.ImplementationRef,
			entry.Notes,
		)
		if err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		_, err = s.execer(ctx).ExecContext(ctx, `
			INSERT INTO component_versions (component, version)
			VALUES ($1, $2)
			ON CONFLICT (component) DO UPDATE SET version = EXCLUDED.version
		`, string(component), string(entry.Version))
		if err != nil {
			return fmt.Errorf("bump version: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) History(ctx context.Context, component models.Component) ([]models.UpgradeHistoryEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT version, applied_at, upgrader, implementation_ref, notes
		FROM upgrade_history
		WHERE component = $1
		ORDER BY id
	`, string(component))
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	entries := []models.UpgradeHistoryEntry{}
	for rows.Next() {
		var (
			entry       models.UpgradeHistoryEntry
			rawVersion  string
			rawUpgrader string
		)
		if err := rows.Scan(&rawVersion, &entry.Timestamp, &rawUpgrader, &entry.ImplementationRef, &entry.Notes); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if entry.Version, err = domain.ParseSchemaVersion(rawVersion); err != nil {
			return nil, fmt.Errorf("corrupt version %q: %w", rawVersion, err)
		}
		if entry.Upgrader, err = domain.ParseAddress(rawUpgrader); err != nil {
			return nil, fmt.Errorf("corrupt upgrader %q: %w", rawUpgrader, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
