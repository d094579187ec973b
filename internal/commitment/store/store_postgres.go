package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"attestor/internal/commitment/models"
	"attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	txcontext "attestor/pkg/platform/tx"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists commitments in PostgreSQL. The primary key on the
// lowercased commitment column is the durable uniqueness guarantee.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, commitment models.AuthCommitment) error {
	query := `
		INSERT INTO commitments (commitment, role, proof_ref, registered_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		strings.ToLower(commitment.Commitment),
		int16(commitment.Role),
		commitment.ProofRef,
		commitment.RegisteredAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert commitment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, commitment string) (models.AuthCommitment, error) {
	query := `
		SELECT commitment, role, proof_ref, registered_at
		FROM commitments
		WHERE commitment = $1
	`
	var (
		record models.AuthCommitment
		role   int16
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, strings.ToLower(commitment)).
		Scan(&record.Commitment, &role, &record.ProofRef, &record.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AuthCommitment{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.AuthCommitment{}, fmt.Errorf("get commitment: %w", err)
	}
	record.Role = domain.Role(role)
	return record, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM commitments`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count commitments: %w", err)
	}
	return count, nil
}
