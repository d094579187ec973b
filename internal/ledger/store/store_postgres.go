package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"attestor/internal/ledger/models"
	"attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	txcontext "attestor/pkg/platform/tx"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists certificates in PostgreSQL. The unique index on
// document_hash is the durable uniqueness guarantee; BIGSERIAL allocation
// provides monotonic ids starting at 1 with no reuse.
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

const insertCertificateQuery = `
	INSERT INTO certificates (document_hash, student_wallet, institution_wallet, metadata_uri, graduation_year, issue_date, revoked)
	VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	RETURNING id
`

func (s *PostgresStore) Insert(ctx context.Context, certificate models.Certificate) (domain.CertificateID, error) {
	var id int64
	err := s.execer(ctx).QueryRowContext(ctx, insertCertificateQuery,
		certificate.DocumentHash.String(),
		certificate.StudentWallet.String(),
		certificate.IssuingInstitution.String(),
		certificate.MetadataURI,
		certificate.GraduationYear,
		certificate.IssueDate,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.CertificateIDNone, sentinel.ErrConflict
		}
		return domain.CertificateIDNone, fmt.Errorf("insert certificate: %w", err)
	}
	return domain.CertificateID(id), nil
}

func (s *PostgresStore) InsertBatch(ctx context.Context, certificates []models.Certificate) ([]domain.CertificateID, error) {
	ids := make([]domain.CertificateID, len(certificates))
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		for i, certificate := range certificates {
			id, err := s.Insert(ctx, certificate)
			if err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return &DuplicateHashError{Index: i}
				}
				return err
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

const selectCertificateColumns = `
	SELECT id, document_hash, student_wallet, institution_wallet, metadata_uri, graduation_year, issue_date, revoked, revoked_at, revocation_reason
	FROM certificates
`

func (s *PostgresStore) Get(ctx context.Context, id domain.CertificateID) (models.Certificate, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectCertificateColumns+` WHERE id = $1`, int64(id))
	return scanCertificate(row.Scan)
}

func (s *PostgresStore) GetByHash(ctx context.Context, hash domain.DocumentHash) (models.Certificate, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectCertificateColumns+` WHERE document_hash = $1`, hash.String())
	return scanCertificate(row.Scan)
}

func (s *PostgresStore) Revoke(ctx context.Context, id domain.CertificateID, revokedAt time.Time, reason string) error {
	query := `
		UPDATE certificates
		SET revoked = TRUE, revoked_at = $2, revocation_reason = $3
		WHERE id = $1 AND NOT revoked
	`
	result, err := s.execer(ctx).ExecContext(ctx, query, int64(id), revokedAt, reason)
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Distinguish "unknown id" from "already revoked".
	var revoked bool
	err = s.execer(ctx).QueryRowContext(ctx, `SELECT revoked FROM certificates WHERE id = $1`, int64(id)).Scan(&revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("revocation state lookup: %w", err)
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) ListByStudent(ctx context.Context, student domain.Address) ([]models.Certificate, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, selectCertificateColumns+` WHERE student_wallet = $1 ORDER BY id`, student.String())
	if err != nil {
		return nil, fmt.Errorf("list by student: %w", err)
	}
	return collectCertificates(rows)
}

func (s *PostgresStore) ListByInstitution(ctx context.Context, institution domain.Address, offset, limit int) ([]models.Certificate, error) {
	if offset < 0 {
		offset = 0
	}
	query := selectCertificateColumns + ` WHERE institution_wallet = $1 ORDER BY id OFFSET $2`
	args := []any{institution.String(), offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list by institution: %w", err)
	}
	return collectCertificates(rows)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM certificates`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return count, nil
}

func collectCertificates(rows *sql.Rows) ([]models.Certificate, error) {
	defer rows.Close()
	certificates := []models.Certificate{}
	for rows.Next() {
		certificate, err := scanCertificate(rows.Scan)
		if err != nil {
			return nil, err
		}
		certificates = append(certificates, certificate)
	}
	return certificates, rows.Err()
}

func scanCertificate(scan func(...any) error) (models.Certificate, error) {
	var (
		certificate models.Certificate
		id          int64
		hashHex     string
		studentHex  string
		issuerHex   string
		revokedAt   sql.NullTime
		reason      sql.NullString
	)
	err := scan(&id, &hashHex, &studentHex, &issuerHex, &certificate.MetadataURI,
		&certificate.GraduationYear, &certificate.IssueDate, &certificate.Revoked, &revokedAt, &reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Certificate{}, sentinel.ErrNotFound
		}
		return models.Certificate{}, fmt.Errorf("scan certificate: %w", err)
	}

	certificate.ID = domain.CertificateID(id)
	if certificate.DocumentHash, err = domain.ParseDocumentHash(hashHex); err != nil {
		return models.Certificate{}, fmt.Errorf("corrupt document hash %q: %w", hashHex, err)
	}
	if certificate.StudentWallet, err = domain.ParseAddress(studentHex); err != nil {
		return models.Certificate{}, fmt.Errorf("corrupt student wallet %q: %w", studentHex, err)
	}
	if certificate.IssuingInstitution, err = domain.ParseAddress(issuerHex); err != nil {
		return models.Certificate{}, fmt.Errorf("corrupt institution wallet %q: %w", issuerHex, err)
	}
	if revokedAt.Valid {
		certificate.RevokedAt = revokedAt.Time
	}
	if reason.Valid {
		certificate.RevocationReason = reason.String
	}
	return certificate, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
