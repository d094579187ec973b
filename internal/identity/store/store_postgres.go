package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"attestor/internal/identity/models"
	"attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	txcontext "attestor/pkg/platform/tx"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists directory records in PostgreSQL. Unique indexes on
// wallet and email_domain are the backstop for the registration invariants;
// the service's pre-checks give precise error identities in the common path.
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

func (s *PostgresStore) CreateInstitution(ctx context.Context, institution models.Institution) error {
	query := `
		INSERT INTO institutions (wallet, name, email_domain, verified, active, total_certificates_issued, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		institution.Wallet.String(),
		institution.Name,
		normalizeDomain(institution.EmailDomain),
		institution.Verified,
		institution.Active,
		institution.TotalCertificatesIssued,
		institution.RegisteredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert institution: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInstitution(ctx context.Context, wallet domain.Address) (models.Institution, error) {
	query := `
		SELECT wallet, name, email_domain, verified, active, total_certificates_issued, registered_at
		FROM institutions WHERE wallet = $1
	`
	return s.scanInstitution(s.execer(ctx).QueryRowContext(ctx, query, wallet.String()))
}

func (s *PostgresStore) UpdateInstitution(ctx context.Context, institution models.Institution) error {
	query := `
		UPDATE institutions
		SET name = $2, verified = $3, active = $4
		WHERE wallet = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		institution.Wallet.String(),
		institution.Name,
		institution.Verified,
		institution.Active,
	)
	if err != nil {
		return fmt.Errorf("update institution: %w", err)
	}
	return requireOneRow(result)
}

func (s *PostgresStore) EmailDomainTaken(ctx context.Context, emailDomain string) (bool, error) {
	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM institutions WHERE email_domain = $1)`
	err := s.execer(ctx).QueryRowContext(ctx, query, normalizeDomain(emailDomain)).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check email domain: %w", err)
	}
	return taken, nil
}

func (s *PostgresStore) IncrementIssuedCount(ctx context.Context, wallet domain.Address) error {
	query := `
		UPDATE institutions
		SET total_certificates_issued = total_certificates_issued + 1
		WHERE wallet = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query, wallet.String())
	if err != nil {
		return fmt.Errorf("increment issued count: %w", err)
	}
	return requireOneRow(result)
}

func (s *PostgresStore) CountInstitutions(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM institutions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count institutions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CreateEmployer(ctx context.Context, employer models.Employer) error {
	query := `
		INSERT INTO employers (wallet, company_name, vat_number, active, registered_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		employer.Wallet.String(),
		employer.CompanyName,
		employer.VATNumber,
		employer.Active,
		employer.RegisteredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert employer: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEmployer(ctx context.Context, wallet domain.Address) (models.Employer, error) {
	query := `
		SELECT wallet, company_name, vat_number, active, registered_at
		FROM employers WHERE wallet = $1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, wallet.String())

	var employer models.Employer
	var walletHex string
	err := row.Scan(&walletHex, &employer.CompanyName, &employer.VATNumber, &employer.Active, &employer.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Employer{}, sentinel.ErrNotFound
		}
		return models.Employer{}, fmt.Errorf("find employer: %w", err)
	}
	employer.Wallet, err = domain.ParseAddress(walletHex)
	if err != nil {
		return models.Employer{}, fmt.Errorf("corrupt employer wallet %q: %w", walletHex, err)
	}
	return employer, nil
}

func (s *PostgresStore) UpdateEmployer(ctx context.Context, employer models.Employer) error {
	query := `
		UPDATE employers
		SET company_name = $2, vat_number = $3, active = $4
		WHERE wallet = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		employer.Wallet.String(),
		employer.CompanyName,
		employer.VATNumber,
		employer.Active,
	)
	if err != nil {
		return fmt.Errorf("update employer: %w", err)
	}
	return requireOneRow(result)
}

func (s *PostgresStore) CountEmployers(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM employers`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count employers: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) scanInstitution(row *sql.Row) (models.Institution, error) {
	var institution models.Institution
	var walletHex string
	err := row.Scan(
		&walletHex,
		&institution.Name,
		&institution.EmailDomain,
		&institution.Verified,
		&institution.Active,
		&institution.TotalCertificatesIssued,
		&institution.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Institution{}, sentinel.ErrNotFound
		}
		return models.Institution{}, fmt.Errorf("find institution: %w", err)
	}
	institution.Wallet, err = domain.ParseAddress(walletHex)
	if err != nil {
		return models.Institution{}, fmt.Errorf("corrupt institution wallet %q: %w", walletHex, err)
	}
	return institution, nil
}

func requireOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
