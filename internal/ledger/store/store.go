package store

import (
	"context"
	"fmt"
	"time"

	"attestor/internal/ledger/models"
	"attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// Store is the persistence boundary for certificates. The store owns id
// allocation (monotonic from 1, never reused) and the three indices:
// document hash, issuing institution, and student wallet.
//
// Implementations return pkg/platform/sentinel errors for factual failures;
// InsertBatch failures additionally carry the offending entry index via
// DuplicateHashError.
type Store interface {
	// Insert allocates the next id and stores the certificate. Returns
	// sentinel.ErrConflict when the document hash is already indexed.
	Insert(ctx context.Context, certificate models.Certificate) (domain.CertificateID, error)

	// InsertBatch applies all certificates or none. Ids are allocated
	// sequentially in entry order. A duplicate hash (against the ledger or
	// within the batch) aborts with DuplicateHashError naming the first
	// offending index.
	InsertBatch(ctx context.Context, certificates []models.Certificate) ([]domain.CertificateID, error)

	Get(ctx context.Context, id domain.CertificateID) (models.Certificate, error)
	GetByHash(ctx context.Context, hash domain.DocumentHash) (models.Certificate, error)

	// Revoke marks the certificate revoked. Returns sentinel.ErrNotFound for
	// unknown ids and sentinel.ErrInvalidState when already revoked.
	Revoke(ctx context.Context, id domain.CertificateID, revokedAt time.Time, reason string) error

	ListByStudent(ctx context.Context, student domain.Address) ([]models.Certificate, error)
	ListByInstitution(ctx context.Context, institution domain.Address, offset, limit int) ([]models.Certificate, error)
	Count(ctx context.Context) (int, error)
}

// DuplicateHashError reports which batch entry collided.
type DuplicateHashError struct {
	Index int
}

func (e *DuplicateHashError) Error() string {
	return fmt.Sprintf("duplicate document hash at batch entry %d", e.Index)
}

func (e *DuplicateHashError) Unwrap() error {
	return sentinel.ErrConflict
}
