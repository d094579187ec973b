// Package service implements the certificate ledger. Issuance is gated on
// the directory's current answer, batches are all-or-nothing, and revocation
// flips each record exactly once.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"attestor/internal/audit"
	"attestor/internal/ledger/metrics"
	"attestor/internal/ledger/models"
	"attestor/internal/ledger/ports"
	"attestor/internal/ledger/store"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store      store.Store
	authorizer ports.Authorizer
	logger     *slog.Logger
	auditor    AuditPublisher
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	// mu serializes ledger mutations: issuance, batch issuance, and
	// revocation for this entity-set never interleave partially. Reads go
	// straight to the store and stay concurrent.
	mu sync.Mutex

	now func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the timestamp source; test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(st store.Store, authorizer ports.Authorizer, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	svc := &Service{
		store:      st,
		authorizer: authorizer,
		logger:     slog.Default(),
		tracer:     otel.Tracer("attestor/ledger"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IssueCertificate validates and stores a single certificate. Authorization
// is evaluated at this moment, never from an earlier answer.
func (s *Service) IssueCertificate(ctx context.Context, caller domain.Address, request models.IssueRequest) (models.Certificate, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.IssueCertificate",
		trace.WithAttributes(attribute.String("issuer", caller.String())))
	defer span.End()

	if err := validateIssueRequest(request); err != nil {
		return models.Certificate{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIssuer(ctx, caller); err != nil {
		return models.Certificate{}, err
	}

	certificate := s.buildCertificate(caller, request)
	id, err := s.store.Insert(ctx, certificate)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Certificate{}, models.ErrCertificateAlreadyExists
		}
		return models.Certificate{}, dErrors.Wrap(err, dErrors.CodeInternal, "certificate insert failed")
	}
	certificate.ID = id

	if err := s.authorizer.IncrementIssuedCount(ctx, caller); err != nil {
		// The certificate is stored; a failed counter update is a stats
		// defect, not a reason to fail the issuance.
		s.logger.ErrorContext(ctx, "issued count update failed",
			"issuer", caller.String(),
			"certificate_id", id,
			"error", err,
		)
	}

	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", id,
		"issuer", caller.String(),
		"student", certificate.StudentWallet.String(),
	)
	if s.metrics != nil {
		s.metrics.CertificatesIssued.Inc()
	}
	s.emit(ctx, audit.Event{
		Actor:   caller.String(),
		Action:  audit.ActionCertificateIssued,
		Subject: certificate.DocumentHash.String(),
	})
	return certificate, nil
}

// IssueCertificatesBatch applies up to models.MaxBatchSize issuances
// atomically. The four slices are positional; a length mismatch is reported
// with the document-hash validation identity, matching the single-call
// contract for malformed input. The first failing entry aborts the whole
// batch with no partial state change.
func (s *Service) IssueCertificatesBatch(
	ctx context.Context,
	caller domain.Address,
	hashes []domain.DocumentHash,
	students []domain.Address,
	metadataURIs []string,
	graduationYears []int,
) ([]models.Certificate, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.IssueCertificatesBatch",
		trace.WithAttributes(
			attribute.String("issuer", caller.String()),
			attribute.Int("batch_size", len(hashes)),
		))
	defer span.End()

	if len(hashes) < 1 || len(hashes) > models.MaxBatchSize {
		s.countBatchRejected()
		return nil, models.ErrInvalidBatchSize
	}
	if len(students) != len(hashes) || len(metadataURIs) != len(hashes) || len(graduationYears) != len(hashes) {
		s.countBatchRejected()
		return nil, fmt.Errorf("parameter length mismatch: %w", models.ErrInvalidDocumentHash)
	}

	requests := make([]models.IssueRequest, len(hashes))
	for i := range hashes {
		requests[i] = models.IssueRequest{
			DocumentHash:   hashes[i],
			StudentWallet:  students[i],
			MetadataURI:    metadataURIs[i],
			GraduationYear: graduationYears[i],
		}
		if err := validateIssueRequest(requests[i]); err != nil {
			s.countBatchRejected()
			return nil, models.BatchEntry(i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIssuer(ctx, caller); err != nil {
		s.countBatchRejected()
		return nil, err
	}

	certificates := make([]models.Certificate, len(requests))
	for i, request := range requests {
		certificates[i] = s.buildCertificate(caller, request)
	}

	ids, err := s.store.InsertBatch(ctx, certificates)
	if err != nil {
		s.countBatchRejected()
		var dup *store.DuplicateHashError
		if errors.As(err, &dup) {
			return nil, models.BatchEntry(dup.Index, models.ErrCertificateAlreadyExists)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "batch insert failed")
	}

	for i := range certificates {
		certificates[i].ID = ids[i]
		if err := s.authorizer.IncrementIssuedCount(ctx, caller); err != nil {
			s.logger.ErrorContext(ctx, "issued count update failed",
				"issuer", caller.String(),
				"certificate_id", ids[i],
				"error", err,
			)
			break
		}
	}

	s.logger.InfoContext(ctx, "certificate batch issued",
		"issuer", caller.String(),
		"count", len(certificates),
		"first_id", ids[0],
	)
	if s.metrics != nil {
		s.metrics.CertificatesIssued.Add(float64(len(certificates)))
		s.metrics.BatchSize.Observe(float64(len(certificates)))
	}
	s.emit(ctx, audit.Event{
		Actor:   caller.String(),
		Action:  audit.ActionBatchIssued,
		Subject: fmt.Sprintf("%d certificates from %s", len(certificates), ids[0]),
	})
	return certificates, nil
}

// RevokeCertificate marks a certificate revoked. Only the issuing
// institution may revoke, with an admin override that is always permitted.
func (s *Service) RevokeCertificate(ctx context.Context, caller domain.Actor, id domain.CertificateID, reason string) error {
	ctx, span := s.tracer.Start(ctx, "ledger.RevokeCertificate",
		trace.WithAttributes(attribute.String("certificate_id", id.String())))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	certificate, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.ErrCertificateNotFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "certificate lookup failed")
	}
	if certificate.Revoked {
		return models.ErrCertificateAlreadyRevoked
	}
	if certificate.IssuingInstitution != caller.Address && !caller.IsAdmin() {
		return models.ErrNotCertificateIssuer
	}

	if err := s.store.Revoke(ctx, id, s.now(), reason); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return models.ErrCertificateNotFound
		case errors.Is(err, sentinel.ErrInvalidState):
			return models.ErrCertificateAlreadyRevoked
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "revocation failed")
		}
	}

	s.logger.InfoContext(ctx, "certificate revoked",
		"certificate_id", id,
		"actor", caller.Address.String(),
		"reason", reason,
	)
	if s.metrics != nil {
		s.metrics.CertificatesRevoked.Inc()
	}
	s.emit(ctx, audit.Event{
		Actor:   caller.Address.String(),
		Action:  audit.ActionCertificateRevoked,
		Subject: id.String(),
		Reason:  reason,
	})
	return nil
}

// GetCertificate returns the full record for an id.
func (s *Service) GetCertificate(ctx context.Context, id domain.CertificateID) (models.Certificate, error) {
	certificate, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Certificate{}, models.ErrCertificateNotFound
		}
		return models.Certificate{}, dErrors.Wrap(err, dErrors.CodeInternal, "certificate lookup failed")
	}
	return certificate, nil
}

// GetCertificateByHash returns the full record for a document hash.
func (s *Service) GetCertificateByHash(ctx context.Context, hash domain.DocumentHash) (models.Certificate, error) {
	certificate, err := s.store.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Certificate{}, models.ErrCertificateNotFound
		}
		return models.Certificate{}, dErrors.Wrap(err, dErrors.CodeInternal, "certificate lookup failed")
	}
	return certificate, nil
}

// IsValidCertificate is the non-throwing validity check. Unknown hashes
// return the zero Validity rather than an error.
func (s *Service) IsValidCertificate(ctx context.Context, hash domain.DocumentHash) (models.Validity, error) {
	certificate, err := s.store.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Validity{}, nil
		}
		return models.Validity{}, dErrors.Wrap(err, dErrors.CodeInternal, "certificate lookup failed")
	}
	return models.Validity{
		Valid:   !certificate.Revoked,
		ID:      certificate.ID,
		Revoked: certificate.Revoked,
	}, nil
}

// CertificatesByStudent lists every certificate issued to a student wallet.
func (s *Service) CertificatesByStudent(ctx context.Context, student domain.Address) ([]models.Certificate, error) {
	certificates, err := s.store.ListByStudent(ctx, student)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "student lookup failed")
	}
	return certificates, nil
}

// CertificatesByInstitution pages through an institution's issuance history
// in issuance order.
func (s *Service) CertificatesByInstitution(ctx context.Context, institution domain.Address, offset, limit int) ([]models.Certificate, error) {
	certificates, err := s.store.ListByInstitution(ctx, institution, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "institution lookup failed")
	}
	return certificates, nil
}

// TotalCertificates reports how many certificates have ever been issued.
func (s *Service) TotalCertificates(ctx context.Context) (int, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "certificate count failed")
	}
	return count, nil
}

// CountRecords reports how many certificates exist; the upgrade controller
// uses it to prove migrations preserved every record.
func (s *Service) CountRecords(ctx context.Context) (int, error) {
	return s.TotalCertificates(ctx)
}

func (s *Service) requireIssuer(ctx context.Context, caller domain.Address) error {
	can, err := s.authorizer.CanIssue(ctx, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "authorization check failed")
	}
	if !can {
		return models.ErrUnauthorizedIssuer
	}
	return nil
}

func (s *Service) buildCertificate(caller domain.Address, request models.IssueRequest) models.Certificate {
	return models.Certificate{
		DocumentHash:       request.DocumentHash,
		StudentWallet:      request.StudentWallet,
		IssuingInstitution: caller,
		MetadataURI:        request.MetadataURI,
		GraduationYear:     request.GraduationYear,
		IssueDate:          s.now(),
	}
}

func validateIssueRequest(request models.IssueRequest) error {
	if request.StudentWallet.IsZero() {
		return models.ErrInvalidStudentAddress
	}
	if request.DocumentHash.IsZero() {
		return models.ErrInvalidDocumentHash
	}
	if request.GraduationYear < models.MinGraduationYear || request.GraduationYear > models.MaxGraduationYear {
		return models.ErrInvalidGraduationYear
	}
	return nil
}

func (s *Service) countBatchRejected() {
	if s.metrics != nil {
		s.metrics.BatchesRejected.Inc()
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
