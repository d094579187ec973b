// Package service implements the institution and employer directory. It is
// the authorization source of truth for the ledger: CanIssue always reads
// current store state, never a cached answer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"attestor/internal/audit"
	"attestor/internal/identity/metrics"
	"attestor/internal/identity/models"
	"attestor/internal/identity/store"
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
	store   store.Store
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer

	// mu serializes directory mutations so registration pre-checks and the
	// subsequent create observe the same state.
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

func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	svc := &Service{
		store:  st,
		logger: slog.Default(),
		tracer: otel.Tracer("attestor/identity"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterInstitution creates a self-service record pending approval.
func (s *Service) RegisterInstitution(ctx context.Context, caller domain.Address, name, emailDomain string) (models.Institution, error) {
	ctx, span := s.tracer.Start(ctx, "identity.RegisterInstitution",
		trace.WithAttributes(attribute.String("wallet", caller.String())))
	defer span.End()

	return s.registerInstitution(ctx, caller, caller.String(), name, emailDomain, false)
}

// RegisterInstitutionByAdmin creates a pre-approved record on behalf of a
// wallet. The admin must not register their own wallet.
func (s *Service) RegisterInstitutionByAdmin(ctx context.Context, admin domain.Actor, wallet domain.Address, name, emailDomain string) (models.Institution, error) {
	ctx, span := s.tracer.Start(ctx, "identity.RegisterInstitutionByAdmin",
		trace.WithAttributes(attribute.String("wallet", wallet.String())))
	defer span.End()

	if !admin.IsAdmin() {
		return models.Institution{}, models.ErrAdminRequired
	}
	if wallet == admin.Address {
		return models.Institution{}, models.ErrSelfRegistrationForbidden
	}
	return s.registerInstitution(ctx, wallet, admin.Address.String(), name, emailDomain, true)
}

func (s *Service) registerInstitution(ctx context.Context, wallet domain.Address, actor, name, emailDomain string, verified bool) (models.Institution, error) {
	if wallet.IsZero() {
		return models.Institution{}, dErrors.New(dErrors.CodeInvalidInput, "wallet must not be the zero identity")
	}
	if name == "" {
		return models.Institution{}, dErrors.New(dErrors.CodeInvalidInput, "institution name must not be empty")
	}
	if err := models.ValidateEmailDomain(emailDomain); err != nil {
		return models.Institution{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid email domain")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetInstitution(ctx, wallet); err == nil {
		return models.Institution{}, models.ErrAlreadyRegistered
	}
	taken, err := s.store.EmailDomainTaken(ctx, emailDomain)
	if err != nil {
		return models.Institution{}, dErrors.Wrap(err, dErrors.CodeInternal, "email domain lookup failed")
	}
	if taken {
		return models.Institution{}, models.ErrDomainAlreadyRegistered
	}

	institution := models.Institution{
		Wallet:       wallet,
		Name:         name,
		EmailDomain:  emailDomain,
		Verified:     verified,
		Active:       true,
		RegisteredAt: s.now(),
	}
	if err := s.store.CreateInstitution(ctx, institution); err != nil {
		if sentinelConflict(err) {
			return models.Institution{}, models.ErrDomainAlreadyRegistered
		}
		return models.Institution{}, dErrors.Wrap(err, dErrors.CodeInternal, "institution registration failed")
	}

	s.logger.InfoContext(ctx, "institution registered",
		"wallet", wallet.String(),
		"email_domain", emailDomain,
		"verified", verified,
	)
	if s.metrics != nil {
		s.metrics.InstitutionsRegistered.Inc()
	}
	s.emit(ctx, audit.Event{
		Actor:   actor,
		Action:  audit.ActionInstitutionRegistered,
		Subject: wallet.String(),
	})
	return institution, nil
}

// ApproveInstitution sets the verified flag. Approving an already-approved
// institution is a no-op, not an error.
func (s *Service) ApproveInstitution(ctx context.Context, admin domain.Actor, wallet domain.Address) error {
	return s.transition(ctx, admin, wallet, audit.ActionInstitutionApproved, func(institution *models.Institution) bool {
		if institution.Verified {
			return false
		}
		institution.Verified = true
		return true
	})
}

// SuspendInstitution clears the active flag. Issuance authorization is
// revoked immediately: the next CanIssue call sees the new state.
func (s *Service) SuspendInstitution(ctx context.Context, admin domain.Actor, wallet domain.Address) error {
	return s.transition(ctx, admin, wallet, audit.ActionInstitutionSuspended, func(institution *models.Institution) bool {
		if !institution.Active {
			return false
		}
		institution.Active = false
		return true
	})
}

// ReactivateInstitution restores the active flag.
func (s *Service) ReactivateInstitution(ctx context.Context, admin domain.Actor, wallet domain.Address) error {
	return s.transition(ctx, admin, wallet, audit.ActionInstitutionReactivated, func(institution *models.Institution) bool {
		if institution.Active {
			return false
		}
		institution.Active = true
		return true
	})
}

func (s *Service) transition(ctx context.Context, admin domain.Actor, wallet domain.Address, action string, apply func(*models.Institution) bool) error {
	ctx, span := s.tracer.Start(ctx, "identity.transition",
		trace.WithAttributes(attribute.String("action", action), attribute.String("wallet", wallet.String())))
	defer span.End()

	if !admin.IsAdmin() {
		return models.ErrAdminRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	institution, err := s.store.GetInstitution(ctx, wallet)
	if err != nil {
		if sentinelNotFound(err) {
			return models.ErrInstitutionNotFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "institution lookup failed")
	}

	if !apply(&institution) {
		// Idempotent transition; current state already matches.
		return nil
	}
	if err := s.store.UpdateInstitution(ctx, institution); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "institution update failed")
	}

	s.logger.InfoContext(ctx, "institution state changed",
		"wallet", wallet.String(),
		"action", action,
	)
	if s.metrics != nil {
		switch action {
		case audit.ActionInstitutionApproved:
			s.metrics.InstitutionsApproved.Inc()
		case audit.ActionInstitutionSuspended:
			s.metrics.InstitutionsSuspended.Inc()
		}
	}
	s.emit(ctx, audit.Event{
		Actor:   admin.Address.String(),
		Action:  action,
		Subject: wallet.String(),
	})
	return nil
}

// CanIssue is the pure authorization predicate consulted by the ledger on
// every issuance. Unknown wallets simply cannot issue.
func (s *Service) CanIssue(ctx context.Context, wallet domain.Address) (bool, error) {
	institution, err := s.store.GetInstitution(ctx, wallet)
	if err != nil {
		if sentinelNotFound(err) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "institution lookup failed")
	}
	return institution.CanIssue(), nil
}

// IncrementIssuedCount bumps the issuing counter. Called by the ledger on
// successful issuance only; the counter never decreases.
func (s *Service) IncrementIssuedCount(ctx context.Context, wallet domain.Address) error {
	if err := s.store.IncrementIssuedCount(ctx, wallet); err != nil {
		if sentinelNotFound(err) {
			return models.ErrInstitutionNotFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "issued count update failed")
	}
	return nil
}

// Institution returns the directory record for a wallet.
func (s *Service) Institution(ctx context.Context, wallet domain.Address) (models.Institution, error) {
	institution, err := s.store.GetInstitution(ctx, wallet)
	if err != nil {
		if sentinelNotFound(err) {
			return models.Institution{}, models.ErrInstitutionNotFound
		}
		return models.Institution{}, dErrors.Wrap(err, dErrors.CodeInternal, "institution lookup failed")
	}
	return institution, nil
}

// RegisterEmployer creates a self-service employer record.
func (s *Service) RegisterEmployer(ctx context.Context, caller domain.Address, companyName, vatNumber string) (models.Employer, error) {
	ctx, span := s.tracer.Start(ctx, "identity.RegisterEmployer")
	defer span.End()

	if caller.IsZero() {
		return models.Employer{}, dErrors.New(dErrors.CodeInvalidInput, "wallet must not be the zero identity")
	}
	if companyName == "" {
		return models.Employer{}, dErrors.New(dErrors.CodeInvalidInput, "company name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	employer := models.Employer{
		Wallet:       caller,
		CompanyName:  companyName,
		VATNumber:    vatNumber,
		Active:       true,
		RegisteredAt: s.now(),
	}
	if err := s.store.CreateEmployer(ctx, employer); err != nil {
		if sentinelConflict(err) {
			return models.Employer{}, models.ErrEmployerAlreadyRegistered
		}
		return models.Employer{}, dErrors.Wrap(err, dErrors.CodeInternal, "employer registration failed")
	}

	if s.metrics != nil {
		s.metrics.EmployersRegistered.Inc()
	}
	s.emit(ctx, audit.Event{
		Actor:   caller.String(),
		Action:  audit.ActionEmployerRegistered,
		Subject: caller.String(),
	})
	return employer, nil
}

// UpdateEmployer replaces the mutable employer fields.
func (s *Service) UpdateEmployer(ctx context.Context, caller domain.Address, companyName, vatNumber string) (models.Employer, error) {
	if companyName == "" {
		return models.Employer{}, dErrors.New(dErrors.CodeInvalidInput, "company name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	employer, err := s.store.GetEmployer(ctx, caller)
	if err != nil {
		if sentinelNotFound(err) {
			return models.Employer{}, models.ErrEmployerNotFound
		}
		return models.Employer{}, dErrors.Wrap(err, dErrors.CodeInternal, "employer lookup failed")
	}
	employer.CompanyName = companyName
	employer.VATNumber = vatNumber
	if err := s.store.UpdateEmployer(ctx, employer); err != nil {
		return models.Employer{}, dErrors.Wrap(err, dErrors.CodeInternal, "employer update failed")
	}

	s.emit(ctx, audit.Event{
		Actor:   caller.String(),
		Action:  audit.ActionEmployerUpdated,
		Subject: caller.String(),
	})
	return employer, nil
}

// Employer returns the employer record for a wallet.
func (s *Service) Employer(ctx context.Context, wallet domain.Address) (models.Employer, error) {
	employer, err := s.store.GetEmployer(ctx, wallet)
	if err != nil {
		if sentinelNotFound(err) {
			return models.Employer{}, models.ErrEmployerNotFound
		}
		return models.Employer{}, dErrors.Wrap(err, dErrors.CodeInternal, "employer lookup failed")
	}
	return employer, nil
}

// CountRecords reports how many institutions and employers exist; the
// upgrade controller uses it to prove migrations preserved every record.
func (s *Service) CountRecords(ctx context.Context) (int, error) {
	institutions, err := s.store.CountInstitutions(ctx)
	if err != nil {
		return 0, err
	}
	employers, err := s.store.CountEmployers(ctx)
	if err != nil {
		return 0, err
	}
	return institutions + employers, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}

func sentinelNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}

func sentinelConflict(err error) bool {
	return errors.Is(err, sentinel.ErrConflict)
}
