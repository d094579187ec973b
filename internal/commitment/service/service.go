// Package service implements privacy-preserving authentication over
// role-bound commitments. All proof checking is delegated to the verifier
// capability; this service only acts on its pass/fail answer and treats a
// permissive development verifier and a strict production one identically.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"attestor/internal/audit"
	"attestor/internal/commitment/metrics"
	"attestor/internal/commitment/models"
	"attestor/internal/commitment/session"
	"attestor/internal/commitment/store"
	"attestor/internal/commitment/verifier"
	jwttoken "attestor/internal/jwt_token"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSessionTTL bounds how long an authenticated-session token stays
// valid without re-proving.
const DefaultSessionTTL = 15 * time.Minute

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store    store.Store
	verifier verifier.Verifier
	sessions session.Store
	tokens   *jwttoken.JWTService
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	// mu serializes registrations so the existence pre-check and the
	// create observe the same state.
	mu sync.Mutex

	sessionTTL time.Duration
	now        func() time.Time
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

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

// WithClock overrides the timestamp source; test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(st store.Store, v verifier.Verifier, sessions session.Store, tokens *jwttoken.JWTService, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("commitment store is required")
	}
	if v == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	svc := &Service{
		store:      st,
		verifier:   v,
		sessions:   sessions,
		tokens:     tokens,
		logger:     slog.Default(),
		tracer:     otel.Tracer("attestor/commitment"),
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.logger.Info("commitment registry configured",
		"circuit", v.CircuitIdentity(),
		"production_ready", v.IsProductionReady(),
	)
	return svc, nil
}

// RegisterCommitment binds a role to a commitment after the verifier
// accepts the registration proof. The binding is permanent.
func (s *Service) RegisterCommitment(ctx context.Context, commitment string, role domain.Role, proof []byte) (models.AuthCommitment, error) {
	ctx, span := s.tracer.Start(ctx, "commitment.RegisterCommitment",
		trace.WithAttributes(attribute.String("role", role.String())))
	defer span.End()

	if err := models.ValidateCommitment(commitment); err != nil {
		return models.AuthCommitment{}, err
	}
	if !role.IsValid() {
		return models.AuthCommitment{}, models.ErrInvalidRole
	}
	if len(proof) == 0 {
		return models.AuthCommitment{}, models.ErrEmptyProof
	}

	accepted, err := s.verifier.Verify(ctx, proof, verifier.PublicInputs{
		Commitment: commitment,
		Role:       role,
	})
	if err != nil {
		return models.AuthCommitment{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "verifier unavailable")
	}
	if !accepted {
		s.countRejected()
		return models.AuthCommitment{}, models.ErrProofRejected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Get(ctx, commitment); err == nil {
		return models.AuthCommitment{}, models.ErrCommitmentAlreadyRegistered
	}

	record := models.AuthCommitment{
		Commitment:   commitment,
		Role:         role,
		ProofRef:     verifier.ProofDigest(proof),
		RegisteredAt: s.now(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.AuthCommitment{}, models.ErrCommitmentAlreadyRegistered
		}
		return models.AuthCommitment{}, dErrors.Wrap(err, dErrors.CodeInternal, "commitment registration failed")
	}

	s.logger.InfoContext(ctx, "commitment registered",
		"role", role.String(),
		"circuit", s.verifier.CircuitIdentity(),
	)
	if s.metrics != nil {
		s.metrics.CommitmentsRegistered.Inc()
	}
	s.emit(ctx, audit.Event{
		Actor:   "commitment",
		Action:  audit.ActionCommitmentRegistered,
		Subject: record.ProofRef,
	})
	return record, nil
}

// IsRegistered reports whether a role binding exists for the commitment.
func (s *Service) IsRegistered(ctx context.Context, commitment string) (bool, error) {
	if err := models.ValidateCommitment(commitment); err != nil {
		return false, nil
	}
	_, err := s.store.Get(ctx, commitment)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, dErrors.Wrap(err, dErrors.CodeInternal, "commitment lookup failed")
}

// GetRole returns the role bound to a commitment, or RoleUnassigned for
// unknown commitments. Unknown is not an error here.
func (s *Service) GetRole(ctx context.Context, commitment string) (domain.Role, error) {
	if err := models.ValidateCommitment(commitment); err != nil {
		return domain.RoleUnassigned, nil
	}
	record, err := s.store.Get(ctx, commitment)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.RoleUnassigned, nil
		}
		return domain.RoleUnassigned, dErrors.Wrap(err, dErrors.CodeInternal, "commitment lookup failed")
	}
	return record.Role, nil
}

// Authenticate re-verifies a login proof against the stored role binding
// and returns an opaque session token.
func (s *Service) Authenticate(ctx context.Context, commitment string, proof []byte) (string, error) {
	ctx, span := s.tracer.Start(ctx, "commitment.Authenticate")
	defer span.End()

	if err := models.ValidateCommitment(commitment); err != nil {
		return "", err
	}
	if len(proof) == 0 {
		return "", models.ErrEmptyProof
	}

	record, err := s.store.Get(ctx, commitment)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", models.ErrCommitmentNotFound
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "commitment lookup failed")
	}

	accepted, err := s.verifier.Verify(ctx, proof, verifier.PublicInputs{
		Commitment: record.Commitment,
		Role:       record.Role,
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "verifier unavailable")
	}
	if !accepted {
		s.countRejected()
		return "", models.ErrProofRejected
	}

	token, jti, err := s.tokens.GenerateSessionToken(record.Commitment, record.Role, s.sessionTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "session token generation failed")
	}
	issuedAt := s.now()
	if err := s.sessions.Save(ctx, models.Session{
		ID:         jti,
		Commitment: record.Commitment,
		Role:       record.Role,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(s.sessionTTL),
	}); err != nil {
		// The token is already signed and valid on its own; a session
		// store outage only disables early revocation.
		s.logger.ErrorContext(ctx, "session record save failed", "error", err)
	}

	s.logger.InfoContext(ctx, "commitment authenticated", "role", record.Role.String())
	if s.metrics != nil {
		s.metrics.Logins.Inc()
	}
	s.emit(ctx, audit.Event{
		Actor:   "commitment",
		Action:  audit.ActionLoginSucceeded,
		Subject: record.ProofRef,
	})
	return token, nil
}

// Logout revokes the live session so its token stops passing the auth
// middleware before its natural expiry. Revoking an unknown or already
// expired session is a no-op.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "session id is required")
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "session revocation failed")
	}
	s.logger.InfoContext(ctx, "session revoked")
	return nil
}

// CountRecords reports how many commitments exist; the upgrade controller
// uses it to prove migrations preserved every record.
func (s *Service) CountRecords(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) countRejected() {
	if s.metrics != nil {
		s.metrics.ProofsRejected.Inc()
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
