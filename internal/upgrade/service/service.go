// Package service implements the versioned upgrade controller. An upgrade
// swaps a component's backing implementation: it runs the registered
// migration, proves no record was lost, appends to the history, and bumps
// the version. Record loss halts the upgrade as a fatal violation instead
// of attempting recovery.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"attestor/internal/audit"
	"attestor/internal/upgrade/models"
	"attestor/internal/upgrade/store"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// RecordCounter reports how many records a component currently holds. The
// controller compares counts before and after a migration; a drop is fatal.
type RecordCounter interface {
	CountRecords(ctx context.Context) (int, error)
}

// Migration moves a component's stored data to a new implementation. It
// must be total: every existing record survives, none is mutated away.
type Migration func(ctx context.Context) error

type Service struct {
	store      store.Store
	counters   map[models.Component]RecordCounter
	migrations map[models.Component]Migration
	logger     *slog.Logger
	auditor    AuditPublisher
	tracer     trace.Tracer

	// mu serializes upgrades so version reads and bumps cannot interleave.
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

// WithMigration registers the data migration run when the component is
// upgraded. Components without one get an identity migration.
func WithMigration(component models.Component, migration Migration) Option {
	return func(s *Service) {
		s.migrations[component] = migration
	}
}

// WithClock overrides the timestamp source; test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(st store.Store, counters map[models.Component]RecordCounter, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("upgrade store is required")
	}
	for component := range counters {
		if !component.IsValid() {
			return nil, fmt.Errorf("unknown component %q", component)
		}
	}
	svc := &Service{
		store:      st,
		counters:   counters,
		migrations: make(map[models.Component]Migration),
		logger:     slog.Default(),
		tracer:     otel.Tracer("attestor/upgrade"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Upgrade applies the component's registered migration, verifies record
// preservation, appends a history entry, and bumps the schema version.
// Admin only.
func (s *Service) Upgrade(ctx context.Context, admin domain.Actor, component models.Component, implementationRef, notes string) (models.UpgradeHistoryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "upgrade.Upgrade",
		trace.WithAttributes(attribute.String("component", string(component))))
	defer span.End()

	if !admin.IsAdmin() {
		return models.UpgradeHistoryEntry{}, models.ErrAdminRequired
	}
	if !component.IsValid() {
		return models.UpgradeHistoryEntry{}, models.ErrUnknownComponent
	}
	if implementationRef == "" {
		return models.UpgradeHistoryEntry{}, dErrors.New(dErrors.CodeInvalidInput, "implementation reference must not be empty")
	}
	counter, ok := s.counters[component]
	if !ok {
		return models.UpgradeHistoryEntry{}, models.ErrUnknownComponent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.CurrentVersion(ctx, component)
	if err != nil {
		return models.UpgradeHistoryEntry{}, dErrors.Wrap(err, dErrors.CodeInternal, "version lookup failed")
	}

	before, err := counter.CountRecords(ctx)
	if err != nil {
		return models.UpgradeHistoryEntry{}, dErrors.Wrap(err, dErrors.CodeInternal, "record count failed")
	}

	if migration := s.migrations[component]; migration != nil {
		if err := migration(ctx); err != nil {
			return models.UpgradeHistoryEntry{}, dErrors.Wrap(err, dErrors.CodeInternal, "migration failed")
		}
	}

	after, err := counter.CountRecords(ctx)
	if err != nil {
		return models.UpgradeHistoryEntry{}, dErrors.Wrap(err, dErrors.CodeInternal, "record count failed")
	}
	if after < before {
		// Fatal: do not bump the version, do not write history. The
		// operator must intervene; there is no best-effort path here.
		s.logger.ErrorContext(ctx, "migration dropped records",
			"component", string(component),
			"before", before,
			"after", after,
		)
		return models.UpgradeHistoryEntry{}, models.ErrRecordLoss
	}

	entry := models.UpgradeHistoryEntry{
		Version:           current.NextMajor(),
		Timestamp:         s.now(),
		Upgrader:          admin.Address,
		ImplementationRef: implementationRef,
		Notes:             notes,
	}
	if err := s.store.AppendHistory(ctx, component, entry); err != nil {
		return models.UpgradeHistoryEntry{}, dErrors.Wrap(err, dErrors.CodeInternal, "history append failed")
	}

	s.logger.InfoContext(ctx, "component upgraded",
		"component", string(component),
		"version", entry.Version.String(),
		"implementation_ref", implementationRef,
		"records", after,
	)
	s.emit(ctx, audit.Event{
		Actor:   admin.Address.String(),
		Action:  audit.ActionSchemaUpgraded,
		Subject: string(component),
		Reason:  notes,
	})
	return entry, nil
}

// Version returns a component's current schema version.
func (s *Service) Version(ctx context.Context, component models.Component) (domain.SchemaVersion, error) {
	if !component.IsValid() {
		return "", models.ErrUnknownComponent
	}
	version, err := s.store.CurrentVersion(ctx, component)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "version lookup failed")
	}
	return version, nil
}

// History returns a component's upgrade log oldest first.
func (s *Service) History(ctx context.Context, component models.Component) ([]models.UpgradeHistoryEntry, error) {
	if !component.IsValid() {
		return nil, models.ErrUnknownComponent
	}
	entries, err := s.store.History(ctx, component)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "history lookup failed")
	}
	return entries, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
