package store

import (
	"context"

	"attestor/internal/identity/models"
	"attestor/pkg/domain"
)

// Store is the persistence boundary for the directory. Implementations
// return pkg/platform/sentinel errors for factual failures; the service
// translates those into domain errors.
type Store interface {
	CreateInstitution(ctx context.Context, institution models.Institution) error
	GetInstitution(ctx context.Context, wallet domain.Address) (models.Institution, error)
	UpdateInstitution(ctx context.Context, institution models.Institution) error
	EmailDomainTaken(ctx context.Context, emailDomain string) (bool, error)
	IncrementIssuedCount(ctx context.Context, wallet domain.Address) error
	CountInstitutions(ctx context.Context) (int, error)

	CreateEmployer(ctx context.Context, employer models.Employer) error
	GetEmployer(ctx context.Context, wallet domain.Address) (models.Employer, error)
	UpdateEmployer(ctx context.Context, employer models.Employer) error
	CountEmployers(ctx context.Context) (int, error)
}
