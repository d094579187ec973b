// Package store persists role-bound commitments.
package store

import (
	"context"

	"attestor/internal/commitment/models"
)

// Store is the persistence boundary for the commitment registry.
// Implementations return sentinel.ErrConflict from Create when the
// commitment key exists and sentinel.ErrNotFound from Get when it does not.
type Store interface {
	// Create stores a new role binding. Bindings are immutable: there is
	// no update or delete.
	Create(ctx context.Context, commitment models.AuthCommitment) error

	Get(ctx context.Context, commitment string) (models.AuthCommitment, error)

	Count(ctx context.Context) (int, error)
}
