// Package store persists per-component schema versions and the append-only
// upgrade history.
package store

import (
	"context"

	"attestor/internal/upgrade/models"
	"attestor/pkg/domain"
)

// Store is the persistence boundary for the upgrade controller. History is
// append-only: there is no way to rewrite or remove an entry.
type Store interface {
	// CurrentVersion returns the component's schema version, or
	// models.InitialVersion when no upgrade was ever applied.
	CurrentVersion(ctx context.Context, component models.Component) (domain.SchemaVersion, error)

	// AppendHistory records an upgrade and moves the component to the
	// entry's version, atomically.
	AppendHistory(ctx context.Context, component models.Component, entry models.UpgradeHistoryEntry) error

	// History lists a component's upgrades oldest first.
	History(ctx context.Context, component models.Component) ([]models.UpgradeHistoryEntry, error)
}
