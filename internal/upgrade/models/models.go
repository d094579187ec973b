// Package models holds the upgrade controller's records.
package models

import (
	"time"

	"attestor/pkg/domain"
)

// Component names an upgradeable storage schema. The set is closed;
// upgrades against anything else are rejected.
type Component string

const (
	ComponentIdentity   Component = "identity"
	ComponentLedger     Component = "ledger"
	ComponentCommitment Component = "commitment"
)

func (c Component) IsValid() bool {
	switch c {
	case ComponentIdentity, ComponentLedger, ComponentCommitment:
		return true
	}
	return false
}

// InitialVersion is every component's schema version before any upgrade.
const InitialVersion = domain.SchemaVersion("1.0.0")

// UpgradeHistoryEntry is one line of a component's append-only upgrade log.
type UpgradeHistoryEntry struct {
	Version           domain.SchemaVersion
	Timestamp         time.Time
	Upgrader          domain.Address
	ImplementationRef string
	Notes             string
}
