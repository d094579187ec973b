package models

import (
	dErrors "attestor/pkg/domain-errors"
)

var (
	// ErrAdminRequired means the caller lacks the admin capability.
	ErrAdminRequired = dErrors.New(dErrors.CodeUnauthorized, "admin capability required")

	// ErrUnknownComponent means the named component is not upgradeable.
	ErrUnknownComponent = dErrors.New(dErrors.CodeNotFound, "unknown component")

	// ErrNoMigration means no migration is registered for the component's
	// next version.
	ErrNoMigration = dErrors.New(dErrors.CodeInvalidInput, "no migration registered")

	// ErrRecordLoss means a migration dropped records. This is a fatal
	// design violation: the upgrade halts, the version does not change,
	// and the process must not paper over it.
	ErrRecordLoss = dErrors.New(dErrors.CodeInvariantViolation, "migration dropped records")
)
