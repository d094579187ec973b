package models

import (
	dErrors "attestor/pkg/domain-errors"
)

// Named error identities for the directory. Handlers and tests match on
// these with errors.Is; the codes drive HTTP status mapping.
var (
	ErrAlreadyRegistered         = dErrors.New(dErrors.CodeConflict, "wallet already has an institution record")
	ErrDomainAlreadyRegistered   = dErrors.New(dErrors.CodeConflict, "email domain already registered")
	ErrSelfRegistrationForbidden = dErrors.New(dErrors.CodeForbidden, "admin must not register their own wallet")
	ErrInstitutionNotFound       = dErrors.New(dErrors.CodeNotFound, "institution not found")
	ErrEmployerNotFound          = dErrors.New(dErrors.CodeNotFound, "employer not found")
	ErrEmployerAlreadyRegistered = dErrors.New(dErrors.CodeConflict, "wallet already has an employer record")
	ErrAdminRequired             = dErrors.New(dErrors.CodeUnauthorized, "admin capability required")
)
