package models

import (
	"fmt"

	dErrors "attestor/pkg/domain-errors"
)

// Named error identities for the ledger. Handlers and tests match on these
// with errors.Is; the codes drive HTTP status mapping.
var (
	ErrUnauthorizedIssuer        = dErrors.New(dErrors.CodeUnauthorized, "caller is not a verified active institution")
	ErrNotCertificateIssuer      = dErrors.New(dErrors.CodeForbidden, "caller is neither the issuing institution nor an admin")
	ErrInvalidStudentAddress     = dErrors.New(dErrors.CodeInvalidInput, "student wallet must not be the zero identity")
	ErrInvalidDocumentHash       = dErrors.New(dErrors.CodeInvalidInput, "document hash must not be zero")
	ErrInvalidGraduationYear     = dErrors.New(dErrors.CodeInvalidInput, "graduation year must be between 1900 and 2100")
	ErrInvalidBatchSize          = dErrors.New(dErrors.CodeInvalidInput, "batch size must be between 1 and 100")
	ErrCertificateAlreadyExists  = dErrors.New(dErrors.CodeConflict, "document hash already issued")
	ErrCertificateNotFound       = dErrors.New(dErrors.CodeNotFound, "certificate not found")
	ErrCertificateAlreadyRevoked = dErrors.New(dErrors.CodeConflict, "certificate already revoked")
)

// BatchEntry wraps an entry-level failure with the index that caused the
// batch to abort. The wrapped error keeps its identity for errors.Is.
func BatchEntry(index int, err error) error {
	return fmt.Errorf("batch entry %d: %w", index, err)
}
