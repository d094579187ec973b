package models

import (
	"time"

	"attestor/pkg/domain"
)

// Graduation years accepted by the ledger, inclusive.
const (
	MinGraduationYear = 1900
	MaxGraduationYear = 2100
)

// MaxBatchSize is the upper bound on batch issuance, inclusive. The bound is
// a documented contract, not an artifact of any execution environment.
const MaxBatchSize = 100

// Certificate is an issued credential record. It is immutable after
// issuance except for the one-shot revocation fields, and is never deleted.
type Certificate struct {
	ID                 domain.CertificateID
	DocumentHash       domain.DocumentHash
	StudentWallet      domain.Address
	IssuingInstitution domain.Address
	MetadataURI        string
	GraduationYear     int
	IssueDate          time.Time
	Revoked            bool
	RevokedAt          time.Time
	RevocationReason   string
}

// IssueRequest carries the caller-supplied fields of one issuance.
type IssueRequest struct {
	DocumentHash   domain.DocumentHash
	StudentWallet  domain.Address
	MetadataURI    string
	GraduationYear int
}

// Validity is the non-throwing answer for validation-only callers. Unknown
// hashes yield the zero value: not valid, no id, not revoked.
type Validity struct {
	Valid   bool
	ID      domain.CertificateID
	Revoked bool
}
