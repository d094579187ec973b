package handler

import (
	"fmt"
	"time"

	"attestor/internal/ledger/models"
	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

type issueRequest struct {
	InstitutionWallet string `json:"institution_wallet"`
	DocumentHash      string `json:"document_hash"`
	StudentWallet     string `json:"student_wallet"`
	MetadataURI       string `json:"metadata_uri"`
	GraduationYear    int    `json:"graduation_year"`
}

func (r issueRequest) toModel() (models.IssueRequest, error) {
	hash, err := domain.ParseDocumentHash(r.DocumentHash)
	if err != nil {
		return models.IssueRequest{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid document hash")
	}
	student, err := domain.ParseAddress(r.StudentWallet)
	if err != nil {
		return models.IssueRequest{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid student wallet")
	}
	return models.IssueRequest{
		DocumentHash:   hash,
		StudentWallet:  student,
		MetadataURI:    r.MetadataURI,
		GraduationYear: r.GraduationYear,
	}, nil
}

type batchIssueRequest struct {
	InstitutionWallet string   `json:"institution_wallet"`
	DocumentHashes    []string `json:"document_hashes"`
	StudentWallets    []string `json:"student_wallets"`
	MetadataURIs      []string `json:"metadata_uris"`
	GraduationYears   []int    `json:"graduation_years"`
}

// parseEntries decodes the hash and wallet arrays. Length agreement is the
// service's call; only element syntax is checked here.
func (r batchIssueRequest) parseEntries() ([]domain.DocumentHash, []domain.Address, error) {
	hashes := make([]domain.DocumentHash, len(r.DocumentHashes))
	for i, raw := range r.DocumentHashes {
		hash, err := domain.ParseDocumentHash(raw)
		if err != nil {
			return nil, nil, dErrors.Wrap(fmt.Errorf("entry %d: %w", i, err), dErrors.CodeInvalidInput, "invalid document hash")
		}
		hashes[i] = hash
	}
	students := make([]domain.Address, len(r.StudentWallets))
	for i, raw := range r.StudentWallets {
		student, err := domain.ParseAddress(raw)
		if err != nil {
			return nil, nil, dErrors.Wrap(fmt.Errorf("entry %d: %w", i, err), dErrors.CodeInvalidInput, "invalid student wallet")
		}
		students[i] = student
	}
	return hashes, students, nil
}

type revokeRequest struct {
	CallerWallet string `json:"caller_wallet"`
	Reason       string `json:"reason"`
}

type certificateResponse struct {
	ID                uint64     `json:"id"`
	DocumentHash      string     `json:"document_hash"`
	StudentWallet     string     `json:"student_wallet"`
	InstitutionWallet string     `json:"institution_wallet"`
	MetadataURI       string     `json:"metadata_uri,omitempty"`
	GraduationYear    int        `json:"graduation_year"`
	IssueDate         time.Time  `json:"issue_date"`
	Revoked           bool       `json:"revoked"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
	RevocationReason  string     `json:"revocation_reason,omitempty"`
}

type batchIssueResponse struct {
	Certificates []certificateResponse `json:"certificates"`
}

type totalResponse struct {
	Total int `json:"total"`
}

type validityResponse struct {
	Valid   bool   `json:"valid"`
	ID      uint64 `json:"id"`
	Revoked bool   `json:"revoked"`
}

type certificateListResponse struct {
	Certificates []certificateResponse `json:"certificates"`
}

func toCertificateResponse(certificate models.Certificate) certificateResponse {
	response := certificateResponse{
		ID:                uint64(certificate.ID),
		DocumentHash:      certificate.DocumentHash.String(),
		StudentWallet:     certificate.StudentWallet.ChecksumString(),
		InstitutionWallet: certificate.IssuingInstitution.ChecksumString(),
		MetadataURI:       certificate.MetadataURI,
		GraduationYear:    certificate.GraduationYear,
		IssueDate:         certificate.IssueDate,
		Revoked:           certificate.Revoked,
		RevocationReason:  certificate.RevocationReason,
	}
	if certificate.Revoked {
		revokedAt := certificate.RevokedAt
		response.RevokedAt = &revokedAt
	}
	return response
}

func toCertificateListResponse(certificates []models.Certificate) certificateListResponse {
	responses := make([]certificateResponse, len(certificates))
	for i, certificate := range certificates {
		responses[i] = toCertificateResponse(certificate)
	}
	return certificateListResponse{Certificates: responses}
}
