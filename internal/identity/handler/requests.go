package handler

import (
	"time"

	"attestor/internal/identity/models"
)

type registerInstitutionRequest struct {
	Wallet      string `json:"wallet"`
	Name        string `json:"name"`
	EmailDomain string `json:"email_domain"`
}

type adminRegisterInstitutionRequest struct {
	AdminWallet string `json:"admin_wallet"`
	Wallet      string `json:"wallet"`
	Name        string `json:"name"`
	EmailDomain string `json:"email_domain"`
}

type adminActionRequest struct {
	AdminWallet string `json:"admin_wallet"`
}

type employerRequest struct {
	Wallet      string `json:"wallet,omitempty"`
	CompanyName string `json:"company_name"`
	VATNumber   string `json:"vat_number"`
}

type institutionResponse struct {
	Wallet                  string    `json:"wallet"`
	Name                    string    `json:"name"`
	EmailDomain             string    `json:"email_domain"`
	Verified                bool      `json:"verified"`
	Active                  bool      `json:"active"`
	TotalCertificatesIssued uint64    `json:"total_certificates_issued"`
	RegisteredAt            time.Time `json:"registered_at"`
}

type canIssueResponse struct {
	CanIssue bool `json:"can_issue"`
}

type employerResponse struct {
	Wallet       string    `json:"wallet"`
	CompanyName  string    `json:"company_name"`
	VATNumber    string    `json:"vat_number"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toInstitutionResponse(institution models.Institution) institutionResponse {
	return institutionResponse{
		Wallet:                  institution.Wallet.ChecksumString(),
		Name:                    institution.Name,
		EmailDomain:             institution.EmailDomain,
		Verified:                institution.Verified,
		Active:                  institution.Active,
		TotalCertificatesIssued: institution.TotalCertificatesIssued,
		RegisteredAt:            institution.RegisteredAt,
	}
}

func toEmployerResponse(employer models.Employer) employerResponse {
	return employerResponse{
		Wallet:       employer.Wallet.ChecksumString(),
		CompanyName:  employer.CompanyName,
		VATNumber:    employer.VATNumber,
		Active:       employer.Active,
		RegisteredAt: employer.RegisteredAt,
	}
}
