package models

import (
	"fmt"
	"strings"
	"time"

	"attestor/pkg/domain"
)

// Institution is an issuing organization. Once verified and active it may
// issue certificates; suspension flips Active without removing the record,
// and records are never deleted so the email domain stays claimed forever.
type Institution struct {
	Wallet                  domain.Address
	Name                    string
	EmailDomain             string
	Verified                bool
	Active                  bool
	TotalCertificatesIssued uint64
	RegisteredAt            time.Time
}

// CanIssue is the single authorization predicate consulted by the ledger.
func (i Institution) CanIssue() bool {
	return i.Verified && i.Active
}

// Employer is a self-registered company record used by the verification
// surface. Employers do not issue certificates.
type Employer struct {
	Wallet       domain.Address
	CompanyName  string
	VATNumber    string
	Active       bool
	RegisteredAt time.Time
}

// ValidateEmailDomain checks the syntactic shape of an institution email
// domain: lowercase DNS labels separated by dots, with an alphabetic TLD.
func ValidateEmailDomain(emailDomain string) error {
	if emailDomain == "" {
		return fmt.Errorf("email domain must not be empty")
	}
	if len(emailDomain) > 253 {
		return fmt.Errorf("email domain too long")
	}
	labels := strings.Split(emailDomain, ".")
	if len(labels) < 2 {
		return fmt.Errorf("email domain %q must contain at least one dot", emailDomain)
	}
	for _, label := range labels {
		if err := validateLabel(label); err != nil {
			return fmt.Errorf("email domain %q: %w", emailDomain, err)
		}
	}
	tld := labels[len(labels)-1]
	for _, c := range tld {
		if c < 'a' || c > 'z' {
			return fmt.Errorf("email domain %q: top-level label must be alphabetic", emailDomain)
		}
	}
	return nil
}

func validateLabel(label string) error {
	if label == "" || len(label) > 63 {
		return fmt.Errorf("label length must be 1-63")
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return fmt.Errorf("label must not start or end with a hyphen")
	}
	for _, c := range label {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return fmt.Errorf("label contains invalid character %q", c)
		}
	}
	return nil
}
