package domain

import (
	"fmt"
	"strconv"
)

// CertificateID is the monotonically increasing ledger identifier for a
// certificate. IDs start at 1; CertificateIDNone (0) is the "not found"
// sentinel returned by non-throwing lookups.
type CertificateID uint64

const CertificateIDNone CertificateID = 0

// ParseCertificateID validates and returns a CertificateID from its decimal
// string form. The zero sentinel is rejected at trust boundaries.
func ParseCertificateID(s string) (CertificateID, error) {
	value, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return CertificateIDNone, fmt.Errorf("invalid certificate id %q", s)
	}
	if value == 0 {
		return CertificateIDNone, fmt.Errorf("certificate id must be positive")
	}
	return CertificateID(value), nil
}

func (id CertificateID) IsNone() bool {
	return id == CertificateIDNone
}

func (id CertificateID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
