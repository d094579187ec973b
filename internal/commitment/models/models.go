// Package models holds the commitment registry's domain records.
package models

import (
	"regexp"
	"time"

	"attestor/pkg/domain"
)

// AuthCommitment binds an opaque, caller-supplied commitment value to a
// role. The binding is made once at registration and never changes; there
// is no deregistration.
type AuthCommitment struct {
	Commitment   string
	Role         domain.Role
	ProofRef     string
	RegisteredAt time.Time
}

// Session is an authenticated-session record tracked for revocation
// lookup. The token itself is opaque to the registry core.
type Session struct {
	ID         string
	Commitment string
	Role       domain.Role
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// MaxCommitmentLength bounds the stored commitment key. Commitments are
// opaque to the registry but field elements from the external scheme fit
// comfortably in 66 hex characters; the bound guards against abuse.
const MaxCommitmentLength = 128

var commitmentPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]+$`)

// ValidateCommitment checks well-formedness of a caller-supplied commitment
// key. The value stays opaque; only shape is checked.
func ValidateCommitment(commitment string) error {
	if commitment == "" {
		return ErrInvalidCommitment
	}
	if len(commitment) > MaxCommitmentLength {
		return ErrInvalidCommitment
	}
	if !commitmentPattern.MatchString(commitment) {
		return ErrInvalidCommitment
	}
	return nil
}
