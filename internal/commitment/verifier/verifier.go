// Package verifier declares the external proof-verification capability the
// commitment registry consumes. The registry never inspects proofs itself;
// it only acts on the verifier's pass/fail answer, and it treats every
// implementation identically regardless of production readiness.
package verifier

//go:generate mockgen -source=verifier.go -destination=mocks/mocks.go -package=mocks Verifier

import (
	"context"

	"attestor/pkg/domain"
)

// PublicInputs are the public values a proof is checked against.
type PublicInputs struct {
	Commitment string
	Role       domain.Role
}

// Verifier validates an opaque proof against public inputs.
type Verifier interface {
	// Verify returns whether the proof is accepted. A false return is a
	// rejection, not an error; errors mean the answer could not be
	// obtained at all.
	Verify(ctx context.Context, proof []byte, inputs PublicInputs) (bool, error)

	// CircuitIdentity names the proving circuit this verifier checks
	// against, stable across restarts.
	CircuitIdentity() string

	// IsProductionReady reports whether this verifier performs real
	// cryptographic verification. Permissive stand-ins return false.
	IsProductionReady() bool
}
