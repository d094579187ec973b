package models

import (
	dErrors "attestor/pkg/domain-errors"
)

var (
	// ErrProofRejected means the verifier declined the submitted proof.
	// The caller must regenerate the proof; retrying the same bytes will
	// be rejected again.
	ErrProofRejected = dErrors.New(dErrors.CodeProofRejected, "proof rejected by verifier")

	// ErrCommitmentAlreadyRegistered means the commitment key already
	// holds a role binding.
	ErrCommitmentAlreadyRegistered = dErrors.New(dErrors.CodeConflict, "commitment already registered")

	// ErrCommitmentNotFound means no role binding exists for the
	// commitment.
	ErrCommitmentNotFound = dErrors.New(dErrors.CodeNotFound, "commitment not registered")

	// ErrInvalidCommitment means the commitment key is malformed.
	ErrInvalidCommitment = dErrors.New(dErrors.CodeInvalidInput, "invalid commitment")

	// ErrInvalidRole means the requested role binding is not one of the
	// assignable roles.
	ErrInvalidRole = dErrors.New(dErrors.CodeInvalidInput, "invalid role")

	// ErrEmptyProof means no proof bytes were submitted at all.
	ErrEmptyProof = dErrors.New(dErrors.CodeInvalidInput, "empty proof")
)
