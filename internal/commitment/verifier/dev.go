package verifier

import (
	"context"
	"encoding/hex"
	"log/slog"

	"golang.org/x/crypto/sha3"
)

// DevVerifier is the permissive development stand-in. It accepts any
// non-empty proof after a shape check, so flows can be exercised without a
// proving backend. It must never be wired in production: IsProductionReady
// returns false and the caller decides what to do with that.
type DevVerifier struct {
	logger *slog.Logger
}

func NewDev(logger *slog.Logger) *DevVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevVerifier{logger: logger}
}

func (v *DevVerifier) Verify(ctx context.Context, proof []byte, inputs PublicInputs) (bool, error) {
	if len(proof) == 0 {
		return false, nil
	}
	v.logger.WarnContext(ctx, "dev verifier accepted proof without cryptographic verification",
		"proof_digest", ProofDigest(proof),
		"commitment", inputs.Commitment,
		"role", inputs.Role,
	)
	return true, nil
}

func (v *DevVerifier) CircuitIdentity() string { return "dev-permissive-v1" }

func (v *DevVerifier) IsProductionReady() bool { return false }

// ProofDigest returns the Keccak-256 digest of the proof bytes as hex.
// Used as a stable, non-reversible reference to a proof in logs and
// stored records.
func ProofDigest(proof []byte) string {
	digest := sha3.NewLegacyKeccak256()
	digest.Write(proof)
	return hex.EncodeToString(digest.Sum(nil))
}
