package verifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attestor/pkg/domain"
)

func TestDevVerifier(t *testing.T) {
	v := NewDev(nil)
	inputs := PublicInputs{Commitment: "0xabc", Role: domain.RoleStudent}

	accepted, err := v.Verify(context.Background(), []byte("any-proof"), inputs)
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = v.Verify(context.Background(), nil, inputs)
	require.NoError(t, err)
	assert.False(t, accepted, "empty proof is malformed even for the permissive verifier")

	assert.False(t, v.IsProductionReady())
	assert.NotEmpty(t, v.CircuitIdentity())
}

func TestProofDigest(t *testing.T) {
	// Keccak-256, not SHA3-256: the digest of the empty input is the
	// well-known c5d24601... value.
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		ProofDigest(nil),
	)
	assert.Equal(t, ProofDigest([]byte("a")), ProofDigest([]byte("a")))
	assert.NotEqual(t, ProofDigest([]byte("a")), ProofDigest([]byte("b")))
}
