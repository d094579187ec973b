package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the byte length of a wallet identity.
const AddressLength = 20

// Address is a 20-byte wallet identity. The zero value is the "no identity"
// sentinel and is rejected by parse paths; callers that need to express
// absence compare against the zero value with IsZero.
type Address [AddressLength]byte

// ParseAddress validates and returns an Address from a hex string, with or
// without a 0x prefix.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" {
		return Address{}, fmt.Errorf("address must not be empty")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address encoding: %w", err)
	}
	if len(raw) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(raw))
	}
	var addr Address
	copy(addr[:], raw)
	if addr.IsZero() {
		return Address{}, fmt.Errorf("address must not be the zero identity")
	}
	return addr, nil
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ChecksumString renders the address with the mixed-case checksum used by
// wallet software, so logs and API responses match what issuers see in their
// own tooling.
func (a Address) ChecksumString() string {
	lower := hex.EncodeToString(a[:])
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	digest := hasher.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(out)
}
