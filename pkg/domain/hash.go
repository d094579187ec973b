package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DocumentHashLength is the byte length of a certificate content hash.
const DocumentHashLength = 32

// DocumentHash is the 32-byte content hash identifying a certificate
// document. Uniqueness of issued hashes is enforced by the ledger for the
// lifetime of the system; the zero hash is never a valid document.
type DocumentHash [DocumentHashLength]byte

// ParseDocumentHash validates and returns a DocumentHash from a hex string,
// with or without a 0x prefix.
func ParseDocumentHash(s string) (DocumentHash, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" {
		return DocumentHash{}, fmt.Errorf("document hash must not be empty")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return DocumentHash{}, fmt.Errorf("invalid document hash encoding: %w", err)
	}
	if len(raw) != DocumentHashLength {
		return DocumentHash{}, fmt.Errorf("document hash must be %d bytes, got %d", DocumentHashLength, len(raw))
	}
	var hash DocumentHash
	copy(hash[:], raw)
	if hash.IsZero() {
		return DocumentHash{}, fmt.Errorf("document hash must not be zero")
	}
	return hash, nil
}

func (h DocumentHash) IsZero() bool {
	return h == DocumentHash{}
}

func (h DocumentHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}
