package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SchemaVersion is a dotted numeric version string ("1.2.0") attached to an
// upgradable component. Versions are compared numerically per segment so the
// upgrade history can enforce a non-decreasing sequence.
type SchemaVersion string

// ParseSchemaVersion validates and returns a SchemaVersion.
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", fmt.Errorf("version must not be empty")
	}
	for _, part := range strings.Split(trimmed, ".") {
		if _, err := strconv.ParseUint(part, 10, 32); err != nil {
			return "", fmt.Errorf("invalid version %q", s)
		}
	}
	return SchemaVersion(trimmed), nil
}

// Compare returns -1, 0, or 1 ordering v against other. Missing segments
// compare as zero, so "1.2" equals "1.2.0".
func (v SchemaVersion) Compare(other SchemaVersion) int {
	a := strings.Split(string(v), ".")
	b := strings.Split(string(other), ".")
	for i := 0; i < len(a) || i < len(b); i++ {
		av, bv := uint64(0), uint64(0)
		if i < len(a) {
			av, _ = strconv.ParseUint(a[i], 10, 32)
		}
		if i < len(b) {
			bv, _ = strconv.ParseUint(b[i], 10, 32)
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// NextMajor returns the version after an implementation swap: the leading
// segment incremented, the rest reset ("2.1.3" → "3.0.0").
func (v SchemaVersion) NextMajor() SchemaVersion {
	parts := strings.Split(string(v), ".")
	major, _ := strconv.ParseUint(parts[0], 10, 32)
	return SchemaVersion(fmt.Sprintf("%d.0.0", major+1))
}

func (v SchemaVersion) String() string {
	return string(v)
}
