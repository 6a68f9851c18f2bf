package version

import (
	"strconv"
	"strings"
)

// Version is a dotted numeric version parsed into its components.
// Missing, negative or non-numeric components count as zero.
type Version struct {
	raw   string
	parts []uint64
}

// Parse never fails; malformed input degrades to zero components
func Parse(s string) Version {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "v"), "V")

	segments := strings.Split(trimmed, ".")
	parts := make([]uint64, len(segments))
	for i, seg := range segments {
		n, err := strconv.ParseUint(seg, 10, 64)
		if err != nil {
			continue
		}
		parts[i] = n
	}

	return Version{raw: s, parts: parts}
}

// String returns the version as it was parsed
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether the version was never set
func (v Version) IsZero() bool {
	return v.raw == "" && len(v.parts) == 0
}

// Compare returns -1, 0 or 1 when v is lower than, equal to or greater than other
func (v Version) Compare(other Version) int {
	n := max(len(v.parts), len(other.parts))
	for i := 0; i < n; i++ {
		a, b := component(v.parts, i), component(other.parts, i)
		switch {
		case a > b:
			return 1
		case a < b:
			return -1
		}
	}
	return 0
}

// Compare parses both strings and compares them component by component
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

func component(parts []uint64, i int) uint64 {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}
