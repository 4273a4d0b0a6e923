package causal

import "strconv"

// SampleID is a stable sample identifier. Identifiers are opaque labels:
// they carry no ordering or numbering assumptions, so non-contiguous and
// non-numeric identifiers are first-class.
type SampleID string

// Index is an ordered collection of sample identifiers. Two indices are
// considered aligned only when they agree in content AND order; silent
// reindexing is a worse failure mode than an explicit error.
type Index []SampleID

// RangeIndex builds a default index "0".."n-1" for callers without
// meaningful sample identifiers.
func RangeIndex(n int) Index {
	ix := make(Index, n)
	for i := range ix {
		ix[i] = SampleID(strconv.Itoa(i))
	}
	return ix
}

// Equal reports set-and-order equality with another index.
func (ix Index) Equal(other Index) bool {
	if len(ix) != len(other) {
		return false
	}
	for i := range ix {
		if ix[i] != other[i] {
			return false
		}
	}
	return true
}

// Head returns up to n leading identifiers as strings, for error messages.
func (ix Index) Head(n int) []string {
	if n > len(ix) {
		n = len(ix)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = string(ix[i])
	}
	return out
}

func (ix Index) Clone() Index {
	out := make(Index, len(ix))
	copy(out, ix)
	return out
}
