package frame

import (
	"math/bits"

	"github.com/pkg/errors"
)

// BriskDescriptorLength is the byte length of a BRISK descriptor.
const BriskDescriptorLength = 48

// Descriptor is a binary feature descriptor.
type Descriptor []byte

// HammingDistance returns the number of differing bits between two
// descriptors of equal length.
func HammingDistance(a, b Descriptor) (int, error) {
	if len(a) != len(b) {
		return 0, errors.Errorf("descriptor lengths differ, %d != %d", len(a), len(b))
	}
	dist := 0
	for i := range a {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return dist, nil
}
