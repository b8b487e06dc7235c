package abstraction

import "fmt"

// Pair is the unordered key used to index a symmetric Metric: the XOR of
// two Abstraction identities on the same street. XOR is commutative, so
// Pair(a, b) == Pair(b, a) without any extra bookkeeping.
type Pair int64

// NewPair builds the symmetric key for a and b. Returns an error if a and b
// belong to different streets, since a Metric is always scoped to one
// street and cross-street distance is undefined.
func NewPair(a, b Abstraction) (Pair, error) {
	if a.Street() != b.Street() {
		return 0, fmt.Errorf("abstraction: cannot pair %v (%s) with %v (%s): %w",
			a, a.Street(), b, b.Street(), ErrCrossStreet)
	}
	return Pair(int64(a) ^ int64(b)), nil
}
