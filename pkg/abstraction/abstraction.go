// Package abstraction implements the hierarchical card-abstraction pipeline:
// per-street Abstraction identities, Histograms over them, a symmetric
// pairwise Metric, the Greedy/Sinkhorn/Heuristic transport solvers that
// populate it, the Encoder that maps observations to abstractions, and the
// Layer learner that builds non-River encoders via k-means++.
package abstraction

import (
	"math/big"

	"github.com/behrlich/poker-solver/pkg/cards"
)

const (
	streetShift  = 56
	variantShift = 48
	indexBits    = 48
	indexMask    = (int64(1) << indexBits) - 1
)

// Dense, sequential indices (what Layer and the enumeration order naturally
// produce) are exactly the inputs that violate the Pair/XOR invariant
// documented on Abstraction below:
// index i=0 XORed with index i=3 equals index i=1 XORed with index i=2
// whenever indices are packed verbatim. mixIndex/unmixIndex disperse a
// sequential index across the full 48-bit space with an affine map
// (x*mixMult + mixInc) mod 2^48 before it is ever packed into an Abstraction,
// so the XOR of two packed indices depends on more than the low bits where
// sequential counters collide. A purely multiplicative map would still fix
// 0 to 0 (reintroducing Pair(0, b) == b for any index), so an odd multiplier
// and a nonzero additive constant are both required for the map to have no
// fixed point while staying bijective mod 2^48.
const (
	mixMult = uint64(0x9E3779B97F4A7C15) // odd: invertible mod 2^48
	mixInc  = uint64(0xA24BAED4963EE407)
)

var mixMultInv = computeMixMultInv()

func computeMixMultInv() uint64 {
	m := new(big.Int).SetUint64(uint64(1) << indexBits)
	a := new(big.Int).SetUint64(mixMult & (uint64(1)<<indexBits - 1))
	inv := new(big.Int).ModInverse(a, m)
	if inv == nil {
		panic("abstraction: mixMult is not invertible mod 2^48")
	}
	return inv.Uint64()
}

func mixIndex(index int64) int64 {
	const mod = uint64(1) << indexBits
	u := uint64(index) & (mod - 1)
	return int64((u*mixMult + mixInc) & (mod - 1))
}

func unmixIndex(mixed int64) int64 {
	const mod = uint64(1) << indexBits
	u := uint64(mixed) & (mod - 1)
	diff := (u - mixInc) & (mod - 1)
	return int64((diff * mixMultInv) & (mod - 1))
}

// variant distinguishes the two ways an Abstraction can be populated: a
// direct equity bucket (River, no learning required) or a learned cluster
// index (Flop/Turn/Preflop, assigned by Layer).
type variant uint8

const (
	variantEquity  variant = 0
	variantLearned variant = 1
)

// Abstraction is a tagged 64-bit identity: the high bits encode the street
// and the variant, the low 48 bits encode either an equity bucket (River)
// or a learned cluster index (every other street). Abstraction values are
// only ever compared within a single street; invariant: no valid
// Abstraction on a given street equals the XOR of two other valid
// Abstractions on that same street (Pair relies on this).
type Abstraction int64

func pack(street cards.Street, v variant, index int64) Abstraction {
	return Abstraction(int64(street)<<streetShift | int64(v)<<variantShift | (mixIndex(index) & indexMask))
}

// NewEquityAbstraction builds a River abstraction from an equity bucket in
// [0, 100].
func NewEquityAbstraction(bucket int) Abstraction {
	return pack(cards.River, variantEquity, int64(bucket))
}

// NewLearnedAbstraction builds a non-River abstraction from a cluster index
// assigned by Layer (or, for Preflop, a direct enumeration index).
func NewLearnedAbstraction(street cards.Street, index int) Abstraction {
	return pack(street, variantLearned, int64(index))
}

// Street recovers the street this abstraction belongs to.
func (a Abstraction) Street() cards.Street {
	return cards.Street((int64(a) >> streetShift) & 0xFF)
}

// Index recovers the equity bucket or cluster index, independent of which
// variant produced the Abstraction.
func (a Abstraction) Index() int64 {
	return unmixIndex(int64(a) & indexMask)
}

// IsEquity reports whether a was produced by NewEquityAbstraction.
func (a Abstraction) IsEquity() bool {
	return variant((int64(a)>>variantShift)&0xFF) == variantEquity
}
