package abstraction

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/behrlich/poker-solver/pkg/cards"
	"github.com/behrlich/poker-solver/pkg/equity"
	"github.com/behrlich/poker-solver/pkg/notation"
)

// EquityBuckets is the number of River buckets: equity is a percentile in
// [0, 100], so no learning is required for this street.
const EquityBuckets = 101

// BuildRiverEncoder assigns every canonical River isomorphism an equity
// bucket in [0, EquityBuckets), computed as round(100 * equity) against a
// uniformly random opponent hand (every unseen two-card combo, evaluated
// exactly via equity.Calculator — River has no runout left to sample).
// This is the base case the rest of the Layer hierarchy builds on: it
// needs no metric lookup of its own besides the trivial
// |bucketA - bucketB| distance BuildRiverMetric stores.
func BuildRiverEncoder(isomorphisms []cards.Isomorphism) (*Encoder, error) {
	calc := equity.NewCalculator()
	enc := NewEncoder(cards.River)

	buckets := make([]int, len(isomorphisms))
	var g errgroup.Group
	for i, iso := range isomorphisms {
		i, iso := i, iso
		g.Go(func() error {
			bucket, err := riverEquityBucket(calc, iso)
			if err != nil {
				return err
			}
			buckets[i] = bucket
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, iso := range isomorphisms {
		if err := enc.Assign(iso, NewEquityAbstraction(buckets[i])); err != nil {
			return nil, err
		}
	}
	return enc, nil
}

// BuildRiverMetric returns the distance table over River's equity buckets:
// |bucketA - bucketB|, the natural metric on a percentile scale. This is
// the base case every other street's Layer ultimately measures transport
// cost against.
func BuildRiverMetric(enc *Encoder) (*Metric, error) {
	if enc.Street() != cards.River {
		return nil, fmt.Errorf("abstraction: BuildRiverMetric requires a River encoder, got %s", enc.Street())
	}
	metric := NewMetric(cards.River)
	for i := 0; i < EquityBuckets; i++ {
		a := NewEquityAbstraction(i)
		for j := i + 1; j < EquityBuckets; j++ {
			b := NewEquityAbstraction(j)
			if err := metric.Set(a, b, float64(j-i)); err != nil {
				return nil, err
			}
		}
	}
	return metric, nil
}

// riverEquityBucket computes one River isomorphism's equity percentile
// bucket against every remaining opponent combo.
func riverEquityBucket(calc *equity.Calculator, iso cards.Isomorphism) (int, error) {
	if iso.Street() != cards.River {
		return 0, fmt.Errorf("abstraction: %v is not a River isomorphism", iso)
	}
	obs := iso.RepresentativeObservation()
	hole, board := obs.Hole, obs.Board

	used := map[cards.Card]bool{hole[0]: true, hole[1]: true}
	for _, c := range board {
		used[c] = true
	}
	var remaining []cards.Card
	for rank := cards.Two; rank <= cards.Ace; rank++ {
		for suit := cards.Spades; suit <= cards.Clubs; suit++ {
			c := cards.Card{Rank: rank, Suit: suit}
			if !used[c] {
				remaining = append(remaining, c)
			}
		}
	}

	opponents := make([]notation.Combo, 0, len(remaining)*(len(remaining)-1)/2)
	for i := 0; i < len(remaining); i++ {
		for j := i + 1; j < len(remaining); j++ {
			opponents = append(opponents, notation.Combo{Card1: remaining[i], Card2: remaining[j]})
		}
	}

	result := calc.CalculateEquity(hole[:], board, opponents)
	bucket := int(result.Equity*100 + 0.5)
	if bucket < 0 {
		bucket = 0
	}
	if bucket > 100 {
		bucket = 100
	}
	return bucket, nil
}

