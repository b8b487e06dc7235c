package abstraction

import (
	"sort"

	"github.com/behrlich/poker-solver/pkg/cards"
)

// BuildPreflopEncoder assigns each of the 169 canonical starting-hand
// classes (13 pairs, 78 suited, 78 offsuit) a sequential index. Preflop is
// small and finite enough to enumerate directly rather than learn via
// Layer; spec.md's k(Pref)=0 convention is honored by never invoking
// k-means for this street.
func BuildPreflopEncoder() (*Encoder, error) {
	isos := cards.EnumerateIsomorphisms(cards.Preflop)
	sort.Slice(isos, func(i, j int) bool { return isos[i] < isos[j] })

	enc := NewEncoder(cards.Preflop)
	for i, iso := range isos {
		if err := enc.Assign(iso, NewLearnedAbstraction(cards.Preflop, i)); err != nil {
			return nil, err
		}
	}
	return enc, nil
}

// BuildPreflopMetric derives the Preflop Metric from the already-trained
// Flop encoder and metric. Preflop has no Layer of its own (its 169 classes
// are enumerated, not clustered), but its distances are computed the same
// way Layer.innerMetric derives every other street's: each Preflop class is
// projected onto a Histogram over Flop abstractions (the weighted
// distribution of its C(50,3) Flop children), and the distance between two
// classes is the average of the Flop metric's EMD in both directions.
func BuildPreflopMetric(enc *Encoder, flopEncoder *Encoder, flopMetric *Metric) (*Metric, error) {
	isos := enc.Isomorphisms()
	sort.Slice(isos, func(i, j int) bool { return isos[i] < isos[j] })

	points := make(map[Abstraction]*Histogram, len(isos))
	order := make([]Abstraction, 0, len(isos))
	for _, iso := range isos {
		h, err := enc.Projection(iso, flopEncoder)
		if err != nil {
			return nil, err
		}
		a, err := enc.Encode(iso)
		if err != nil {
			return nil, err
		}
		points[a] = h
		order = append(order, a)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	metric := NewMetric(cards.Preflop)
	for i, a := range order {
		for _, b := range order[i+1:] {
			fwd, err := flopMetric.Greedy(points[a], points[b])
			if err != nil {
				return nil, err
			}
			bwd, err := flopMetric.Greedy(points[b], points[a])
			if err != nil {
				return nil, err
			}
			if err := metric.Set(a, b, (fwd+bwd)/2); err != nil {
				return nil, err
			}
		}
	}
	return metric, nil
}
