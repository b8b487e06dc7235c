package abstraction

import (
	"math"
	"sort"
)

// Potential is a normalized Histogram: a probability distribution over a
// street's Abstractions, the density form the Sinkhorn and Heuristic
// solvers operate on.
type Potential struct {
	probs map[Abstraction]float64
}

// NewPotential builds a Potential directly from a probability assignment.
// Callers are responsible for ensuring the values sum to 1; Normalize is
// the usual way to construct one safely from counts.
func NewPotential(probs map[Abstraction]float64) *Potential {
	p := &Potential{probs: make(map[Abstraction]float64, len(probs))}
	for a, w := range probs {
		if w > 0 {
			p.probs[a] = w
		}
	}
	return p
}

// Support returns every Abstraction with non-zero probability, sorted
// ascending for deterministic iteration.
func (p *Potential) Support() []Abstraction {
	out := make([]Abstraction, 0, len(p.probs))
	for a := range p.probs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Weight returns a's probability mass, or 0 if a is not in the support.
func (p *Potential) Weight(a Abstraction) float64 {
	return p.probs[a]
}

// Density returns a's probability, panicking if the value is non-finite; a
// non-finite density is always an upstream bug, not a recoverable condition.
func (p *Potential) Density(a Abstraction) float64 {
	v := p.probs[a]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		panic("abstraction: potential density is non-finite")
	}
	return v
}
