// Package query implements the in-process equivalent of the abstraction
// system's analysis surface: the same method set and semantics as
// original_source/src/analysis/api.rs's SQL-backed API, answered from an
// in-memory Encoder+Metric instead of a live Postgres connection. The
// network/SQL service itself stays out of scope; this package exists so
// the same questions can be asked without it.
package query

import (
	"fmt"
	"math/rand"

	"github.com/behrlich/poker-solver/pkg/abstraction"
	"github.com/behrlich/poker-solver/pkg/cards"
)

// Store bundles everything one street needs to answer queries: its trained
// Encoder, its Metric, and (for non-River streets) the next street's
// Encoder and Metric, needed for the transition-weighted aggregations.
type Store struct {
	street  cards.Street
	enc     *abstraction.Encoder
	metric  *abstraction.Metric
	sidecar *abstraction.Sidecar // optional; population/centrality are unavailable if nil
	next    *Store               // nil on River
}

// NewStore builds a Store for one street. next is the already-built Store
// for street.Next(), or nil on River. The Store starts with no sidecar;
// until WithSidecar attaches one, AbsPopulation/AbsCentrality and their Obs
// variants return an error.
func NewStore(street cards.Street, enc *abstraction.Encoder, metric *abstraction.Metric, next *Store) (*Store, error) {
	if enc.Street() != street || metric.Street() != street {
		return nil, fmt.Errorf("query: encoder/metric street mismatch for %s", street)
	}
	if street != cards.River && next == nil {
		return nil, fmt.Errorf("query: street %s requires the next street's store", street)
	}
	return &Store{street: street, enc: enc, metric: metric, next: next}, nil
}

// WithSidecar attaches a precomputed population/centrality sidecar to s,
// returning s for chaining.
func (s *Store) WithSidecar(sc *abstraction.Sidecar) *Store {
	s.sidecar = sc
	return s
}

// AbsPopulation returns the number of observations on this street that
// encode to abs.
func (s *Store) AbsPopulation(abs abstraction.Abstraction) (int, error) {
	if s.sidecar == nil {
		return 0, fmt.Errorf("query: street %s has no sidecar loaded", s.street)
	}
	return s.sidecar.PopulationOf(abs), nil
}

// ObsPopulation is AbsPopulation for the abstraction obs resolves to.
func (s *Store) ObsPopulation(obs cards.Observation) (int, error) {
	abs, err := s.Encode(obs)
	if err != nil {
		return 0, err
	}
	return s.AbsPopulation(abs)
}

// AbsCentrality returns abs's mean distance to every other abstraction on
// this street.
func (s *Store) AbsCentrality(abs abstraction.Abstraction) (float64, error) {
	if s.sidecar == nil {
		return 0, fmt.Errorf("query: street %s has no sidecar loaded", s.street)
	}
	v, ok := s.sidecar.CentralityOf(abs)
	if !ok {
		return 0, fmt.Errorf("query: no centrality recorded for %v", abs)
	}
	return v, nil
}

// ObsCentrality is AbsCentrality for the abstraction obs resolves to.
func (s *Store) ObsCentrality(obs cards.Observation) (float64, error) {
	abs, err := s.Encode(obs)
	if err != nil {
		return 0, err
	}
	return s.AbsCentrality(abs)
}

// Encode resolves an Observation to its Abstraction.
func (s *Store) Encode(obs cards.Observation) (abstraction.Abstraction, error) {
	return s.enc.Encode(obs.Canonical())
}

// Metric returns this street's full pairwise distance table as a
// Pair-to-distance map view, matching api.rs's `metric(street)`.
func (s *Store) Metric() *abstraction.Metric {
	return s.metric
}

// Basis returns every Abstraction that participates in this street's
// metric.
func (s *Store) Basis() []abstraction.Abstraction {
	return s.metric.Basis()
}

// AbsEquity returns abs's equity. Only meaningful on River, where
// Abstraction already is an equity bucket; non-River callers should use
// ObsEquity, which aggregates over transitions.
func (s *Store) AbsEquity(abs abstraction.Abstraction) (float64, error) {
	if s.street != cards.River {
		return 0, fmt.Errorf("query: AbsEquity is only defined on River, street is %s", s.street)
	}
	if !abs.IsEquity() {
		return 0, fmt.Errorf("query: %v is not an equity abstraction", abs)
	}
	return float64(abs.Index()) / 100.0, nil
}

// ObsEquity returns obs's equity. On River this is the bucket's own
// equity; on earlier streets it is SUM(dx * childEquity) over the
// observation's children, weighted by how many children land in each
// child abstraction (api.rs's transition-weighted formula).
func (s *Store) ObsEquity(obs cards.Observation) (float64, error) {
	iso := obs.Canonical()
	if s.street == cards.River {
		abs, err := s.enc.Encode(iso)
		if err != nil {
			return 0, err
		}
		return s.AbsEquity(abs)
	}
	if s.next == nil {
		return 0, fmt.Errorf("query: street %s has no child store to aggregate equity from", s.street)
	}
	hist, err := s.enc.Projection(iso, s.next.enc)
	if err != nil {
		return 0, err
	}
	mass := hist.Mass()
	if mass == 0 {
		return 0, fmt.Errorf("query: observation has no children on street %s", s.street)
	}
	var sum float64
	for _, child := range hist.Support() {
		dx := hist.Weight(child) / float64(mass)
		childEquity, err := s.next.ObsEquityForAbstraction(child)
		if err != nil {
			return 0, err
		}
		sum += dx * childEquity
	}
	return sum, nil
}

// ObsEquityForAbstraction recurses AbsEquity/ObsEquity for a single child
// abstraction reached during ObsEquity's aggregation, bottoming out at
// River.
func (s *Store) ObsEquityForAbstraction(abs abstraction.Abstraction) (float64, error) {
	if s.street == cards.River {
		return s.AbsEquity(abs)
	}
	if s.next == nil {
		return 0, fmt.Errorf("query: street %s has no child store", s.street)
	}
	var sum float64
	var mass float64
	for _, childIso := range s.enc.Isomorphisms() {
		a, err := s.enc.Encode(childIso)
		if err != nil || a != abs {
			continue
		}
		hist, err := s.enc.Projection(childIso, s.next.enc)
		if err != nil {
			return 0, err
		}
		m := hist.Mass()
		if m == 0 {
			continue
		}
		for _, grandchild := range hist.Support() {
			dx := hist.Weight(grandchild) / float64(m)
			e, err := s.next.ObsEquityForAbstraction(grandchild)
			if err != nil {
				return 0, err
			}
			sum += dx * e
		}
		mass++
	}
	if mass == 0 {
		return 0, fmt.Errorf("query: abstraction %v has no observed children", abs)
	}
	return sum / mass, nil
}

// AbsDistance returns the metric distance between two same-street
// abstractions.
func (s *Store) AbsDistance(a, b abstraction.Abstraction) (float64, error) {
	return s.metric.Distance(a, b)
}

// ObsDistance returns the Sinkhorn distance between the transition
// histograms of two same-street observations, evaluated against the
// child street's metric, matching api.rs's obs_distance.
func (s *Store) ObsDistance(obs1, obs2 cards.Observation, cfg abstraction.SinkhornConfig) (float64, error) {
	if obs1.Street != obs2.Street || obs1.Street != s.street {
		return 0, fmt.Errorf("query: ObsDistance requires both observations on street %s: %w", s.street, abstraction.ErrCrossStreet)
	}
	if s.next == nil {
		return 0, fmt.Errorf("query: street %s has no child metric for ObsDistance", s.street)
	}
	h1, err := s.enc.Projection(obs1.Canonical(), s.next.enc)
	if err != nil {
		return 0, err
	}
	h2, err := s.enc.Projection(obs2.Canonical(), s.next.enc)
	if err != nil {
		return 0, err
	}
	cost, err := s.next.metric.Sinkhorn(h1, h2, cfg)
	if err != nil && err != abstraction.ErrNotConverged {
		return 0, err
	}
	return cost, nil
}

// AbsHistogram reconstructs abs's transition histogram over the child
// street's abstractions.
func (s *Store) AbsHistogram(abs abstraction.Abstraction) (*abstraction.Histogram, error) {
	if s.next == nil {
		return nil, fmt.Errorf("query: street %s has no transitions to aggregate", s.street)
	}
	out := abstraction.NewHistogram()
	mass := abs.Street().NChildren()
	for _, iso := range s.enc.Isomorphisms() {
		a, err := s.enc.Encode(iso)
		if err != nil || a != abs {
			continue
		}
		hist, err := s.enc.Projection(iso, s.next.enc)
		if err != nil {
			return nil, err
		}
		total := hist.Mass()
		if total == 0 {
			continue
		}
		for _, child := range hist.Support() {
			dx := hist.Weight(child) / float64(total)
			out.Add(child, int(dx*float64(mass)+0.5))
		}
	}
	return out, nil
}

// ObsHistogram reconstructs obs's own transition histogram directly (no
// aggregation across a whole abstraction's support needed).
func (s *Store) ObsHistogram(obs cards.Observation) (*abstraction.Histogram, error) {
	if s.next == nil {
		return nil, fmt.Errorf("query: street %s has no transitions to aggregate", s.street)
	}
	return s.enc.Projection(obs.Canonical(), s.next.enc)
}

// AbsNearby returns up to limit same-street abstractions nearest to abs,
// ascending by distance.
func (s *Store) AbsNearby(abs abstraction.Abstraction, limit int) []abstraction.Neighbor {
	nb := s.metric.Nearby(abs)
	if len(nb) > limit {
		nb = nb[:limit]
	}
	return nb
}

// ObsNearby is AbsNearby for the abstraction obs resolves to.
func (s *Store) ObsNearby(obs cards.Observation, limit int) ([]abstraction.Neighbor, error) {
	abs, err := s.Encode(obs)
	if err != nil {
		return nil, err
	}
	return s.AbsNearby(abs, limit), nil
}

// AbsSimilar returns up to limit isomorphisms sharing abs's abstraction,
// sampled uniformly at random (api.rs orders by RANDOM() LIMIT n; rng must
// be supplied by the caller to keep this package free of hidden global
// state).
func (s *Store) AbsSimilar(abs abstraction.Abstraction, limit int, rng *rand.Rand) []cards.Isomorphism {
	var peers []cards.Isomorphism
	for _, iso := range s.enc.Isomorphisms() {
		a, err := s.enc.Encode(iso)
		if err == nil && a == abs {
			peers = append(peers, iso)
		}
	}
	rng.Shuffle(len(peers), func(i, j int) { peers[i], peers[j] = peers[j], peers[i] })
	if len(peers) > limit {
		peers = peers[:limit]
	}
	return peers
}

// ObsSimilar is AbsSimilar for obs's own abstraction, excluding obs itself.
func (s *Store) ObsSimilar(obs cards.Observation, limit int, rng *rand.Rand) ([]cards.Isomorphism, error) {
	self := obs.Canonical()
	abs, err := s.enc.Encode(self)
	if err != nil {
		return nil, err
	}
	peers := s.AbsSimilar(abs, limit+1, rng)
	out := make([]cards.Isomorphism, 0, limit)
	for _, p := range peers {
		if p == self {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
