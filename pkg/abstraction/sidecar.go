package abstraction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/behrlich/poker-solver/pkg/cards"
)

// Sidecar holds the two per-abstraction summaries api.rs exposes alongside
// the raw Encoder/Metric: population (how many observations map to this
// abstraction) and centrality (its mean distance to every other abstraction
// on the street). Both are cheap to recompute but expensive enough at
// training scale that they're persisted once per street rather than
// recomputed on every query.
type Sidecar struct {
	Street     cards.Street             `json:"street"`
	Population map[Abstraction]int      `json:"population"`
	Centrality map[Abstraction]float64  `json:"centrality"`
}

// BuildSidecar computes population and centrality for every abstraction in
// enc's range, using metric for pairwise distances.
func BuildSidecar(enc *Encoder, metric *Metric) (*Sidecar, error) {
	if enc.Street() != metric.Street() {
		return nil, fmt.Errorf("abstraction: sidecar encoder/metric street mismatch: %w", ErrCrossStreet)
	}
	s := &Sidecar{
		Street:     enc.Street(),
		Population: make(map[Abstraction]int),
		Centrality: make(map[Abstraction]float64),
	}
	for _, iso := range enc.Isomorphisms() {
		a, err := enc.Encode(iso)
		if err != nil {
			return nil, err
		}
		s.Population[a]++
	}
	basis := metric.Basis()
	for _, a := range basis {
		if len(basis) <= 1 {
			s.Centrality[a] = 0
			continue
		}
		var sum float64
		for _, b := range basis {
			if a == b {
				continue
			}
			d, err := metric.Distance(a, b)
			if err != nil {
				return nil, err
			}
			sum += d
		}
		s.Centrality[a] = sum / float64(len(basis)-1)
	}
	return s, nil
}

// SidecarPath returns the conventional artifact path for street's sidecar:
// "sidecar.<street>.json".
func SidecarPath(dir string, street cards.Street) string {
	return filepath.Join(dir, fmt.Sprintf("sidecar.%s.json", street))
}

// Save writes s to path as JSON, following the same plain-JSON convention
// pkg/solver uses for strategy profiles.
func (s *Sidecar) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("abstraction: marshaling sidecar: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("abstraction: writing %s: %w", path, err)
	}
	return nil
}

// LoadSidecar reads a Sidecar previously written by Save.
func LoadSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("abstraction: reading %s: %w", path, err)
	}
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("abstraction: parsing %s: %w", path, err)
	}
	return &s, nil
}

// PopulationOf returns a's observation count, or 0 if unknown.
func (s *Sidecar) PopulationOf(a Abstraction) int {
	return s.Population[a]
}

// CentralityOf returns a's mean distance to every other abstraction on the
// street, or (0, false) if unknown.
func (s *Sidecar) CentralityOf(a Abstraction) (float64, bool) {
	v, ok := s.Centrality[a]
	return v, ok
}
