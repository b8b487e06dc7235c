package abstraction

import (
	"testing"

	"github.com/behrlich/poker-solver/pkg/cards"
)

// smallPreflopPoints returns a handful of real, distinct Preflop
// isomorphisms small enough to enumerate their full C(50,3) flop fan-out in
// a test.
func smallPreflopPoints(t *testing.T) []cards.Isomorphism {
	t.Helper()
	specs := []string{"AsAh", "KdKc", "2s7d"}
	points := make([]cards.Isomorphism, 0, len(specs))
	for _, s := range specs {
		hole, err := cards.ParseCards(s)
		if err != nil {
			t.Fatalf("ParseCards(%s): %v", s, err)
		}
		obs, err := cards.NewObservation([2]cards.Card{hole[0], hole[1]}, nil)
		if err != nil {
			t.Fatalf("NewObservation: %v", err)
		}
		points = append(points, obs.Canonical())
	}
	return points
}

// buildFlopFixtureForPreflop assigns every Flop isomorphism reachable from
// points (each a Preflop isomorphism's C(50,3) children) to one of
// nClusters round-robin buckets and builds a trivial |i-j| metric over
// them, standing in for a real Layer-trained Flop encoder/metric.
func buildFlopFixtureForPreflop(t *testing.T, points []cards.Isomorphism, nClusters int) (*Encoder, *Metric) {
	t.Helper()
	enc := NewEncoder(cards.Flop)
	i := 0
	for _, p := range points {
		for _, child := range p.Children() {
			if _, err := enc.Encode(child); err == nil {
				continue
			}
			if err := enc.Assign(child, NewLearnedAbstraction(cards.Flop, i%nClusters)); err != nil {
				t.Fatalf("Assign: %v", err)
			}
			i++
		}
	}

	metric := NewMetric(cards.Flop)
	for a := 0; a < nClusters; a++ {
		for b := a + 1; b < nClusters; b++ {
			x := NewLearnedAbstraction(cards.Flop, a)
			y := NewLearnedAbstraction(cards.Flop, b)
			if err := metric.Set(x, y, float64(b-a)); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}
	}
	return enc, metric
}

func TestBuildPreflopMetric_Smoke(t *testing.T) {
	points := smallPreflopPoints(t)
	flopEnc, flopMetric := buildFlopFixtureForPreflop(t, points, 4)

	enc := NewEncoder(cards.Preflop)
	for i, iso := range points {
		if err := enc.Assign(iso, NewLearnedAbstraction(cards.Preflop, i)); err != nil {
			t.Fatalf("Assign: %v", err)
		}
	}

	metric, err := BuildPreflopMetric(enc, flopEnc, flopMetric)
	if err != nil {
		t.Fatalf("BuildPreflopMetric: %v", err)
	}

	if got, want := len(metric.Basis()), len(points); got != want {
		t.Errorf("Basis() len = %d, want %d", got, want)
	}

	a0, err := enc.Encode(points[0])
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	a1, err := enc.Encode(points[1])
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	d, err := metric.Distance(a0, a1)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if d < 0 {
		t.Errorf("distance should be non-negative, got %v", d)
	}

	d2, err := metric.Distance(a1, a0)
	if err != nil {
		t.Fatalf("Distance (reversed): %v", err)
	}
	if d != d2 {
		t.Errorf("metric is not symmetric: Distance(a0,a1)=%v, Distance(a1,a0)=%v", d, d2)
	}
}

func TestBuildPreflopEncoder_CoversAllClasses(t *testing.T) {
	enc, err := BuildPreflopEncoder()
	if err != nil {
		t.Fatalf("BuildPreflopEncoder: %v", err)
	}
	if got, want := enc.Len(), 169; got != want {
		t.Errorf("BuildPreflopEncoder classes = %d, want %d", got, want)
	}

	seen := make(map[Abstraction]bool)
	for _, iso := range enc.Isomorphisms() {
		a, err := enc.Encode(iso)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if a.Street() != cards.Preflop {
			t.Errorf("abstraction %v has street %s, want preflop", a, a.Street())
		}
		if seen[a] {
			t.Errorf("duplicate abstraction %v", a)
		}
		seen[a] = true
	}
}
