package abstraction

import (
	"math"
	"testing"

	"github.com/behrlich/poker-solver/pkg/cards"
)

func buildTestMetric(t *testing.T, street cards.Street, distances map[[2]int]float64) (*Metric, []Abstraction) {
	t.Helper()
	m := NewMetric(street)
	seen := make(map[int]Abstraction)
	get := func(i int) Abstraction {
		a, ok := seen[i]
		if !ok {
			a = NewLearnedAbstraction(street, i)
			seen[i] = a
		}
		return a
	}
	for pair, d := range distances {
		a, b := get(pair[0]), get(pair[1])
		if err := m.Set(a, b, d); err != nil {
			t.Fatalf("Set(%d,%d,%v): %v", pair[0], pair[1], d, err)
		}
	}
	basis := make([]Abstraction, 0, len(seen))
	for _, a := range seen {
		basis = append(basis, a)
	}
	return m, basis
}

func TestGreedy_IdenticalHistogramsZeroDistance(t *testing.T) {
	m, basis := buildTestMetric(t, cards.Flop, map[[2]int]float64{{0, 1}: 5})
	a, b := basis[0], basis[1]
	if a.Index() > b.Index() {
		a, b = b, a
	}

	h := NewHistogram()
	h.Add(a, 1)
	h.Add(b, 1)

	d, err := m.Greedy(h, h)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if d != 0 {
		t.Errorf("Greedy(h,h) = %v, want 0", d)
	}
}

func TestGreedy_DisjointSupportsFullCost(t *testing.T) {
	a := NewLearnedAbstraction(cards.Flop, 0)
	b := NewLearnedAbstraction(cards.Flop, 1)
	m := NewMetric(cards.Flop)
	if err := m.Set(a, b, 5); err != nil {
		t.Fatalf("Set: %v", err)
	}

	src := NewHistogram()
	src.Add(a, 2)
	dst := NewHistogram()
	dst.Add(b, 2)

	d, err := m.Greedy(src, dst)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	if d != 5 {
		t.Errorf("Greedy(src,dst) = %v, want 5", d)
	}
}

func TestHeuristic_IdenticalHistogramsZeroDistance(t *testing.T) {
	a := NewLearnedAbstraction(cards.Flop, 0)
	b := NewLearnedAbstraction(cards.Flop, 1)
	m := NewMetric(cards.Flop)
	if err := m.Set(a, b, 7); err != nil {
		t.Fatalf("Set: %v", err)
	}

	h := NewHistogram()
	h.Add(a, 3)
	h.Add(b, 1)

	d, err := m.Heuristic(h, h)
	if err != nil {
		t.Fatalf("Heuristic: %v", err)
	}
	if d != 0 {
		t.Errorf("Heuristic(h,h) = %v, want 0", d)
	}
}

func TestSinkhorn_IdenticalHistogramsNearZero(t *testing.T) {
	a := NewLearnedAbstraction(cards.Flop, 0)
	b := NewLearnedAbstraction(cards.Flop, 1)
	m := NewMetric(cards.Flop)
	if err := m.Set(a, b, 4); err != nil {
		t.Fatalf("Set: %v", err)
	}

	h := NewHistogram()
	h.Add(a, 1)
	h.Add(b, 1)

	cost, err := m.Sinkhorn(h, h, DefaultSinkhornConfig())
	if err != nil && err != ErrNotConverged {
		t.Fatalf("Sinkhorn: %v", err)
	}
	if cost > 1e-3 {
		t.Errorf("Sinkhorn(h,h) = %v, want near 0", cost)
	}
}

func TestSinkhorn_AgreesRoughlyWithGreedy(t *testing.T) {
	a := NewLearnedAbstraction(cards.Flop, 0)
	b := NewLearnedAbstraction(cards.Flop, 1)
	m := NewMetric(cards.Flop)
	if err := m.Set(a, b, 10); err != nil {
		t.Fatalf("Set: %v", err)
	}

	src := NewHistogram()
	src.Add(a, 1)
	dst := NewHistogram()
	dst.Add(b, 1)

	greedyCost, err := m.Greedy(src, dst)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}

	cfg := SinkhornConfig{Lambda: 0.01, Epsilon: 1e-8, MaxIters: 500}
	sinkhornCost, err := m.Sinkhorn(src, dst, cfg)
	if err != nil && err != ErrNotConverged {
		t.Fatalf("Sinkhorn: %v", err)
	}
	if math.Abs(sinkhornCost-greedyCost) > 0.5 {
		t.Errorf("Sinkhorn cost %v too far from Greedy cost %v on a two-point example", sinkhornCost, greedyCost)
	}
}

func TestMetric_NearbySortedAscending(t *testing.T) {
	a := NewLearnedAbstraction(cards.Flop, 0)
	b := NewLearnedAbstraction(cards.Flop, 1)
	c := NewLearnedAbstraction(cards.Flop, 2)
	m := NewMetric(cards.Flop)
	if err := m.Set(a, b, 3); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(a, c, 1); err != nil {
		t.Fatal(err)
	}

	nb := m.Nearby(a)
	if len(nb) != 2 {
		t.Fatalf("Nearby(a) returned %d entries, want 2", len(nb))
	}
	if nb[0].Abstraction != c || nb[1].Abstraction != b {
		t.Errorf("Nearby(a) not sorted ascending: %+v", nb)
	}
}

func TestMetric_Distance_SameAbstractionIsZero(t *testing.T) {
	m := NewMetric(cards.Flop)
	a := NewLearnedAbstraction(cards.Flop, 0)
	d, err := m.Distance(a, a)
	if err != nil {
		t.Fatalf("Distance(a,a): %v", err)
	}
	if d != 0 {
		t.Errorf("Distance(a,a) = %v, want 0", d)
	}
}
