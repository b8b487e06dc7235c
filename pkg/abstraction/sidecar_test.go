package abstraction

import (
	"path/filepath"
	"testing"

	"github.com/behrlich/poker-solver/pkg/cards"
)

func TestBuildSidecar_PopulationAndCentrality(t *testing.T) {
	street := cards.Flop
	a := NewLearnedAbstraction(street, 0)
	b := NewLearnedAbstraction(street, 1)

	enc := NewEncoder(street)
	hole, _ := cards.ParseCards("AsKs")
	board, _ := cards.ParseCards("2h7d9c")
	obs1, _ := cards.NewObservation([2]cards.Card{hole[0], hole[1]}, board)
	hole2, _ := cards.ParseCards("2c3c")
	board2, _ := cards.ParseCards("Th9h2d")
	obs2, _ := cards.NewObservation([2]cards.Card{hole2[0], hole2[1]}, board2)
	hole3, _ := cards.ParseCards("7s8s")
	board3, _ := cards.ParseCards("As4d9c")
	obs3, _ := cards.NewObservation([2]cards.Card{hole3[0], hole3[1]}, board3)

	if err := enc.Assign(obs1.Canonical(), a); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := enc.Assign(obs2.Canonical(), a); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := enc.Assign(obs3.Canonical(), b); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	metric := NewMetric(street)
	if err := metric.Set(a, b, 10); err != nil {
		t.Fatalf("Set: %v", err)
	}

	sc, err := BuildSidecar(enc, metric)
	if err != nil {
		t.Fatalf("BuildSidecar: %v", err)
	}
	if sc.PopulationOf(a) != 2 {
		t.Errorf("PopulationOf(a) = %d, want 2", sc.PopulationOf(a))
	}
	if sc.PopulationOf(b) != 1 {
		t.Errorf("PopulationOf(b) = %d, want 1", sc.PopulationOf(b))
	}
	centralityA, ok := sc.CentralityOf(a)
	if !ok || centralityA != 10 {
		t.Errorf("CentralityOf(a) = %v, %v, want 10, true", centralityA, ok)
	}
}

func TestSidecar_SaveLoadRoundTrip(t *testing.T) {
	street := cards.Flop
	a := NewLearnedAbstraction(street, 0)
	b := NewLearnedAbstraction(street, 1)
	enc := NewEncoder(street)
	hole, _ := cards.ParseCards("AsKs")
	board, _ := cards.ParseCards("2h7d9c")
	obs, _ := cards.NewObservation([2]cards.Card{hole[0], hole[1]}, board)
	if err := enc.Assign(obs.Canonical(), a); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	metric := NewMetric(street)
	if err := metric.Set(a, b, 3); err != nil {
		t.Fatalf("Set: %v", err)
	}

	sc, err := BuildSidecar(enc, metric)
	if err != nil {
		t.Fatalf("BuildSidecar: %v", err)
	}
	path := filepath.Join(t.TempDir(), "sidecar.flop.json")
	if err := sc.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadSidecar(path)
	if err != nil {
		t.Fatalf("LoadSidecar: %v", err)
	}
	if loaded.PopulationOf(a) != sc.PopulationOf(a) {
		t.Errorf("loaded population mismatch: %d vs %d", loaded.PopulationOf(a), sc.PopulationOf(a))
	}
}
