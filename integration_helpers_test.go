package poker_test

import (
	"testing"

	"github.com/behrlich/poker-solver/pkg/abstraction"
	"github.com/behrlich/poker-solver/pkg/cards"
	"github.com/behrlich/poker-solver/pkg/notation"
)

// buildTestBucketer trains a throwaway Flop/Turn/River Encoder covering
// every combo in ranges on board, then wraps it in a Bucketer. It stands in
// for a real cmd/abstractor training run: instead of k-means clustering, it
// assigns each combo's isomorphism to bucket index%numBuckets, which is
// enough to exercise pkg/tree.Builder's bucketing path end-to-end without
// running the full hierarchical pipeline in a test.
func buildTestBucketer(t *testing.T, board []cards.Card, ranges [][]notation.Combo, numBuckets int) *abstraction.Bucketer {
	t.Helper()

	street, err := abstraction.StreetForBoardLen(len(board))
	if err != nil {
		t.Fatalf("StreetForBoardLen: %v", err)
	}
	enc := abstraction.NewEncoder(street)

	index := 0
	for _, combos := range ranges {
		for _, combo := range combos {
			obs, err := cards.NewObservation([2]cards.Card{combo.Card1, combo.Card2}, board)
			if err != nil {
				// Combo shares a card with the board or is otherwise
				// unreachable; skip it the same way a real training
				// enumeration would never have produced it.
				continue
			}
			abs := abstraction.NewLearnedAbstraction(street, index%numBuckets)
			if err := enc.Assign(obs.Canonical(), abs); err != nil {
				t.Fatalf("Assign: %v", err)
			}
			index++
		}
	}

	bucketer, err := abstraction.NewBucketer(board, enc)
	if err != nil {
		t.Fatalf("NewBucketer: %v", err)
	}
	return bucketer
}
