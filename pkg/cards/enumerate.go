package cards

import (
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// deck52 returns all 52 concrete cards in a fixed, deterministic order.
func deck52() []Card {
	deck := make([]Card, 0, 52)
	for rank := Two; rank <= Ace; rank++ {
		for suit := Spades; suit <= Clubs; suit++ {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// combinations returns every k-combination of deck, as index sets into
// deck, via a simple recursive generator.
func combinations(n, k int) [][]int {
	var out [][]int
	var cur []int
	var rec func(start int)
	rec = func(start int) {
		if len(cur) == k {
			combo := make([]int, k)
			copy(combo, cur)
			out = append(out, combo)
			return
		}
		for i := start; i < n; i++ {
			cur = append(cur, i)
			rec(i + 1)
			cur = cur[:len(cur)-1]
		}
	}
	rec(0)
	return out
}

// EnumerateIsomorphisms returns every distinct canonical Isomorphism on
// street, built by exhaustively dealing every concrete hole+board
// combination and canonicalizing it. This is the same brute-force sweep
// original_source/src/clustering/lookup.rs performs in parallel with
// rayon; here the hole-card shard is the unit of work handed to a bounded
// worker pool, matching spec.md §5's bulk-synchronous, read-only
// parallel-enumeration phase.
func EnumerateIsomorphisms(street Street) []Isomorphism {
	deck := deck52()
	holeCombos := combinations(len(deck), 2)
	boardSize := street.BoardSize()

	seen := make(map[Isomorphism]struct{})
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, hc := range holeCombos {
		hc := hc
		g.Go(func() error {
			hole := [2]Card{deck[hc[0]], deck[hc[1]]}
			used := map[Card]bool{hole[0]: true, hole[1]: true}

			var rest []Card
			for _, c := range deck {
				if !used[c] {
					rest = append(rest, c)
				}
			}

			local := make(map[Isomorphism]struct{})
			if boardSize == 0 {
				obs, err := NewObservation(hole, nil)
				if err == nil {
					local[obs.Canonical()] = struct{}{}
				}
			} else {
				for _, bc := range combinations(len(rest), boardSize) {
					board := make([]Card, boardSize)
					for i, idx := range bc {
						board[i] = rest[idx]
					}
					obs, err := NewObservation(hole, board)
					if err != nil {
						continue
					}
					local[obs.Canonical()] = struct{}{}
				}
			}

			mu.Lock()
			for iso := range local {
				seen[iso] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Isomorphism, 0, len(seen))
	for iso := range seen {
		out = append(out, iso)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
