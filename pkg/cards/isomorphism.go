package cards

import (
	"fmt"
	"sort"
)

// missingCard is the sentinel slot value used for board positions not yet
// dealt on a given street (e.g. the 4th and 5th board slots before Turn).
const missingCard = 63

// suitPermutations enumerates all 24 bijections of the 4 suits. Suit
// relabeling is the symmetry group canonicalization quotients by: two
// observations that differ only by a consistent relabeling of suits are
// strategically identical.
var suitPermutations = func() [][4]Suit {
	base := [4]Suit{Spades, Hearts, Diamonds, Clubs}
	var perms [][4]Suit
	var permute func(cur []Suit, remaining []Suit)
	permute = func(cur []Suit, remaining []Suit) {
		if len(remaining) == 0 {
			var p [4]Suit
			copy(p[:], cur)
			perms = append(perms, p)
			return
		}
		for i, s := range remaining {
			next := make([]Suit, 0, len(remaining)-1)
			next = append(next, remaining[:i]...)
			next = append(next, remaining[i+1:]...)
			permute(append(cur, s), next)
		}
	}
	permute(nil, base[:])
	return perms
}()

// cardID packs a card into its 0..51 dense index, rank-major.
func cardID(c Card) int64 {
	return int64(c.Rank)*4 + int64(c.Suit)
}

// Observation is a concrete hand: two hole cards plus zero or more
// community cards, dealt according to Street.
type Observation struct {
	Street Street
	Hole   [2]Card
	Board  []Card
}

// NewObservation builds an Observation from hole and board cards, inferring
// the street from the board length.
func NewObservation(hole [2]Card, board []Card) (Observation, error) {
	var street Street
	switch len(board) {
	case 0:
		street = Preflop
	case 3:
		street = Flop
	case 4:
		street = Turn
	case 5:
		street = River
	default:
		return Observation{}, fmt.Errorf("cards: board of length %d does not match any street", len(board))
	}
	return Observation{Street: street, Hole: hole, Board: board}, nil
}

// applySuitPermutation returns a copy of o with every card's suit remapped
// through perm (indexed by the card's current suit).
func (o Observation) applySuitPermutation(perm [4]Suit) Observation {
	remap := func(c Card) Card { return Card{Rank: c.Rank, Suit: perm[c.Suit]} }
	out := Observation{Street: o.Street}
	out.Hole = [2]Card{remap(o.Hole[0]), remap(o.Hole[1])}
	if len(o.Board) > 0 {
		out.Board = make([]Card, len(o.Board))
		for i, c := range o.Board {
			out.Board[i] = remap(c)
		}
	}
	return out
}

// encode packs a (not-necessarily-canonical) observation into a dense int64
// identity: 2 street bits, then hole cards sorted ascending, then board
// cards sorted ascending, 6 bits per card slot, missing slots padded with
// missingCard so that board length never affects unrelated bit positions.
func (o Observation) encode() int64 {
	hole := [2]Card{o.Hole[0], o.Hole[1]}
	sort.Slice(hole[:], func(i, j int) bool { return cardID(hole[i]) < cardID(hole[j]) })

	board := make([]Card, len(o.Board))
	copy(board, o.Board)
	sort.Slice(board, func(i, j int) bool { return cardID(board[i]) < cardID(board[j]) })

	slots := [5]int64{missingCard, missingCard, missingCard, missingCard, missingCard}
	for i, c := range board {
		slots[i] = cardID(c)
	}

	id := int64(o.Street) << 42
	id |= cardID(hole[0]) << 36
	id |= cardID(hole[1]) << 30
	id |= slots[0] << 24
	id |= slots[1] << 18
	id |= slots[2] << 12
	id |= slots[3] << 6
	id |= slots[4]
	return id
}

// Isomorphism is the canonical identity of an Observation under suit
// relabeling: the lexicographically smallest encoding reachable by applying
// any of the 24 suit permutations.
type Isomorphism int64

// Canonical computes o's Isomorphism by exhausting all 24 suit
// permutations and keeping the smallest resulting encoding.
func (o Observation) Canonical() Isomorphism {
	best := int64(1) << 62
	for _, perm := range suitPermutations {
		if enc := o.applySuitPermutation(perm).encode(); enc < best {
			best = enc
		}
	}
	return Isomorphism(best)
}

// Street returns the street this isomorphism belongs to, recovered from the
// identity's high bits.
func (iso Isomorphism) Street() Street {
	return Street((int64(iso) >> 42) & 0x3)
}

// RepresentativeObservation reconstructs one concrete Observation whose
// Canonical() equals iso. Since all strategically-relevant properties
// (equity, evaluation, isomorphism class) are invariant under suit
// relabeling, any one of the 24 equivalent deals is as good as any other
// for computing them.
func (iso Isomorphism) RepresentativeObservation() Observation {
	hole, board := iso.decode()
	return Observation{Street: iso.Street(), Hole: hole, Board: board}
}

// decode unpacks an isomorphism back into concrete hole and board cards.
func (iso Isomorphism) decode() (hole [2]Card, board []Card) {
	v := int64(iso)
	cardFromSlot := func(shift uint) (Card, bool) {
		id := (v >> shift) & 0x3F
		if id == missingCard {
			return Card{}, false
		}
		return Card{Rank: Rank(id / 4), Suit: Suit(id % 4)}, true
	}
	h0, _ := cardFromSlot(36)
	h1, _ := cardFromSlot(30)
	hole = [2]Card{h0, h1}
	for _, shift := range []uint{24, 18, 12, 6, 0} {
		if c, ok := cardFromSlot(shift); ok {
			board = append(board, c)
		}
	}
	return hole, board
}

// usedMask returns a 52-bit mask of cards already committed to iso.
func (iso Isomorphism) usedMask() uint64 {
	hole, board := iso.decode()
	var mask uint64
	mask |= 1 << uint(cardID(hole[0]))
	mask |= 1 << uint(cardID(hole[1]))
	for _, c := range board {
		mask |= 1 << uint(cardID(c))
	}
	return mask
}

// Children enumerates every canonical next-street Isomorphism reachable by
// dealing the cards the next street adds to iso's board: one card for every
// street except Preflop->Flop, which deals three at once. Panics on River,
// which has no children. The returned slice may contain duplicate
// Isomorphism values when multiple concrete draws canonicalize to the same
// class; callers that need a Histogram should accumulate weight per distinct
// value, which is exactly what Histogram.Add does.
func (iso Isomorphism) Children() []Isomorphism {
	street := iso.Street()
	if street == River {
		panic("cards: River isomorphism has no children")
	}
	dealt := street.Next().BoardSize() - street.BoardSize()

	hole, board := iso.decode()
	used := iso.usedMask()

	unseen := make([]Card, 0, 52-len(board)-2)
	for rank := Two; rank <= Ace; rank++ {
		for suit := Spades; suit <= Clubs; suit++ {
			c := Card{Rank: rank, Suit: suit}
			if used&(uint64(1)<<uint(cardID(c))) == 0 {
				unseen = append(unseen, c)
			}
		}
	}

	children := make([]Isomorphism, 0, street.NChildren())
	for _, combo := range combinations(len(unseen), dealt) {
		nextBoard := make([]Card, len(board)+dealt)
		copy(nextBoard, board)
		for i, idx := range combo {
			nextBoard[len(board)+i] = unseen[idx]
		}
		obs, err := NewObservation(hole, nextBoard)
		if err != nil {
			continue
		}
		children = append(children, obs.Canonical())
	}
	return children
}
