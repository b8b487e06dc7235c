package abstraction

import (
	"fmt"

	"github.com/behrlich/poker-solver/pkg/cards"
	"github.com/behrlich/poker-solver/pkg/notation"
)

// Bucketer adapts a trained Encoder to pkg/tree.Builder's card-abstraction
// hook: it fixes a board and street once, then maps concrete hole cards to
// a bucket ID on demand. It replaces the old ad-hoc equity/potential grid
// with the learned hierarchical abstraction.
type Bucketer struct {
	board   []cards.Card
	encoder *Encoder
}

// NewBucketer returns a Bucketer for board, backed by encoder. encoder's
// street must match board's length (e.g. a 3-card board needs a Flop
// encoder).
func NewBucketer(board []cards.Card, encoder *Encoder) (*Bucketer, error) {
	street, err := StreetForBoardLen(len(board))
	if err != nil {
		return nil, err
	}
	if encoder.Street() != street {
		return nil, fmt.Errorf("abstraction: board has %d cards (street %s) but encoder is for street %s",
			len(board), street, encoder.Street())
	}
	return &Bucketer{board: board, encoder: encoder}, nil
}

// BucketHand returns the bucket ID for hero's two hole cards on the
// bucketer's fixed board.
func (b *Bucketer) BucketHand(hero []cards.Card) (int, error) {
	if len(hero) != 2 {
		return 0, fmt.Errorf("abstraction: BucketHand requires exactly 2 hole cards, got %d", len(hero))
	}
	obs, err := cards.NewObservation([2]cards.Card{hero[0], hero[1]}, b.board)
	if err != nil {
		return 0, err
	}
	a, err := b.encoder.Encode(obs.Canonical())
	if err != nil {
		return 0, err
	}
	return int(a.Index()), nil
}

// BucketCombo is a convenience wrapper for notation.Combo.
func (b *Bucketer) BucketCombo(combo notation.Combo) (int, error) {
	return b.BucketHand([]cards.Card{combo.Card1, combo.Card2})
}

// StreetForBoardLen maps a community-card count to its street.
func StreetForBoardLen(n int) (cards.Street, error) {
	switch n {
	case 0:
		return cards.Preflop, nil
	case 3:
		return cards.Flop, nil
	case 4:
		return cards.Turn, nil
	case 5:
		return cards.River, nil
	default:
		return 0, fmt.Errorf("abstraction: board of length %d does not match any street", n)
	}
}
