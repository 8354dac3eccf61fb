package chess

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

var ecoBook = opening.NewBookECO()

// Replay rebuilds a game from UCI moves played from the starting position.
// Automatic draws are claimed the same way Apply claims them.
func Replay(moves []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for i, mv := range moves {
		if game.Outcome() != nchess.NoOutcome {
			return nil, fmt.Errorf("move %d %s played after the game ended", i+1, mv)
		}
		move, err := notation.Decode(game.Position(), strings.ToLower(strings.TrimSpace(mv)))
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", mv, err)
		}
		if err := game.Move(move, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", mv, err)
		}
		if game.Outcome() == nchess.NoOutcome {
			claimDraw(game)
		}
	}
	return game, nil
}

// SANMoves lists the game's moves in SAN as the library encodes them.
func SANMoves(game *nchess.Game) []string {
	positions := game.Positions()
	moves := game.Moves()
	out := make([]string, len(moves))
	notation := nchess.AlgebraicNotation{}
	for i, mv := range moves {
		if i < len(positions) {
			out[i] = notation.Encode(positions[i], mv)
		}
	}
	return out
}

func UCIMoves(game *nchess.Game) []string {
	positions := game.Positions()
	moves := game.Moves()
	out := make([]string, len(moves))
	notation := nchess.UCINotation{}
	for i, mv := range moves {
		if i < len(positions) {
			out[i] = strings.ToLower(notation.Encode(positions[i], mv))
		}
	}
	return out
}

// Opening returns the ECO code and name of the deepest book line the game
// follows, or empty strings once it has left the book.
func Opening(game *nchess.Game) (string, string) {
	if game == nil || ecoBook == nil {
		return "", ""
	}
	if eco := ecoBook.Find(game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}
