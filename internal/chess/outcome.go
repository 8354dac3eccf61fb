package chess

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCheckmate Status = "checkmate"
	StatusStalemate Status = "stalemate"
	StatusDraw      Status = "draw"
	StatusResigned  Status = "resigned"
	StatusAborted   Status = "aborted"
)

func StatusFor(outcome nchess.Outcome, method nchess.Method) Status {
	if outcome == nchess.NoOutcome {
		return StatusOngoing
	}
	switch method {
	case nchess.Checkmate:
		return StatusCheckmate
	case nchess.Stalemate:
		return StatusStalemate
	case nchess.Resignation:
		return StatusResigned
	default:
		return StatusDraw
	}
}

// OutcomeText is the human readable end of the game, e.g.
// "White wins by checkmate" or "Draw by threefold repetition".
func OutcomeText(outcome nchess.Outcome, method nchess.Method) string {
	how := methodText(method)
	switch outcome {
	case nchess.WhiteWon:
		return "White wins by " + how
	case nchess.BlackWon:
		return "Black wins by " + how
	case nchess.Draw:
		return "Draw by " + how
	default:
		return "Game in progress"
	}
}

func methodText(method nchess.Method) string {
	switch method {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Resignation:
		return "resignation"
	case nchess.DrawOffer:
		return "agreement"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.ThreefoldRepetition:
		return "threefold repetition"
	case nchess.FivefoldRepetition:
		return "fivefold repetition"
	case nchess.FiftyMoveRule:
		return "the fifty-move rule"
	case nchess.SeventyFiveMoveRule:
		return "the seventy-five-move rule"
	case nchess.InsufficientMaterial:
		return "insufficient material"
	default:
		return strings.ToLower(fmt.Sprint(method))
	}
}

// ResultFor reports a finished game from the human's point of view.
func ResultFor(outcome nchess.Outcome, human nchess.Color) string {
	switch {
	case outcome == nchess.Draw:
		return "draw"
	case outcome == nchess.WhiteWon && human == nchess.White,
		outcome == nchess.BlackWon && human == nchess.Black:
		return "win"
	case outcome == nchess.WhiteWon, outcome == nchess.BlackWon:
		return "loss"
	default:
		return "unknown"
	}
}
