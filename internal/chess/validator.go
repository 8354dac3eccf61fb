package chess

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrGameFinished = errors.New("game already finished")
)

// Result describes a move accepted by the rules library and the position it
// leaves behind.
type Result struct {
	SAN         string
	UCI         string
	FEN         string
	From        nchess.Square
	To          nchess.Square
	Check       bool
	Checkmate   bool
	Terminal    bool
	Status      Status
	Outcome     nchess.Outcome
	Method      nchess.Method
	OutcomeText string
	Warning     string
}

// Apply parses a SAN or coordinate candidate, matches it against the legal
// moves of the current position and plays it. An input that matches no
// legal move, or more than one, is rejected with ErrIllegalMove and the game
// is left untouched.
func Apply(game *nchess.Game, raw string) (Result, error) {
	if err := ensurePlayable(game); err != nil {
		return Result{}, err
	}
	cand, err := ParseCandidate(raw)
	if err != nil {
		return Result{}, err
	}

	pos := game.Position()
	var found []nchess.Move
	for _, mv := range pos.ValidMoves() {
		if cand.matches(pos, mv) {
			found = append(found, mv)
		}
	}
	switch len(found) {
	case 0:
		return Result{}, fmt.Errorf("%w: %s", ErrIllegalMove, strings.TrimSpace(raw))
	case 1:
	default:
		names := make([]string, 0, len(found))
		for i := range found {
			names = append(names, nchess.AlgebraicNotation{}.Encode(pos, &found[i]))
		}
		return Result{}, fmt.Errorf("%w: %s is ambiguous (%s)", ErrIllegalMove, strings.TrimSpace(raw), strings.Join(names, ", "))
	}
	return play(game, found[0], cand.Claim)
}

// ApplyUCI plays a move given in UCI coordinates, typically an engine reply.
func ApplyUCI(game *nchess.Game, move string) (Result, error) {
	if err := ensurePlayable(game); err != nil {
		return Result{}, err
	}
	text := strings.ToLower(strings.TrimSpace(move))
	mv, err := nchess.UCINotation{}.Decode(game.Position(), text)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrIllegalMove, text, err)
	}
	return play(game, *mv, ClaimNone)
}

func ensurePlayable(game *nchess.Game) error {
	if game == nil {
		return fmt.Errorf("%w: no game", ErrIllegalMove)
	}
	if game.Outcome() != nchess.NoOutcome {
		return ErrGameFinished
	}
	return nil
}

func play(game *nchess.Game, mv nchess.Move, claim Claim) (Result, error) {
	before := game.Position()
	san := nchess.AlgebraicNotation{}.Encode(before, &mv)
	uciText := strings.ToLower(nchess.UCINotation{}.Encode(before, &mv))

	if err := game.Move(&mv, nil); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrIllegalMove, san, err)
	}
	if game.Outcome() == nchess.NoOutcome {
		claimDraw(game)
	}

	res := Result{
		SAN:       san,
		UCI:       uciText,
		FEN:       game.FEN(),
		From:      mv.S1(),
		To:        mv.S2(),
		Check:     mv.HasTag(nchess.Check),
		Checkmate: game.Method() == nchess.Checkmate,
		Outcome:   game.Outcome(),
		Method:    game.Method(),
	}
	res.Status = StatusFor(res.Outcome, res.Method)
	res.Terminal = res.Outcome != nchess.NoOutcome
	if res.Terminal {
		res.OutcomeText = OutcomeText(res.Outcome, res.Method)
	}
	res.Warning = claimWarning(claim, res)
	return res, nil
}

// claimDraw takes a threefold repetition or fifty-move draw as soon as one
// becomes available; nobody at the board is there to claim it.
func claimDraw(game *nchess.Game) {
	for _, method := range game.EligibleDraws() {
		if method == nchess.ThreefoldRepetition || method == nchess.FiftyMoveRule {
			if err := game.Draw(method); err == nil {
				return
			}
		}
	}
}

// claimWarning is empty unless the player announced check or mate and
// the board disagrees.
func claimWarning(claim Claim, res Result) string {
	bare := strings.TrimRight(res.SAN, "+#")
	switch claim {
	case ClaimCheckmate:
		if res.Checkmate {
			return ""
		}
		if res.Check {
			return fmt.Sprintf("%s is check, not checkmate", res.SAN)
		}
		return fmt.Sprintf("%s is not checkmate", bare)
	case ClaimCheck:
		if res.Checkmate {
			return fmt.Sprintf("%s is checkmate", res.SAN)
		}
		if !res.Check {
			return fmt.Sprintf("%s is not check", bare)
		}
	}
	return ""
}
