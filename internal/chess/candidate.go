package chess

import (
	"fmt"
	"regexp"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

type Claim int

const (
	ClaimNone Claim = iota
	ClaimCheck
	ClaimCheckmate
)

func (c Claim) String() string {
	switch c {
	case ClaimCheck:
		return "check"
	case ClaimCheckmate:
		return "checkmate"
	default:
		return "none"
	}
}

type Castle int

const (
	NoCastle Castle = iota
	KingSide
	QueenSide
)

// Candidate is a parsed, not yet validated, move. Piece is only meaningful
// when PieceGiven is set; a bare coordinate move ("g1f3") leaves it open.
type Candidate struct {
	Raw         string
	Claim       Claim
	Piece       nchess.PieceType
	PieceGiven  bool
	FromFile    nchess.File
	HasFromFile bool
	FromRank    nchess.Rank
	HasFromRank bool
	To          nchess.Square
	Promo       nchess.PieceType
	Castle      Castle
}

var (
	castlePattern  = regexp.MustCompile(`^(O-O-O|O-O|0-0-0|0-0)(\+|#|\+\+)?$`)
	regularPattern = regexp.MustCompile(`^([KQRBN])?([a-h])?([1-8])?[x:-]?([a-h])([1-8])(?:=?([QRBNqrbn]))?(\+|#|\+\+)?$`)
)

var pieceTypes = map[string]nchess.PieceType{
	"K": nchess.King, "Q": nchess.Queen, "R": nchess.Rook, "B": nchess.Bishop, "N": nchess.Knight,
}

// ParseCandidate reads SAN ("Nf3", "exd5", "e8=Q+", "O-O"), SAN with a full
// origin ("Rh1h6") and coordinate notation ("e2e4", "e7e8q").
func ParseCandidate(raw string) (Candidate, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimRight(text, "!?")
	text = strings.TrimSpace(strings.TrimSuffix(text, "e.p."))
	c := Candidate{Raw: raw, Promo: nchess.NoPieceType}

	if m := castlePattern.FindStringSubmatch(strings.ToUpper(text)); m != nil {
		c.Castle = KingSide
		if len(m[1]) == 5 {
			c.Castle = QueenSide
		}
		c.Claim = claimFromSuffix(m[2])
		c.Piece, c.PieceGiven = nchess.King, true
		return c, nil
	}

	m := regularPattern.FindStringSubmatch(text)
	if m == nil {
		return Candidate{}, fmt.Errorf("%w: %q is not a move", ErrIllegalMove, raw)
	}
	if m[1] != "" {
		c.Piece, c.PieceGiven = pieceTypes[m[1]], true
	}
	if m[2] != "" {
		c.FromFile, c.HasFromFile = nchess.File(m[2][0]-'a'), true
	}
	if m[3] != "" {
		c.FromRank, c.HasFromRank = nchess.Rank(m[3][0]-'1'), true
	}
	c.To = nchess.NewSquare(nchess.File(m[4][0]-'a'), nchess.Rank(m[5][0]-'1'))
	if m[6] != "" {
		c.Promo = pieceTypes[strings.ToUpper(m[6])]
	}
	c.Claim = claimFromSuffix(m[7])

	if !c.PieceGiven && !(c.HasFromFile && c.HasFromRank) {
		c.Piece, c.PieceGiven = nchess.Pawn, true
	}
	return c, nil
}

func claimFromSuffix(s string) Claim {
	switch s {
	case "+":
		return ClaimCheck
	case "#", "++":
		return ClaimCheckmate
	default:
		return ClaimNone
	}
}

// matches reports whether a legal move fits the candidate. Capture marks are
// not compared: the board decides whether a move captures.
func (c Candidate) matches(pos *nchess.Position, mv nchess.Move) bool {
	switch c.Castle {
	case KingSide:
		return mv.HasTag(nchess.KingSideCastle)
	case QueenSide:
		return mv.HasTag(nchess.QueenSideCastle)
	}
	if mv.S2() != c.To {
		return false
	}
	if c.PieceGiven && pos.Board().Piece(mv.S1()).Type() != c.Piece {
		return false
	}
	if c.HasFromFile && mv.S1().File() != c.FromFile {
		return false
	}
	if c.HasFromRank && mv.S1().Rank() != c.FromRank {
		return false
	}
	return mv.Promo() == c.Promo
}
