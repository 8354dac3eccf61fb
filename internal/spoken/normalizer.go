package spoken

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnrecognizedPhrase means the phrase does not follow the move grammar.
// It is distinct from a well-formed move that the rules reject.
var ErrUnrecognizedPhrase = errors.New("unrecognized phrase")

var pieceLetters = map[string]string{
	"pawn":   "",
	"knight": "N",
	"night":  "N",
	"bishop": "B",
	"rook":   "R",
	"queen":  "Q",
	"king":   "K",
}

var promotionLetters = map[string]string{
	"queen":  "Q",
	"rook":   "R",
	"bishop": "B",
	"knight": "N",
	"night":  "N",
}

var fileWords = map[string]byte{
	"a": 'a', "b": 'b', "c": 'c', "d": 'd', "e": 'e', "f": 'f', "g": 'g', "h": 'h',
	"bee": 'b', "be": 'b', "see": 'c', "sea": 'c', "dee": 'd', "gee": 'g', "aitch": 'h',
}

// "to" and "too" sound like "two"; they count as a rank only right after a file.
var rankWords = map[string]byte{
	"one": '1', "won": '1', "1": '1',
	"two": '2', "to": '2', "too": '2', "2": '2',
	"three": '3', "3": '3',
	"four": '4', "for": '4', "fore": '4', "4": '4',
	"five": '5', "5": '5',
	"six": '6', "6": '6',
	"seven": '7', "7": '7',
	"eight": '8', "ate": '8', "8": '8',
}

var promoteWords = map[string]bool{"promote": true, "promotes": true, "promoting": true, "promotion": true}

var promoteFillers = map[string]bool{"to": true, "two": true, "too": true, "into": true, "as": true, "a": true}

var castleWords = map[string]bool{"castle": true, "castles": true, "castling": true}

// connectors may appear anywhere after the piece without changing the move.
var connectors = map[string]bool{
	"to": true, "two": true, "too": true, "on": true, "at": true, "from": true, "the": true,
	"takes": true, "take": true, "captures": true, "capture": true, "x": true,
	"moves": true, "move": true, "goes": true, "en": true, "passant": true,
	"side": true, "and": true,
}

// Normalizer turns transcribed speech into candidate SAN.
type Normalizer struct{}

func NewNormalizer() *Normalizer { return &Normalizer{} }

// ToSAN converts a phrase such as "knight g one to f three check" into
// "Ng1f3+". The returned string is only a candidate; legality is decided by
// the move validator.
func (n *Normalizer) ToSAN(phrase string) (string, error) {
	words := tokenize(phrase)
	if len(words) == 0 {
		return "", fmt.Errorf("%w: empty phrase", ErrUnrecognizedPhrase)
	}

	castleAt, pieceAt := -1, -1
	for i, w := range words {
		if castleAt < 0 && castleWords[w] {
			castleAt = i
		}
		if _, ok := pieceLetters[w]; ok && pieceAt < 0 {
			pieceAt = i
		}
	}

	switch {
	case castleAt >= 0 && (pieceAt < 0 || castleAt < pieceAt):
		return parseCastle(phrase, words[castleAt+1:])
	case pieceAt >= 0:
		return parseRegular(phrase, words[pieceAt:])
	default:
		return "", fmt.Errorf("%w: %q names no piece", ErrUnrecognizedPhrase, phrase)
	}
}

func parseCastle(phrase string, rest []string) (string, error) {
	side := ""
	i := 0
	for ; i < len(rest) && side == ""; i++ {
		switch rest[i] {
		case "king", "kings", "kingside", "short":
			side = "O-O"
		case "queen", "queens", "queenside", "long":
			side = "O-O-O"
		}
	}
	if side == "" {
		return "", fmt.Errorf("%w: %q does not say which side to castle", ErrUnrecognizedPhrase, phrase)
	}
	for _, w := range rest {
		if !castleWords[w] && !connectors[w] && !isClaimWord(w) && !isSideWord(w) {
			return "", fmt.Errorf("%w: unexpected %q in %q", ErrUnrecognizedPhrase, w, phrase)
		}
	}
	return side + claimSuffix(rest[i:]), nil
}

func parseRegular(phrase string, words []string) (string, error) {
	piece := pieceLetters[words[0]]
	var squares []string
	originFile, originRank := "", ""
	promo := ""
	suffix := ""

	for i := 1; i < len(words); i++ {
		w := words[i]

		if file, ok := fileWords[w]; ok && i+1 < len(words) {
			if rank, ok := rankWords[words[i+1]]; ok {
				squares = append(squares, string([]byte{file, rank}))
				i++
				continue
			}
		}
		if file, ok := fileWords[w]; ok && len(squares) == 0 && originFile == "" {
			// "pawn d takes e five"
			originFile = string(file)
			continue
		}
		if rank, ok := rankWords[w]; ok && !connectors[w] && len(squares) == 0 && originRank == "" {
			// "rook one to a three"
			originRank = string(rank)
			continue
		}

		switch {
		case promoteWords[w]:
			j := i + 1
			for j < len(words) && promoteFillers[words[j]] {
				j++
			}
			if j >= len(words) {
				return "", fmt.Errorf("%w: %q promotes to nothing", ErrUnrecognizedPhrase, phrase)
			}
			letter, ok := promotionLetters[words[j]]
			if !ok {
				return "", fmt.Errorf("%w: cannot promote to %q", ErrUnrecognizedPhrase, words[j])
			}
			promo = letter
			i = j
		case w == "checkmate" || w == "mate":
			suffix = "#"
		case w == "check":
			if i+1 < len(words) && words[i+1] == "mate" {
				suffix = "#"
				i++
			} else if suffix == "" {
				suffix = "+"
			}
		case piece == "" && len(squares) > 0 && promo == "" && promotionLetters[w] != "":
			// "pawn to e eight queen"
			promo = promotionLetters[w]
		default:
			// Piece names after the mover are repeats or the captured piece.
			if _, isPiece := pieceLetters[w]; !isPiece && !connectors[w] {
				return "", fmt.Errorf("%w: unexpected %q in %q", ErrUnrecognizedPhrase, w, phrase)
			}
		}
	}

	switch len(squares) {
	case 0:
		return "", fmt.Errorf("%w: %q names no square", ErrUnrecognizedPhrase, phrase)
	case 1, 2:
	default:
		return "", fmt.Errorf("%w: %q names %d squares", ErrUnrecognizedPhrase, phrase, len(squares))
	}

	var sb strings.Builder
	sb.WriteString(piece)
	if len(squares) == 1 {
		sb.WriteString(originFile)
		sb.WriteString(originRank)
	}
	for _, sq := range squares {
		sb.WriteString(sq)
	}
	if promo != "" {
		sb.WriteString("=")
		sb.WriteString(promo)
	}
	sb.WriteString(suffix)
	return sb.String(), nil
}

func isClaimWord(w string) bool { return w == "check" || w == "checkmate" || w == "mate" }

func isSideWord(w string) bool {
	switch w {
	case "king", "kings", "kingside", "short", "queen", "queens", "queenside", "long":
		return true
	}
	return false
}

func claimSuffix(words []string) string {
	suffix := ""
	for i, w := range words {
		switch {
		case w == "checkmate" || w == "mate":
			return "#"
		case w == "check":
			if i+1 < len(words) && words[i+1] == "mate" {
				return "#"
			}
			suffix = "+"
		}
	}
	return suffix
}

// tokenize lowercases, drops punctuation and splits compact squares such as
// "e4" into "e" "4" so typed-looking transcripts follow the spoken grammar.
func tokenize(phrase string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '\'':
			return -1
		default:
			return ' '
		}
	}, phrase)

	fields := strings.Fields(cleaned)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) == 2 && f[0] >= 'a' && f[0] <= 'h' && f[1] >= '1' && f[1] <= '8' {
			out = append(out, f[:1], f[1:])
			continue
		}
		out = append(out, f)
	}
	return out
}
