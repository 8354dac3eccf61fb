package spoken

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	castleSAN  = regexp.MustCompile(`^(O-O-O|O-O|0-0-0|0-0)([+#])?$`)
	regularSAN = regexp.MustCompile(`^([KQRBN])?([a-h])?([1-8])?x?([a-h][1-8])(?:=?([QRBN]))?([+#])?$`)
)

var pieceNames = map[string]string{
	"":  "pawn",
	"N": "knight",
	"B": "bishop",
	"R": "rook",
	"Q": "queen",
	"K": "king",
}

var rankNames = map[byte]string{
	'1': "one", '2': "two", '3': "three", '4': "four",
	'5': "five", '6': "six", '7': "seven", '8': "eight",
}

// ToSpeech renders SAN as text a speech synthesizer reads naturally:
// "Nf3" becomes "knight to f three", "e8=Q+" becomes
// "pawn to e eight, promote to queen, check". Captures are not spoken.
func ToSpeech(san string) (string, error) {
	san = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(san), "e.p."))
	if m := castleSAN.FindStringSubmatch(san); m != nil {
		side := "castle king side"
		if len(m[1]) == 5 {
			side = "castle queen side"
		}
		return side + speakClaim(m[2]), nil
	}

	m := regularSAN.FindStringSubmatch(san)
	if m == nil {
		return "", fmt.Errorf("%q is not algebraic notation", san)
	}
	piece, fromFile, fromRank, dest, promo, claim := m[1], m[2], m[3], m[4], m[5], m[6]

	words := []string{pieceNames[piece]}
	if fromFile != "" {
		words = append(words, fromFile)
	}
	if fromRank != "" {
		words = append(words, rankNames[fromRank[0]])
	}
	words = append(words, "to", dest[:1], rankNames[dest[1]])

	text := strings.Join(words, " ")
	if promo != "" {
		text += ", promote to " + pieceNames[promo]
	}
	text += speakClaim(claim)
	return capitalizeLetterA(text), nil
}

func speakClaim(claim string) string {
	switch claim {
	case "+":
		return ", check"
	case "#":
		return ", checkmate"
	default:
		return ""
	}
}

// A lone "a" is read as the article; "A" is read as the letter.
func capitalizeLetterA(text string) string {
	words := strings.Split(text, " ")
	for i, w := range words {
		if w == "a" {
			words[i] = "A"
		}
	}
	return strings.Join(words, " ")
}
