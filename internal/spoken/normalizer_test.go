package spoken

import (
	"errors"
	"testing"
)

func TestToSAN(t *testing.T) {
	n := NewNormalizer()
	cases := []struct {
		phrase string
		want   string
	}{
		{"pawn to e four", "e4"},
		{"pawn to a one", "a1"},
		{"rook two a one", "Ra1"},
		{"rook h one to h six", "Rh1h6"},
		{"bishop to f seven check", "Bf7+"},
		{"bishop to f seven checkmate", "Bf7#"},
		{"bishop to f seven check mate", "Bf7#"},
		{"queen h four checkmate", "Qh4#"},
		{"pawn a six to b seven", "a6b7"},
		{"pawn a seven to a eight promote to queen", "a7a8=Q"},
		{"pawn a seven to a eight promote two queen", "a7a8=Q"},
		{"pawn a seven to a eight promote to queen checkmate", "a7a8=Q#"},
		{"pawn to e eight knight", "e8=N"},
		{"castle king side", "O-O"},
		{"castle queen side", "O-O-O"},
		{"castle kingside check", "O-O+"},
		{"pawn pawn to c three", "c3"},
		{"Knight to F3.", "Nf3"},
		{"um, night g one to f three", "Ng1f3"},
		{"pawn e to e four", "e2e4"},
		{"pawn d takes e five en passant", "de5"},
		{"knight b d two", "Nbd2"},
		{"rook one to a three", "R1a3"},
		{"knight takes bishop on f six", "Nf6"},
		{"castle on the king side", "O-O"},
	}
	for _, tc := range cases {
		got, err := n.ToSAN(tc.phrase)
		if err != nil {
			t.Fatalf("ToSAN(%q): %v", tc.phrase, err)
		}
		if got != tc.want {
			t.Fatalf("ToSAN(%q) = %q, want %q", tc.phrase, got, tc.want)
		}
	}
}

func TestToSANUnrecognized(t *testing.T) {
	n := NewNormalizer()
	for _, phrase := range []string{
		"i am bobby fischer",
		"",
		"knight",
		"castle",
		"pawn to e eight promote to king",
		"rook a one b one c one",
		"pawn to e four banana",
		"knight to f three b",
		"castle king side please",
	} {
		if _, err := n.ToSAN(phrase); !errors.Is(err, ErrUnrecognizedPhrase) {
			t.Fatalf("ToSAN(%q) err = %v, want ErrUnrecognizedPhrase", phrase, err)
		}
	}
}

func TestToSpeech(t *testing.T) {
	cases := map[string]string{
		"e4":     "pawn to e four",
		"Nf3":    "knight to f three",
		"exd5":   "pawn e to d five",
		"Rh1h6":  "rook h one to h six",
		"R1a3":   "rook one to A three",
		"Qxa7#":  "queen to A seven, checkmate",
		"e8=Q+":  "pawn to e eight, promote to queen, check",
		"O-O":    "castle king side",
		"O-O-O+": "castle queen side, check",
	}
	for san, want := range cases {
		got, err := ToSpeech(san)
		if err != nil {
			t.Fatalf("ToSpeech(%q): %v", san, err)
		}
		if got != want {
			t.Fatalf("ToSpeech(%q) = %q, want %q", san, got, want)
		}
	}
	if _, err := ToSpeech("hello"); err == nil {
		t.Fatalf("expected error for non-SAN input")
	}
}
