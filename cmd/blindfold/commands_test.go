package main

import (
	"errors"
	"io"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/blindfold-chess/internal/adapter/chesspresenter"
	svcchess "github.com/park285/blindfold-chess/internal/service/chess"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		line string
		want any
	}{
		{"new", svcchess.CmdNewGame{Side: nchess.White}},
		{"new black", svcchess.CmdNewGame{Side: nchess.Black}},
		{"Nf3", svcchess.CmdMove{Text: "Nf3"}},
		{"say knight to f three", svcchess.CmdMove{Text: "knight to f three", Spoken: true}},
		{"rook h one to h six", svcchess.CmdMove{Text: "rook h one to h six", Spoken: true}},
		{"mic", svcchess.CmdMicToggle{}},
		{"mic cancel", svcchess.CmdMicCancel{}},
		{"listen /tmp/move one.wav", svcchess.CmdListenFile{Path: "/tmp/move one.wav"}},
		{"undo", svcchess.CmdUndo{}},
		{"PEEK", svcchess.CmdTogglePeek{}},
		{"options", svcchess.CmdShowOptions{}},
		{"history", svcchess.CmdHistory{}},
		{"pgn", svcchess.CmdPGN{}},
		{"pgn #3", svcchess.CmdArchivedPGN{ID: 3}},
		{"pgn 12", svcchess.CmdArchivedPGN{ID: 12}},
	}
	for _, tc := range cases {
		got, err := parseLine(tc.line)
		if err != nil {
			t.Fatalf("parseLine(%q): %v", tc.line, err)
		}
		if got.msg != tc.want {
			t.Fatalf("parseLine(%q) = %#v, want %#v", tc.line, got.msg, tc.want)
		}
	}
}

func TestParseLineLocalCommands(t *testing.T) {
	if c, _ := parseLine("  "); c.msg != nil || c.help || c.quit {
		t.Fatalf("blank line should do nothing: %+v", c)
	}
	if c, _ := parseLine("help"); !c.help {
		t.Fatalf("help not recognised")
	}
	if c, _ := parseLine("quit"); !c.quit {
		t.Fatalf("quit not recognised")
	}
}

func TestParseOptions(t *testing.T) {
	c, err := parseLine("options depth 12 autoplay on engine /usr/bin/stockfish")
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	u := c.msg.(svcchess.CmdSetOptions).Update
	if u.Depth == nil || *u.Depth != 12 || u.AutoPlay == nil || !*u.AutoPlay || u.EnginePath == nil || *u.EnginePath != "/usr/bin/stockfish" {
		t.Fatalf("update %+v", u)
	}

	c, err = parseLine("options autoplay off engine /opt/my engines/stockfish 17")
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	u = c.msg.(svcchess.CmdSetOptions).Update
	if u.EnginePath == nil || *u.EnginePath != "/opt/my engines/stockfish 17" || u.AutoPlay == nil || *u.AutoPlay {
		t.Fatalf("update %+v", u)
	}

	for _, line := range []string{"options engine", "options depth", "options depth ten", "options autoplay maybe", "options colour red", "new purple", "say", "pgn three", "pgn 0"} {
		if _, err := parseLine(line); !errors.Is(err, errUsage) {
			t.Fatalf("parseLine(%q) = %v, want usage error", line, err)
		}
	}
}

func TestRefuseMoveDuringEngineTurn(t *testing.T) {
	p := chesspresenter.NewPresenter(io.Discard, nil, chesspresenter.Config{}, nil)
	f := chesspresenter.NewFormatter(nil)
	p.StateChanged(svcchess.StateAwaitingEngineMove)
	p.TurnChanged(svcchess.TurnEngine)

	if text := refuseMove(svcchess.CmdMove{Text: "Nf3"}, p, f); !strings.Contains(text, "turn") {
		t.Fatalf("move during engine turn: %q", text)
	}
	if text := refuseMove(svcchess.CmdResign{}, p, f); text != "" {
		t.Fatalf("resign must still be posted, got %q", text)
	}

	p.StateChanged(svcchess.StateAwaitingPlayerMove)
	p.TurnChanged(svcchess.TurnPlayer)
	if text := refuseMove(svcchess.CmdMove{Text: "Nf3"}, p, f); text != "" {
		t.Fatalf("move on player turn: %q", text)
	}
}
