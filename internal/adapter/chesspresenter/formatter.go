package chesspresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/blindfold-chess/internal/msgcat"
	"github.com/park285/blindfold-chess/pkg/chessdto"
)

const recentMovesLimit = 8

// Formatter renders DTOs into terminal text using the message catalog.
// A nil catalog renders every fallback.
type Formatter struct {
	catalog *msgcat.Catalog
}

func NewFormatter(catalog *msgcat.Catalog) *Formatter {
	return &Formatter{catalog: catalog}
}

func (f *Formatter) render(key string, data map[string]any, fallback string) string {
	if f == nil {
		return fallback
	}
	return f.catalog.RenderOr(key, data, fallback)
}

func (f *Formatter) Start(state chessdto.GameState, resumed bool) string {
	if resumed {
		return f.render("game.resumed",
			map[string]any{"Moves": state.MoveCount, "Side": state.HumanSide},
			fmt.Sprintf("Saved game loaded (%d moves). You play %s.", state.MoveCount, state.HumanSide))
	}
	return f.render("game.started", map[string]any{"Side": state.HumanSide},
		fmt.Sprintf("New game. You play %s.", state.HumanSide))
}

func (f *Formatter) Saved() string  { return f.render("game.saved", nil, "Game saved.") }
func (f *Formatter) Undone() string { return f.render("game.undone", nil, "Took back your last move and the engine's reply.") }

func (f *Formatter) GameOver(outcome string, state chessdto.GameState) string {
	var sb strings.Builder
	sb.WriteString(f.render("game.over", map[string]any{"Outcome": outcome}, "Game over: "+outcome))
	if state.Status == "aborted" {
		sb.WriteByte('\n')
		sb.WriteString(f.render("game.aborted", nil, "The engine stopped responding. This game cannot continue."))
	}
	return sb.String()
}

func (f *Formatter) Opening(code, title string) string {
	return f.render("game.opening", map[string]any{"Code": code, "Title": title},
		fmt.Sprintf("Opening: %s %s", code, title))
}

func (f *Formatter) PlayerTurn() string { return f.render("turn.player", nil, "Your move.") }
func (f *Formatter) Thinking() string   { return f.render("turn.engine", nil, "Engine is thinking...") }

func (f *Formatter) Move(m chessdto.Move) string {
	if m.ByEngine {
		return f.render("move.engine", map[string]any{"SAN": m.SAN}, "Engine played "+m.SAN+".")
	}
	return f.render("move.player", map[string]any{"SAN": m.SAN}, "You played "+m.SAN+".")
}

// Banner is the short line shown next to the prompt for a few seconds after
// a move.
func (f *Formatter) Banner(m chessdto.Move) string {
	return f.render("move.banner", map[string]any{"Mover": m.Mover, "SAN": m.SAN}, m.Mover+": "+m.SAN)
}

func (f *Formatter) Warning(message string) string {
	return f.render("move.warning", map[string]any{"Message": message}, "Note: "+message)
}

func (f *Formatter) Recording() string {
	return f.render("speech.recording", nil, "Listening... type 'mic' again to stop.")
}

func (f *Formatter) Transcribing() string {
	return f.render("speech.transcribing", nil, "Transcribing...")
}

func (f *Formatter) Discarded() string {
	return f.render("speech.discarded", nil, "Recording discarded.")
}

func (f *Formatter) Heard(phrase, san string) string {
	return f.render("speech.heard", map[string]any{"Phrase": phrase, "SAN": san},
		fmt.Sprintf("Heard %q -> %s", phrase, san))
}

func (f *Formatter) Options(o chessdto.Options, saved bool) string {
	data := map[string]any{"EnginePath": o.EnginePath, "Depth": o.Depth, "AutoPlay": formatOnOff(o.AutoPlay)}
	fallback := fmt.Sprintf("engine=%s depth=%d autoplay=%s", o.EnginePath, o.Depth, formatOnOff(o.AutoPlay))
	if saved {
		return f.render("options.saved", data, "Options saved: "+fallback)
	}
	return f.render("options.current", data, fallback)
}

func (f *Formatter) Status(state chessdto.GameState) string {
	moveNumber := state.MoveCount/2 + 1
	moves := formatRecentMoves(state.MovesSAN)
	return f.render("turn.status", map[string]any{
		"State":      formatState(state.State),
		"MoveNumber": moveNumber,
		"SideToMove": state.SideToMove,
		"Moves":      moves,
	}, fmt.Sprintf("%s, move %d, %s to play. Moves: %s", formatState(state.State), moveNumber, state.SideToMove, moves))
}

func (f *Formatter) History(games []chessdto.GameEntry, stats chessdto.Stats) string {
	if len(games) == 0 {
		return f.render("history.empty", nil, "No finished games yet.")
	}
	var sb strings.Builder
	sb.WriteString(f.render("history.stats", map[string]any{
		"Played":  stats.GamesPlayed,
		"Wins":    stats.Wins,
		"Losses":  stats.Losses,
		"Draws":   stats.Draws,
		"Aborted": stats.Aborted,
	}, fmt.Sprintf("%d games: %d won, %d lost, %d drawn, %d aborted", stats.GamesPlayed, stats.Wins, stats.Losses, stats.Draws, stats.Aborted)))
	for _, g := range games {
		sb.WriteString("\n  ")
		ended := formatShortTime(g.EndedAt)
		sb.WriteString(f.render("history.row", map[string]any{
			"ID":     g.ID,
			"Ended":  ended,
			"Side":   g.HumanSide,
			"Result": g.Result,
			"Method": g.ResultMethod,
			"Moves":  g.MoveCount,
		}, fmt.Sprintf("#%d %s you=%s result=%s (%s) %d moves", g.ID, ended, g.HumanSide, g.Result, g.ResultMethod, g.MoveCount)))
		if d := formatGameDuration(g.Duration); d != "" {
			sb.WriteString(" in ")
			sb.WriteString(d)
		}
		if g.Opening != "" {
			sb.WriteString(", ")
			sb.WriteString(g.Opening)
		}
	}
	return sb.String()
}

func (f *Formatter) PeekWritten(path string) string {
	return f.render("peek.written", map[string]any{"Path": path}, "Board image written to "+path)
}

func (f *Formatter) PeekHidden() string { return f.render("peek.hidden", nil, "Peek off.") }

func (f *Formatter) PeekFailed(err error) string {
	return f.render("peek.failed", map[string]any{"Detail": err.Error()}, "Could not write the board image: "+err.Error())
}

// Error renders a classified error. Codes without a template use the
// generic one.
func (f *Formatter) Error(de chessdto.DomainError) string {
	data := map[string]any{"Detail": de.Detail}
	fallback := "Error: " + de.Error()
	key := "errors." + de.Code
	if de.Code == "" || (f != nil && f.catalog != nil && !f.catalog.Has(key)) {
		key = "errors.generic"
		data["Detail"] = de.Error()
	}
	return f.render(key, data, fallback)
}

func (f *Formatter) Help() string {
	return f.render("help.text", nil, "Commands: new, <move>, say, mic, listen, undo, resign, save, load, peek, options, retry, status, pgn, history, quit")
}

func formatRecentMoves(moves []string) string {
	if len(moves) == 0 {
		return "-"
	}
	start := 0
	if len(moves) > recentMovesLimit {
		start = len(moves) - recentMovesLimit
		if start%2 == 1 {
			start++
		}
	}
	var sb strings.Builder
	if start > 0 {
		sb.WriteString("... ")
	}
	for i := start; i < len(moves); i++ {
		if i%2 == 0 {
			fmt.Fprintf(&sb, "%d. ", i/2+1)
		}
		sb.WriteString(moves[i])
		if i < len(moves)-1 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func formatState(state string) string {
	switch state {
	case "awaiting_player_move":
		return "Waiting for your move"
	case "processing_player_move":
		return "Checking your move"
	case "awaiting_engine_move":
		return "Waiting for the engine"
	case "processing_engine_move":
		return "Playing the engine move"
	case "game_over":
		return "Game over"
	default:
		return "No game"
	}
}

func formatOnOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatGameDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
