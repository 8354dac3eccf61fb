package chesspresenter

import (
	"errors"
	"strings"

	corechess "github.com/park285/blindfold-chess/internal/chess"
	"github.com/park285/blindfold-chess/internal/domain"
	"github.com/park285/blindfold-chess/internal/options"
	svc "github.com/park285/blindfold-chess/internal/service/chess"
	"github.com/park285/blindfold-chess/internal/spoken"
	"github.com/park285/blindfold-chess/internal/stt"
	"github.com/park285/blindfold-chess/pkg/chessdto"
)

func ToDTOState(v svc.GameView) chessdto.GameState {
	return chessdto.GameState{
		GameUUID:   v.GameUUID,
		HumanSide:  svc.SideName(v.Human),
		SideToMove: svc.SideName(v.Turn),
		State:      v.State.String(),
		MoveCount:  v.MoveCount,
		MovesSAN:   append([]string(nil), v.MovesSAN...),
		FEN:        v.FEN,
		Status:     string(v.Status),
		Outcome:    v.OutcomeText,
		Peek:       v.Peek,
	}
}

func ToDTOMove(ev svc.MoveEvent) chessdto.Move {
	mover := "You"
	if ev.ByEngine {
		mover = "Engine"
	}
	return chessdto.Move{
		Mover:      mover,
		ByEngine:   ev.ByEngine,
		Ply:        ev.Ply,
		SAN:        ev.SAN,
		UCI:        ev.UCI,
		Speech:     ev.Speech,
		Check:      ev.Check,
		Checkmate:  ev.Checkmate,
		BoardImage: append([]byte(nil), ev.Image...),
	}
}

func ToDTOOptions(o options.Options) chessdto.Options {
	return chessdto.Options{EnginePath: o.EnginePath, Depth: o.Depth, AutoPlay: o.AutoPlay}
}

func ToDTOGames(list []*domain.GameRecord) []chessdto.GameEntry {
	out := make([]chessdto.GameEntry, 0, len(list))
	for _, g := range list {
		if g == nil {
			continue
		}
		out = append(out, chessdto.GameEntry{
			ID:           g.ID,
			GameUUID:     g.GameUUID,
			HumanSide:    g.HumanSide,
			Result:       g.Result,
			ResultMethod: g.ResultMethod,
			Status:       g.Status,
			Opening:      g.Opening,
			MoveCount:    len(g.MovesUCI),
			PGN:          g.PGN,
			StartedAt:    g.StartedAt,
			EndedAt:      g.EndedAt,
			Duration:     g.Duration,
		})
	}
	return out
}

func ToDTOStats(s domain.PlayerStats) chessdto.Stats {
	return chessdto.Stats{
		GamesPlayed: s.GamesPlayed,
		Wins:        s.Wins,
		Losses:      s.Losses,
		Draws:       s.Draws,
		Aborted:     s.Aborted,
		LastPlayed:  s.LastPlayed,
	}
}

type errorMapping struct {
	sentinel  error
	code      string
	retryable bool
}

// Ordered: ErrUndoUnavailable also matches ErrNoActiveGame.
var errorMappings = []errorMapping{
	{spoken.ErrUnrecognizedPhrase, chessdto.CodeUnrecognizedPhrase, true},
	{corechess.ErrIllegalMove, chessdto.CodeIllegalMove, true},
	{stt.ErrNoSpeechDetected, chessdto.CodeNoSpeech, true},
	{svc.ErrUndoUnavailable, chessdto.CodeUndoUnavailable, false},
	{svc.ErrNoActiveGame, chessdto.CodeNoActiveGame, false},
	{corechess.ErrGameFinished, chessdto.CodeNoActiveGame, false},
	{svc.ErrNoSavedGame, chessdto.CodeNoSavedGame, false},
	{svc.ErrGameNotFound, chessdto.CodeGameNotFound, true},
	{options.ErrInvalidOption, chessdto.CodeInvalidOption, true},
	{corechess.ErrEngineUnavailable, chessdto.CodeEngineUnavailable, true},
	{svc.ErrNotYourTurn, chessdto.CodeNotYourTurn, true},
	{stt.ErrRecognitionActive, chessdto.CodeRecognitionActive, false},
	{stt.ErrSpeechUnavailable, chessdto.CodeSpeechUnavailable, false},
}

// ToDomainError classifies err by the first sentinel it wraps.
func ToDomainError(err error) chessdto.DomainError {
	if err == nil {
		return chessdto.DomainError{}
	}
	var de chessdto.DomainError
	if errors.As(err, &de) {
		return de
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return chessdto.DomainError{
				Code:      m.code,
				Message:   err.Error(),
				Retryable: m.retryable,
				Detail:    detailAfter(err, m.sentinel),
			}
		}
	}
	return chessdto.DomainError{Code: chessdto.CodeGeneric, Message: err.Error(), Detail: err.Error()}
}

// detailAfter returns the text following the sentinel in err's message, or
// the whole message when the sentinel text does not appear in it.
func detailAfter(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error()
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return msg
	}
	return strings.TrimSpace(strings.TrimPrefix(msg[idx+len(marker):], ":"))
}
