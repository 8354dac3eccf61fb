package chess

import (
	nchess "github.com/corentings/chess/v2"

	corechess "github.com/park285/blindfold-chess/internal/chess"
	"github.com/park285/blindfold-chess/internal/domain"
	"github.com/park285/blindfold-chess/internal/options"
)

type State int

const (
	// StateIdle: no game has been started or loaded yet.
	StateIdle State = iota
	StateAwaitingPlayerMove
	StateProcessingPlayerMove
	StateAwaitingEngineMove
	StateProcessingEngineMove
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPlayerMove:
		return "awaiting_player_move"
	case StateProcessingPlayerMove:
		return "processing_player_move"
	case StateAwaitingEngineMove:
		return "awaiting_engine_move"
	case StateProcessingEngineMove:
		return "processing_engine_move"
	case StateGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

type Turn int

const (
	TurnPlayer Turn = iota + 1
	TurnEngine
)

// InputEnabled reports whether the view should accept a move.
func (t Turn) InputEnabled() bool { return t == TurnPlayer }

// GameView is an immutable snapshot of the current game for the view.
type GameView struct {
	GameUUID    string
	Human       nchess.Color
	State       State
	Turn        nchess.Color
	MoveCount   int
	MovesSAN    []string
	FEN         string
	Status      corechess.Status
	OutcomeText string
	Peek        bool
}

type MoveEvent struct {
	GameUUID  string
	ByEngine  bool
	Color     nchess.Color
	Ply       int
	SAN       string
	UCI       string
	Speech    string
	FEN       string
	Check     bool
	Checkmate bool
	// PNG of the position when peek is on.
	Image []byte
}

type NoticeKind string

const (
	NoticeStarted      NoticeKind = "started"
	NoticeResumed      NoticeKind = "resumed"
	NoticeSaved        NoticeKind = "saved"
	NoticeUndone       NoticeKind = "undone"
	NoticeOptions      NoticeKind = "options"
	NoticeRecording    NoticeKind = "recording"
	NoticeTranscribing NoticeKind = "transcribing"
	NoticeDiscarded    NoticeKind = "discarded"
	NoticeHeard        NoticeKind = "heard"
	NoticeOpening      NoticeKind = "opening"
	NoticePeek         NoticeKind = "peek"
	NoticeStatus       NoticeKind = "status"
	NoticePGN          NoticeKind = "pgn"
	NoticeHistory      NoticeKind = "history"
)

// Notice carries informational events. Only the fields relevant to Kind are
// set.
type Notice struct {
	Kind NoticeKind

	View    GameView
	Phrase  string
	SAN     string
	Code    string
	Title   string
	Options options.Options
	Image   []byte
	PGN     string
	History []*domain.GameRecord
	Stats   domain.PlayerStats
}

// Listener receives every notification the sequencer emits. Calls happen on
// the loop goroutine and must not block for long.
type Listener interface {
	StateChanged(State)
	TurnChanged(Turn)
	Busy(thinking bool)
	MoveMade(MoveEvent)
	Warning(message string)
	Error(err error)
	GameOver(outcome string, view GameView)
	Speak(text string)
	Notice(Notice)
}
