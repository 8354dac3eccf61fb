package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	corechess "github.com/park285/blindfold-chess/internal/chess"
	"go.uber.org/zap"
)

var (
	ErrNoActiveGame = errors.New("no active game")
	ErrNoSavedGame  = errors.New("no saved game")
	ErrGameNotFound = errors.New("no archived game")
	// ErrUndoUnavailable is an ErrNoActiveGame: there is no engine reply to
	// take back.
	ErrUndoUnavailable = fmt.Errorf("%w: nothing to take back", ErrNoActiveGame)
)

const abortedOutcomeText = "Game aborted: the engine stopped responding"

// Game is the game in progress. It is owned by the event loop goroutine and
// is never shared.
type Game struct {
	UUID      string
	Human     nchess.Color
	StartedAt time.Time

	board       *nchess.Game
	aborted     bool
	undoArmed   bool
	lastMove    *MoveHighlight
	lastOpening string
}

func newGame(id string, human nchess.Color, started time.Time, board *nchess.Game) *Game {
	g := &Game{UUID: id, Human: human, StartedAt: started, board: board}
	g.tagPGN()
	return g
}

func (g *Game) tagPGN() {
	white, black := "You", "Engine"
	if g.Human == nchess.Black {
		white, black = black, white
	}
	g.board.AddTagPair("Event", "Blindfold game")
	g.board.AddTagPair("Date", g.StartedAt.Format("2006.01.02"))
	g.board.AddTagPair("White", white)
	g.board.AddTagPair("Black", black)
}

func (g *Game) Turn() nchess.Color { return g.board.Position().Turn() }
func (g *Game) HumanToMove() bool { return g.Turn() == g.Human }
func (g *Game) FEN() string { return g.board.FEN() }
func (g *Game) PGN() string { return g.board.String() }
func (g *Game) MoveCount() int { return len(g.board.Moves()) }
func (g *Game) Moves() []string { return corechess.UCIMoves(g.board) }
func (g *Game) SANMoves() []string { return corechess.SANMoves(g.board) }
func (g *Game) Board() *nchess.Board { return g.board.Position().Board() }
func (g *Game) LastMove() *MoveHighlight {
	if g.lastMove == nil {
		return nil
	}
	h := *g.lastMove
	return &h
}

// Terminal reports whether the game can take no more moves.
func (g *Game) Terminal() bool {
	return g.aborted || g.board.Outcome() != nchess.NoOutcome
}

func (g *Game) Status() corechess.Status {
	if g.aborted {
		return corechess.StatusAborted
	}
	return corechess.StatusFor(g.board.Outcome(), g.board.Method())
}

func (g *Game) OutcomeText() string {
	if g.aborted {
		return abortedOutcomeText
	}
	if g.board.Outcome() == nchess.NoOutcome {
		return ""
	}
	return corechess.OutcomeText(g.board.Outcome(), g.board.Method())
}

// Result is "win", "loss" or "draw" from the human's side; "unknown" while
// the game is running or after an abort.
func (g *Game) Result() string {
	if g.aborted {
		return "unknown"
	}
	return corechess.ResultFor(g.board.Outcome(), g.Human)
}

func (g *Game) Method() string {
	if g.aborted {
		return "aborted"
	}
	return strings.ToLower(g.board.Method().String())
}

// Opening is the ECO label of the line played so far.
func (g *Game) Opening() (string, string) {
	return corechess.Opening(g.board)
}

func (g *Game) playHuman(raw string) (corechess.Result, error) {
	res, err := corechess.Apply(g.board, raw)
	if err != nil {
		return corechess.Result{}, err
	}
	g.lastMove = &MoveHighlight{From: res.From, To: res.To}
	return res, nil
}

func (g *Game) playEngine(move string) (corechess.Result, error) {
	res, err := corechess.ApplyUCI(g.board, move)
	if err != nil {
		return corechess.Result{}, err
	}
	g.lastMove = &MoveHighlight{From: res.From, To: res.To}
	g.undoArmed = true
	return res, nil
}

func (g *Game) resign() {
	g.board.Resign(g.Human)
}

func (g *Game) abort() {
	g.aborted = true
}

// Session owns the active game and the single saved slot.
type Session struct {
	slot   Slot
	game   *Game
	now    func() time.Time
	logger *zap.Logger
}

func NewSession(slot Slot, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{slot: slot, now: time.Now, logger: logger}
}

// Active returns the current game, finished or not, or nil before the first
// game.
func (s *Session) Active() *Game { return s.game }

// Reset discards the current game and starts a fresh one.
func (s *Session) Reset(human nchess.Color) *Game {
	if human != nchess.Black {
		human = nchess.White
	}
	s.game = newGame(uuid.NewString(), human, s.now(), nchess.NewGame())
	s.logger.Info("game_reset", zap.String("game_uuid", s.game.UUID), zap.String("human", SideName(human)))
	return s.game
}

// Save overwrites the slot with the running game. Finished games are not
// saved.
func (s *Session) Save(ctx context.Context) error {
	if s.game == nil || s.game.Terminal() {
		return ErrNoActiveGame
	}
	if s.slot == nil {
		return fmt.Errorf("save game: no slot configured")
	}
	saved := SavedGame{
		Version:   savedGameVersion,
		GameUUID:  s.game.UUID,
		HumanSide: SideName(s.game.Human),
		Moves:     s.game.Moves(),
		StartedAt: s.game.StartedAt,
		SavedAt:   s.now(),
	}
	if err := s.slot.Write(ctx, saved); err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	s.logger.Info("game_saved", zap.String("game_uuid", saved.GameUUID), zap.Int("moves", len(saved.Moves)))
	return nil
}

// Load replaces the current game with the saved one, replayed from the
// starting position through the rules library.
func (s *Session) Load(ctx context.Context) (*Game, error) {
	if s.slot == nil {
		return nil, ErrNoSavedGame
	}
	saved, err := s.slot.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	if saved == nil {
		return nil, ErrNoSavedGame
	}

	board, err := corechess.Replay(saved.Moves)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	if board.Outcome() != nchess.NoOutcome {
		return nil, fmt.Errorf("load game: saved game is already finished")
	}
	human, err := parseSide(saved.HumanSide)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	id := saved.GameUUID
	if id == "" {
		id = uuid.NewString()
	}
	started := saved.StartedAt
	if started.IsZero() {
		started = s.now()
	}

	g := newGame(id, human, started, board)
	if moves := board.Moves(); len(moves) > 0 {
		last := moves[len(moves)-1]
		g.lastMove = &MoveHighlight{From: last.S1(), To: last.S2()}
	}
	// The last move was the engine's when the human is to move.
	g.undoArmed = len(saved.Moves) >= 2 && g.HumanToMove()
	s.game = g
	s.logger.Info("game_loaded", zap.String("game_uuid", id), zap.Int("moves", len(saved.Moves)))
	return g, nil
}

// Undo takes back the engine's last reply and the human move before it.
// It works once per engine reply.
func (s *Session) Undo() error {
	g := s.game
	if g == nil || g.Terminal() {
		return ErrNoActiveGame
	}
	moves := g.Moves()
	if !g.undoArmed || len(moves) < 2 {
		return ErrUndoUnavailable
	}

	board, err := corechess.Replay(moves[:len(moves)-2])
	if err != nil {
		return fmt.Errorf("undo: %w", err)
	}
	g.board = board
	g.tagPGN()
	g.undoArmed = false
	g.lastMove = nil
	if remaining := board.Moves(); len(remaining) > 0 {
		last := remaining[len(remaining)-1]
		g.lastMove = &MoveHighlight{From: last.S1(), To: last.S2()}
	}
	s.logger.Info("game_undo", zap.String("game_uuid", g.UUID), zap.Int("moves", len(moves)-2))
	return nil
}

func parseSide(side string) (nchess.Color, error) {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "white", "w":
		return nchess.White, nil
	case "black", "b":
		return nchess.Black, nil
	default:
		return nchess.NoColor, fmt.Errorf("unknown side %q", side)
	}
}

// SideName is the lowercase colour name used in saved games and messages.
func SideName(c nchess.Color) string {
	switch c {
	case nchess.White:
		return "white"
	case nchess.Black:
		return "black"
	default:
		return "none"
	}
}

// ParseSide reads "white" or "black" as typed by the user.
func ParseSide(side string) (nchess.Color, error) { return parseSide(side) }
