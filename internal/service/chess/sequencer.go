package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	corechess "github.com/park285/blindfold-chess/internal/chess"
	"github.com/park285/blindfold-chess/internal/domain"
	"github.com/park285/blindfold-chess/internal/options"
	"github.com/park285/blindfold-chess/internal/spoken"
	"github.com/park285/blindfold-chess/internal/stt"
)

var ErrNotYourTurn = errors.New("not the player's turn")

const (
	defaultHistoryLimit = 10
	archiveTimeout      = 5 * time.Second
	renderTimeout       = 3 * time.Second
)

// BestMover is the engine as the sequencer sees it.
type BestMover interface {
	BestMove(ctx context.Context, path string, moves []string, depth int) (string, error)
}

type OptionsStore interface {
	Current() options.Options
	EnginePath() string
	Save(ctx context.Context, o options.Options) error
}

type Normalizer interface {
	ToSAN(phrase string) (string, error)
}

// SpeechRecognizer delivers transcripts from a worker goroutine.
type SpeechRecognizer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context, deliver func(stt.Transcript)) error
	TranscribeFile(ctx context.Context, path string, deliver func(stt.Transcript)) error
	Abort() bool
	Recording() bool
}

type Deps struct {
	Session    *Session
	Engine     BestMover
	Options    OptionsStore
	Normalizer Normalizer
	Renderer   BoardRenderer
	Repository Repository
	// Speech may be nil when no transcriber is configured.
	Speech       SpeechRecognizer
	HistoryLimit int
}

// OptionsUpdate changes only the fields that are set.
type OptionsUpdate struct {
	EnginePath *string
	Depth      *int
	AutoPlay   *bool
}

// Sequencer is the turn state machine. It is not safe for concurrent use;
// the Loop drives it from one goroutine and feeds asynchronous completions
// back through post.
type Sequencer struct {
	deps     Deps
	listener Listener
	post     func(any) bool
	ctx      context.Context
	logger   *zap.Logger

	state State
	peek  bool
	// gen changes whenever the current game is replaced or ended, so engine
	// replies for an older position can be recognised.
	gen       uint64
	inflight  bool
	wantQuery bool
}

func NewSequencer(deps Deps, listener Listener, post func(any) bool, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Normalizer == nil {
		deps.Normalizer = spoken.NewNormalizer()
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = defaultHistoryLimit
	}
	return &Sequencer{
		deps:     deps,
		listener: listener,
		post:     post,
		ctx:      context.Background(),
		logger:   logger,
	}
}

func (s *Sequencer) State() State { return s.state }

// Inflight reports whether an engine query is outstanding.
func (s *Sequencer) Inflight() bool { return s.inflight }

func (s *Sequencer) setState(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("sequencer_state", zap.String("from", s.state.String()), zap.String("to", next.String()))
	s.state = next
	s.listener.StateChanged(next)
}

func (s *Sequencer) fail(err error) {
	s.listener.Error(err)
}

// NewGame discards whatever is in progress and starts a game with the human
// on side.
func (s *Sequencer) NewGame(side nchess.Color) {
	s.cancelSpeech()
	g := s.deps.Session.Reset(side)
	s.gen++
	s.enterTurn(g)
	s.listener.Notice(Notice{Kind: NoticeStarted, View: s.view()})
	s.announceTurn()
}

// LoadGame resumes the saved game in the state implied by whose turn it is.
func (s *Sequencer) LoadGame() {
	if s.state == StateProcessingPlayerMove || s.state == StateProcessingEngineMove {
		s.fail(ErrNotYourTurn)
		return
	}
	g, err := s.deps.Session.Load(s.ctx)
	if err != nil {
		s.fail(err)
		return
	}
	s.cancelSpeech()
	s.gen++
	s.enterTurn(g)
	s.listener.Notice(Notice{Kind: NoticeResumed, View: s.view()})
	s.notifyOpening(g)
	s.showPeek(g)
	s.announceTurn()
}

func (s *Sequencer) SaveGame() {
	if err := s.deps.Session.Save(s.ctx); err != nil {
		s.fail(err)
		return
	}
	s.listener.Notice(Notice{Kind: NoticeSaved, View: s.view()})
}

// enterTurn moves to whichever awaiting state matches the side to move.
func (s *Sequencer) enterTurn(g *Game) {
	if g.HumanToMove() {
		s.setState(StateAwaitingPlayerMove)
	} else {
		s.setState(StateAwaitingEngineMove)
	}
}

// announceTurn tells the view whose move it is and starts the engine when it
// is the engine's.
func (s *Sequencer) announceTurn() {
	switch s.state {
	case StateAwaitingPlayerMove:
		s.listener.TurnChanged(TurnPlayer)
	case StateAwaitingEngineMove:
		s.listener.TurnChanged(TurnEngine)
		s.requestEngineMove()
	}
}

// SubmitMove plays a typed move, or a spoken phrase when isSpoken is set.
func (s *Sequencer) SubmitMove(text string, isSpoken bool) {
	g, err := s.playerGame()
	if err != nil {
		s.fail(err)
		return
	}

	candidate := strings.TrimSpace(text)
	if isSpoken {
		san, err := s.deps.Normalizer.ToSAN(text)
		if err != nil {
			s.fail(err)
			return
		}
		s.listener.Notice(Notice{Kind: NoticeHeard, Phrase: text, SAN: san})
		candidate = san
	}

	s.setState(StateProcessingPlayerMove)
	res, err := g.playHuman(candidate)
	if err != nil {
		s.setState(StateAwaitingPlayerMove)
		s.fail(err)
		return
	}

	s.logger.Info("player_move",
		zap.String("game_uuid", g.UUID),
		zap.String("san", res.SAN),
		zap.String("uci", res.UCI),
		zap.Bool("spoken", isSpoken),
	)
	s.announceMove(g, res, false)
	if res.Warning != "" {
		s.listener.Warning(res.Warning)
	}
	if res.Terminal {
		s.finish(g)
		return
	}
	s.setState(StateAwaitingEngineMove)
	s.listener.TurnChanged(TurnEngine)
	s.requestEngineMove()
}

// playerGame returns the game if the player may move now.
func (s *Sequencer) playerGame() (*Game, error) {
	g := s.deps.Session.Active()
	if g == nil || g.Terminal() {
		return nil, ErrNoActiveGame
	}
	if s.state != StateAwaitingPlayerMove {
		return nil, ErrNotYourTurn
	}
	return g, nil
}

// HandleTranscript plays a finished recognition as a spoken move.
func (s *Sequencer) HandleTranscript(t stt.Transcript) {
	if t.Err != nil {
		s.fail(t.Err)
		return
	}
	s.SubmitMove(t.Text, true)
}

// requestEngineMove issues the engine query for the current position. At
// most one query is outstanding; a request made while one is in flight is
// remembered and issued when the reply arrives.
func (s *Sequencer) requestEngineMove() {
	if s.inflight {
		s.wantQuery = true
		return
	}
	g := s.deps.Session.Active()
	if g == nil || g.Terminal() || s.state != StateAwaitingEngineMove {
		return
	}

	reply := engineReply{gen: s.gen, gameUUID: g.UUID}
	moves := g.Moves()
	path := s.deps.Options.EnginePath()
	depth := s.deps.Options.Current().Depth
	ctx := s.ctx
	engine := s.deps.Engine
	post := s.post

	s.inflight = true
	s.wantQuery = false
	s.listener.Busy(true)
	s.logger.Debug("engine_query", zap.String("game_uuid", g.UUID), zap.Int("ply", len(moves)), zap.Int("depth", depth))

	go func() {
		started := time.Now()
		reply.move, reply.err = engine.BestMove(ctx, path, moves, depth)
		reply.elapsed = time.Since(started)
		post(reply)
	}()
}

// HandleEngineReply applies the single completion of an engine query.
func (s *Sequencer) HandleEngineReply(r engineReply) {
	s.inflight = false
	s.listener.Busy(false)

	g := s.deps.Session.Active()
	if r.gen != s.gen || g == nil || g.UUID != r.gameUUID || s.state != StateAwaitingEngineMove {
		s.logger.Debug("engine_reply_stale", zap.String("game_uuid", r.gameUUID), zap.String("move", r.move))
		if s.wantQuery {
			s.requestEngineMove()
		}
		return
	}
	s.wantQuery = false

	if r.err != nil {
		s.engineFailed(g, r.err)
		return
	}

	s.setState(StateProcessingEngineMove)
	res, err := g.playEngine(r.move)
	if err != nil {
		s.engineFailed(g, &corechess.EngineError{Failure: corechess.FailureCrash, Path: s.deps.Options.EnginePath(), Err: err})
		return
	}

	s.logger.Info("engine_move",
		zap.String("game_uuid", g.UUID),
		zap.String("san", res.SAN),
		zap.String("uci", res.UCI),
		zap.Duration("elapsed", r.elapsed),
	)
	ev := s.announceMove(g, res, true)
	if s.deps.Options.Current().AutoPlay {
		s.listener.Speak(ev.Speech)
	}
	if res.Terminal {
		s.finish(g)
		return
	}
	s.setState(StateAwaitingPlayerMove)
	s.listener.TurnChanged(TurnPlayer)
}

func (s *Sequencer) engineFailed(g *Game, err error) {
	if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
		return
	}
	var engErr *corechess.EngineError
	if errors.As(err, &engErr) && engErr.Failure == corechess.FailureCrash {
		s.logger.Error("engine_crashed", zap.String("game_uuid", g.UUID), zap.Error(err))
		g.abort()
		s.fail(err)
		s.finish(g)
		return
	}
	// Nothing was played; the same query can be issued again with Retry.
	s.logger.Warn("engine_unavailable", zap.String("game_uuid", g.UUID), zap.Error(err))
	s.fail(err)
}

// Retry re-issues the engine query after a start failure.
func (s *Sequencer) Retry() {
	if s.state != StateAwaitingEngineMove {
		s.fail(ErrNotYourTurn)
		return
	}
	if s.inflight {
		return
	}
	s.requestEngineMove()
}

// Undo takes back the engine's reply and the player's move before it.
func (s *Sequencer) Undo() {
	g := s.deps.Session.Active()
	if g == nil || g.Terminal() {
		s.fail(ErrNoActiveGame)
		return
	}
	if s.state != StateAwaitingPlayerMove {
		s.fail(ErrNotYourTurn)
		return
	}
	if err := s.deps.Session.Undo(); err != nil {
		s.fail(err)
		return
	}
	s.gen++
	s.listener.Notice(Notice{Kind: NoticeUndone, View: s.view()})
	s.showPeek(g)
	s.listener.TurnChanged(TurnPlayer)
}

// Resign ends the game as a loss for the player.
func (s *Sequencer) Resign() {
	g := s.deps.Session.Active()
	if g == nil || g.Terminal() {
		s.fail(ErrNoActiveGame)
		return
	}
	if s.state == StateProcessingPlayerMove || s.state == StateProcessingEngineMove {
		s.fail(ErrNotYourTurn)
		return
	}
	s.cancelSpeech()
	g.resign()
	s.logger.Info("player_resigned", zap.String("game_uuid", g.UUID), zap.Int("moves", g.MoveCount()))
	s.finish(g)
}

func (s *Sequencer) finish(g *Game) {
	s.gen++
	s.setState(StateGameOver)
	outcome := g.OutcomeText()
	s.logger.Info("game_over",
		zap.String("game_uuid", g.UUID),
		zap.String("status", string(g.Status())),
		zap.String("result", g.Result()),
		zap.Int("moves", g.MoveCount()),
	)
	s.listener.GameOver(outcome, s.view())
	s.archive(g)
}

// archive stores a finished game. Failures are logged, not surfaced; the
// game itself is already over.
func (s *Sequencer) archive(g *Game) {
	if s.deps.Repository == nil {
		return
	}
	now := time.Now()
	opts := s.deps.Options.Current()
	code, title := g.Opening()
	record := &domain.GameRecord{
		GameUUID:     g.UUID,
		HumanSide:    SideName(g.Human),
		Result:       g.Result(),
		ResultMethod: g.Method(),
		Status:       string(g.Status()),
		Opening:      strings.TrimSpace(code + " " + title),
		MovesUCI:     g.Moves(),
		MovesSAN:     g.SANMoves(),
		PGN:          g.PGN(),
		Depth:        opts.Depth,
		EnginePath:   s.deps.Options.EnginePath(),
		StartedAt:    g.StartedAt,
		EndedAt:      now,
		Duration:     now.Sub(g.StartedAt),
	}

	ctx, cancel := context.WithTimeout(s.ctx, archiveTimeout)
	defer cancel()
	id, err := s.deps.Repository.InsertGame(ctx, record)
	switch {
	case errors.Is(err, ErrDuplicateGame):
		s.logger.Debug("game_archive_duplicate", zap.String("game_uuid", g.UUID))
	case err != nil:
		s.logger.Warn("game_archive_failed", zap.String("game_uuid", g.UUID), zap.Error(err))
	default:
		s.logger.Info("game_archived", zap.Int64("id", id), zap.String("game_uuid", g.UUID))
	}
}

func (s *Sequencer) announceMove(g *Game, res corechess.Result, byEngine bool) MoveEvent {
	speech, err := spoken.ToSpeech(res.SAN)
	if err != nil {
		speech = res.SAN
	}
	color := nchess.White
	if g.Turn() == nchess.White {
		color = nchess.Black
	}
	ev := MoveEvent{
		GameUUID:  g.UUID,
		ByEngine:  byEngine,
		Color:     color,
		Ply:       g.MoveCount(),
		SAN:       res.SAN,
		UCI:       res.UCI,
		Speech:    speech,
		FEN:       res.FEN,
		Check:     res.Check,
		Checkmate: res.Checkmate,
	}
	if s.peek {
		ev.Image = s.render(g)
	}
	s.listener.MoveMade(ev)
	s.notifyOpening(g)
	return ev
}

// notifyOpening reports the ECO line once each time it changes.
func (s *Sequencer) notifyOpening(g *Game) {
	code, title := g.Opening()
	if code == "" || code == g.lastOpening {
		return
	}
	g.lastOpening = code
	s.logger.Info("opening_label",
		zap.String("game_uuid", g.UUID),
		zap.String("eco_code", code),
		zap.String("eco_title", title),
		zap.Int("ply", g.MoveCount()),
	)
	s.listener.Notice(Notice{Kind: NoticeOpening, Code: code, Title: title})
}

// TogglePeek shows or hides the board image.
func (s *Sequencer) TogglePeek() {
	s.peek = !s.peek
	if !s.peek {
		s.listener.Notice(Notice{Kind: NoticePeek})
		return
	}
	g := s.deps.Session.Active()
	if g == nil {
		s.peek = false
		s.fail(ErrNoActiveGame)
		return
	}
	s.showPeek(g)
}

func (s *Sequencer) showPeek(g *Game) {
	if !s.peek {
		return
	}
	if img := s.render(g); img != nil {
		s.listener.Notice(Notice{Kind: NoticePeek, Image: img})
	}
}

func (s *Sequencer) render(g *Game) []byte {
	if s.deps.Renderer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(s.ctx, renderTimeout)
	defer cancel()
	img, err := s.deps.Renderer.RenderPNG(ctx, g.Board(), RenderOptions{
		Orientation: g.Human,
		Highlight:   g.LastMove(),
		Caption:     fmt.Sprintf("Move %d, %s to play", g.MoveCount()/2+1, SideName(g.Turn())),
	})
	if err != nil {
		s.logger.Warn("board_render_failed", zap.String("game_uuid", g.UUID), zap.Error(err))
		return nil
	}
	return img
}

// SetOptions validates and persists the merged options.
func (s *Sequencer) SetOptions(u OptionsUpdate) {
	next := s.deps.Options.Current()
	if u.EnginePath != nil {
		next.EnginePath = strings.TrimSpace(*u.EnginePath)
	}
	if u.Depth != nil {
		next.Depth = *u.Depth
	}
	if u.AutoPlay != nil {
		next.AutoPlay = *u.AutoPlay
	}
	if err := s.deps.Options.Save(s.ctx, next); err != nil {
		s.fail(err)
		return
	}
	s.listener.Notice(Notice{Kind: NoticeOptions, Options: s.deps.Options.Current()})
}

func (s *Sequencer) ShowOptions() {
	s.listener.Notice(Notice{Kind: NoticeOptions, Options: s.deps.Options.Current()})
}

func (s *Sequencer) Status() {
	if s.deps.Session.Active() == nil {
		s.fail(ErrNoActiveGame)
		return
	}
	s.listener.Notice(Notice{Kind: NoticeStatus, View: s.view()})
}

func (s *Sequencer) ExportPGN() {
	g := s.deps.Session.Active()
	if g == nil {
		s.fail(ErrNoActiveGame)
		return
	}
	s.listener.Notice(Notice{Kind: NoticePGN, PGN: g.PGN()})
}

// ArchivedPGN shows the PGN of the archived game with the given history id.
func (s *Sequencer) ArchivedPGN(id int64) {
	if s.deps.Repository == nil {
		s.fail(fmt.Errorf("%w #%d", ErrGameNotFound, id))
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, archiveTimeout)
	defer cancel()
	rec, err := s.deps.Repository.GetGame(ctx, id)
	if err != nil {
		s.fail(fmt.Errorf("history: %w", err))
		return
	}
	if rec == nil {
		s.fail(fmt.Errorf("%w #%d", ErrGameNotFound, id))
		return
	}
	s.listener.Notice(Notice{Kind: NoticePGN, PGN: rec.PGN})
}

func (s *Sequencer) History() {
	if s.deps.Repository == nil {
		s.listener.Notice(Notice{Kind: NoticeHistory})
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, archiveTimeout)
	defer cancel()
	games, err := s.deps.Repository.GetRecentGames(ctx, s.deps.HistoryLimit)
	if err != nil {
		s.fail(fmt.Errorf("history: %w", err))
		return
	}
	stats, err := s.deps.Repository.Stats(ctx)
	if err != nil {
		s.fail(fmt.Errorf("history: %w", err))
		return
	}
	s.listener.Notice(Notice{Kind: NoticeHistory, History: games, Stats: stats})
}

// ToggleMic starts a recording, or stops it and hands it to the transcriber.
func (s *Sequencer) ToggleMic() {
	if s.deps.Speech == nil {
		s.fail(stt.ErrSpeechUnavailable)
		return
	}
	if s.deps.Speech.Recording() {
		if err := s.deps.Speech.Stop(s.ctx, s.deliverTranscript); err != nil {
			s.fail(err)
			return
		}
		s.listener.Notice(Notice{Kind: NoticeTranscribing})
		return
	}
	if _, err := s.playerGame(); err != nil {
		s.fail(err)
		return
	}
	if err := s.deps.Speech.Start(s.ctx); err != nil {
		s.fail(err)
		return
	}
	s.listener.Notice(Notice{Kind: NoticeRecording})
}

// CancelMic discards the recording or transcription in progress.
func (s *Sequencer) CancelMic() {
	if s.deps.Speech != nil && s.deps.Speech.Abort() {
		s.listener.Notice(Notice{Kind: NoticeDiscarded})
	}
}

// ListenFile transcribes a WAV file as if it had been spoken.
func (s *Sequencer) ListenFile(path string) {
	if s.deps.Speech == nil {
		s.fail(stt.ErrSpeechUnavailable)
		return
	}
	if _, err := s.playerGame(); err != nil {
		s.fail(err)
		return
	}
	if err := s.deps.Speech.TranscribeFile(s.ctx, path, s.deliverTranscript); err != nil {
		s.fail(err)
		return
	}
	s.listener.Notice(Notice{Kind: NoticeTranscribing})
}

func (s *Sequencer) deliverTranscript(t stt.Transcript) {
	s.post(transcriptMsg{Transcript: t})
}

func (s *Sequencer) cancelSpeech() {
	if s.deps.Speech != nil {
		s.deps.Speech.Abort()
	}
}

func (s *Sequencer) view() GameView {
	g := s.deps.Session.Active()
	if g == nil {
		return GameView{State: s.state, Peek: s.peek}
	}
	return GameView{
		GameUUID:    g.UUID,
		Human:       g.Human,
		State:       s.state,
		Turn:        g.Turn(),
		MoveCount:   g.MoveCount(),
		MovesSAN:    g.SANMoves(),
		FEN:         g.FEN(),
		Status:      g.Status(),
		OutcomeText: g.OutcomeText(),
		Peek:        s.peek,
	}
}
