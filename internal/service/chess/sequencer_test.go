package chess

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	nchess "github.com/corentings/chess/v2"

	corechess "github.com/park285/blindfold-chess/internal/chess"
	"github.com/park285/blindfold-chess/internal/options"
	"github.com/park285/blindfold-chess/internal/spoken"
	"github.com/park285/blindfold-chess/internal/stt"
)

type answer struct {
	move string
	err  error
}

// scriptedEngine hands out answers in order; each BestMove blocks until the
// test supplies one.
type scriptedEngine struct {
	answers chan answer
	mu      sync.Mutex
	calls   [][]string
}

func newScriptedEngine() *scriptedEngine {
	return &scriptedEngine{answers: make(chan answer, 16)}
}

func (e *scriptedEngine) BestMove(ctx context.Context, path string, moves []string, depth int) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), moves...))
	e.mu.Unlock()
	select {
	case a := <-e.answers:
		return a.move, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *scriptedEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *scriptedEngine) lastCall() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.calls) == 0 {
		return nil
	}
	return e.calls[len(e.calls)-1]
}

type recordingListener struct {
	states   []State
	turns    []Turn
	busy     []bool
	moves    []MoveEvent
	warnings []string
	errs     []error
	overs    []string
	speech   []string
	notices  []Notice
}

func (l *recordingListener) StateChanged(s State)             { l.states = append(l.states, s) }
func (l *recordingListener) TurnChanged(t Turn)               { l.turns = append(l.turns, t) }
func (l *recordingListener) Busy(b bool)                      { l.busy = append(l.busy, b) }
func (l *recordingListener) MoveMade(ev MoveEvent)            { l.moves = append(l.moves, ev) }
func (l *recordingListener) Warning(msg string)               { l.warnings = append(l.warnings, msg) }
func (l *recordingListener) Error(err error)                  { l.errs = append(l.errs, err) }
func (l *recordingListener) GameOver(text string, _ GameView) { l.overs = append(l.overs, text) }
func (l *recordingListener) Speak(text string)                { l.speech = append(l.speech, text) }
func (l *recordingListener) Notice(n Notice)                  { l.notices = append(l.notices, n) }

// takeErr returns the latest error reported since the previous call.
func (l *recordingListener) takeErr() error {
	if len(l.errs) == 0 {
		return nil
	}
	err := l.errs[len(l.errs)-1]
	l.errs = nil
	return err
}

func (l *recordingListener) noticesOf(kind NoticeKind) []Notice {
	var out []Notice
	for _, n := range l.notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type memPersister struct{ saved *options.Options }

func (m *memPersister) Load(context.Context) (options.Options, bool, error) {
	if m.saved == nil {
		return options.Options{}, false, nil
	}
	return *m.saved, true, nil
}

func (m *memPersister) Save(_ context.Context, o options.Options) error {
	m.saved = &o
	return nil
}

type stubRenderer struct{ calls int }

func (r *stubRenderer) RenderPNG(context.Context, *nchess.Board, RenderOptions) ([]byte, error) {
	r.calls++
	return []byte("\x89PNG"), nil
}

type harness struct {
	t        *testing.T
	seq      *Sequencer
	engine   *scriptedEngine
	listener *recordingListener
	repo     Repository
	opts     *options.Store
	inbox    chan any
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		engine:   newScriptedEngine(),
		listener: &recordingListener{},
		repo:     NewMemoryRepository(),
		opts:     options.NewStore(&memPersister{}, "stockfish", nil),
		inbox:    make(chan any, 16),
	}
	deps := Deps{
		Session:    NewSession(NewFileSlot(filepath.Join(t.TempDir(), "saved.json")), nil),
		Engine:     h.engine,
		Options:    h.opts,
		Normalizer: spoken.NewNormalizer(),
		Renderer:   &stubRenderer{},
		Repository: h.repo,
	}
	h.seq = NewSequencer(deps, h.listener, func(msg any) bool { h.inbox <- msg; return true }, nil)
	return h
}

// pump handles the next posted message.
func (h *harness) pump() {
	h.t.Helper()
	select {
	case msg := <-h.inbox:
		h.seq.Handle(msg)
	case <-time.After(2 * time.Second):
		h.t.Fatalf("no message posted (state %s)", h.seq.State())
	}
}

// engineMoves answers the outstanding query with move.
func (h *harness) engineMoves(move string) {
	h.t.Helper()
	h.engine.answers <- answer{move: move}
	h.pump()
}

func (h *harness) play(text string) {
	h.t.Helper()
	h.seq.SubmitMove(text, false)
	if err := h.listener.takeErr(); err != nil {
		h.t.Fatalf("SubmitMove(%q): %v", text, err)
	}
}

func (h *harness) game() *Game { return h.seq.deps.Session.Active() }

func TestNewGameAsBlackWaitsForEngine(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.Black)

	if h.seq.State() != StateAwaitingEngineMove {
		t.Fatalf("state %s", h.seq.State())
	}
	if len(h.listener.turns) != 1 || h.listener.turns[0].InputEnabled() {
		t.Fatalf("input should be disabled, turns %v", h.listener.turns)
	}

	h.engineMoves("e2e4")
	if h.seq.State() != StateAwaitingPlayerMove {
		t.Fatalf("state %s", h.seq.State())
	}
	if h.game().Board().Piece(nchess.E4) != nchess.WhitePawn {
		t.Fatalf("board not updated: %s", h.game().FEN())
	}
	if len(h.listener.moves) != 1 || h.listener.moves[0].SAN != "e4" || !h.listener.moves[0].ByEngine {
		t.Fatalf("moves %+v", h.listener.moves)
	}
	if got := h.listener.busy; len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("busy %v", got)
	}
}

func TestSpokenMoveThenEngineReply(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.seq.SubmitMove("pawn to e four", true)

	heard := h.listener.noticesOf(NoticeHeard)
	if len(heard) != 1 || heard[0].SAN != "e4" {
		t.Fatalf("heard %+v", heard)
	}
	if h.seq.State() != StateAwaitingEngineMove {
		t.Fatalf("state %s", h.seq.State())
	}
	h.engineMoves("e7e5")

	if got := strings.Join(h.engine.lastCall(), " "); got != "e2e4" {
		t.Fatalf("engine saw %q", got)
	}
	if h.seq.State() != StateAwaitingPlayerMove || h.game().MoveCount() != 2 {
		t.Fatalf("state %s after %d moves", h.seq.State(), h.game().MoveCount())
	}
	if h.listener.moves[1].Speech != "pawn to e five" {
		t.Fatalf("speech %q", h.listener.moves[1].Speech)
	}
}

func TestRejectedMoveKeepsState(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)

	h.seq.SubmitMove("Ke5", false)
	if err := h.listener.takeErr(); !errors.Is(err, corechess.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	h.seq.SubmitMove("i am bobby fischer", true)
	if err := h.listener.takeErr(); !errors.Is(err, spoken.ErrUnrecognizedPhrase) {
		t.Fatalf("expected ErrUnrecognizedPhrase, got %v", err)
	}
	if h.seq.State() != StateAwaitingPlayerMove || h.game().MoveCount() != 0 {
		t.Fatalf("state %s moves %d", h.seq.State(), h.game().MoveCount())
	}
	if h.engine.callCount() != 0 {
		t.Fatalf("engine should not be asked")
	}
}

func TestMoveOutOfTurn(t *testing.T) {
	h := newHarness(t)
	h.seq.SubmitMove("e4", false)
	if err := h.listener.takeErr(); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("expected ErrNoActiveGame before any game, got %v", err)
	}

	h.seq.NewGame(nchess.Black)
	h.seq.SubmitMove("e5", false)
	if err := h.listener.takeErr(); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
}

func TestUndoOncePerEngineReply(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.play("e4")
	h.engineMoves("e7e5")
	h.play("Nf3")
	h.engineMoves("b8c6")

	h.seq.Undo()
	if err := h.listener.takeErr(); err != nil {
		t.Fatalf("first undo: %v", err)
	}
	if got := strings.Join(h.game().Moves(), " "); got != "e2e4 e7e5" {
		t.Fatalf("after undo %q", got)
	}

	h.seq.Undo()
	if err := h.listener.takeErr(); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("second undo: %v", err)
	}
	if got := strings.Join(h.game().Moves(), " "); got != "e2e4 e7e5" {
		t.Fatalf("history changed by failed undo: %q", got)
	}
	if h.seq.State() != StateAwaitingPlayerMove {
		t.Fatalf("state %s", h.seq.State())
	}

	h.play("d4")
	h.engineMoves("d7d5")
	h.seq.Undo()
	if err := h.listener.takeErr(); err != nil || len(h.game().Moves()) != 2 {
		t.Fatalf("undo after new reply: %v, %v", err, h.game().Moves())
	}
}

func TestUndoWhileEngineThinking(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.play("e4")
	h.seq.Undo()
	if err := h.listener.takeErr(); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
}

func TestStaleEngineReplyDropped(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.Black)
	first := h.game().UUID

	// A second game while the first query is still running.
	h.seq.NewGame(nchess.Black)
	if h.game().UUID == first {
		t.Fatalf("expected a fresh game")
	}
	waitFor(t, func() bool { return h.engine.callCount() == 1 })
	if !h.seq.Inflight() {
		t.Fatalf("first query should still be outstanding")
	}
	time.Sleep(20 * time.Millisecond)
	if h.engine.callCount() != 1 {
		t.Fatalf("second query must wait, calls=%d", h.engine.callCount())
	}

	h.engineMoves("e2e4")
	if h.game().MoveCount() != 0 {
		t.Fatalf("stale reply was applied: %v", h.game().Moves())
	}
	waitFor(t, func() bool { return h.engine.callCount() == 2 })

	h.engineMoves("d2d4")
	if got := strings.Join(h.game().Moves(), " "); got != "d2d4" {
		t.Fatalf("moves %q", got)
	}
	if h.seq.State() != StateAwaitingPlayerMove {
		t.Fatalf("state %s", h.seq.State())
	}
}

func TestEngineStartFailureThenRetry(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.Black)
	h.engine.answers <- answer{err: &corechess.EngineError{Failure: corechess.FailureStart, Path: "stockfish", Err: errors.New("not found")}}
	h.pump()

	if err := h.listener.takeErr(); !errors.Is(err, corechess.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if h.seq.State() != StateAwaitingEngineMove {
		t.Fatalf("state %s", h.seq.State())
	}

	h.seq.Retry()
	h.engineMoves("g1f3")
	if h.seq.State() != StateAwaitingPlayerMove || h.game().MoveCount() != 1 {
		t.Fatalf("state %s moves %d", h.seq.State(), h.game().MoveCount())
	}
}

func TestEngineCrashAbortsGame(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.play("e4")
	h.engine.answers <- answer{err: &corechess.EngineError{Failure: corechess.FailureCrash, Path: "stockfish", Err: errors.New("eof")}}
	h.pump()

	if h.seq.State() != StateGameOver {
		t.Fatalf("state %s", h.seq.State())
	}
	if len(h.listener.overs) != 1 || !strings.Contains(h.listener.overs[0], "aborted") {
		t.Fatalf("outcome %v", h.listener.overs)
	}
	games, err := h.repo.GetRecentGames(context.Background(), 5)
	if err != nil || len(games) != 1 || games[0].Status != string(corechess.StatusAborted) {
		t.Fatalf("archive %v %+v", err, games)
	}

	h.seq.SaveGame()
	if err := h.listener.takeErr(); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("finished games cannot be saved, got %v", err)
	}
}

func TestSaveLoadResumesState(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.play("e4")
	h.engineMoves("e7e5")
	h.play("Nf3")
	h.engineMoves("b8c6")
	h.seq.SaveGame()
	fen := h.game().FEN()

	h.seq.NewGame(nchess.Black)
	h.engineMoves("d2d4")
	h.seq.LoadGame()
	if err := h.listener.takeErr(); err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if h.game().FEN() != fen {
		t.Fatalf("FEN %q, want %q", h.game().FEN(), fen)
	}
	if h.seq.State() != StateAwaitingPlayerMove || h.game().Human != nchess.White {
		t.Fatalf("state %s human %v", h.seq.State(), h.game().Human)
	}

	// Undo still works after a load: the engine made the last move.
	h.seq.Undo()
	if err := h.listener.takeErr(); err != nil || h.game().MoveCount() != 2 {
		t.Fatalf("undo after load: %v (%d moves)", err, h.game().MoveCount())
	}
}

func TestLoadResumesEngineTurn(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.play("e4")
	waitFor(t, func() bool { return h.engine.callCount() == 1 })
	h.seq.SaveGame()
	if err := h.listener.takeErr(); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	h.seq.NewGame(nchess.White)
	h.seq.LoadGame()
	if err := h.listener.takeErr(); err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if h.seq.State() != StateAwaitingEngineMove || !h.seq.Inflight() {
		t.Fatalf("state %s inflight=%v", h.seq.State(), h.seq.Inflight())
	}

	// The reply to the query from before the load belongs to another game.
	h.engineMoves("d7d5")
	if got := strings.Join(h.game().Moves(), " "); got != "e2e4" {
		t.Fatalf("stale reply applied: %q", got)
	}
	waitFor(t, func() bool { return h.engine.callCount() == 2 })
	if got := strings.Join(h.engine.lastCall(), " "); got != "e2e4" {
		t.Fatalf("engine asked about %q", got)
	}

	h.engineMoves("e7e5")
	if h.seq.State() != StateAwaitingPlayerMove {
		t.Fatalf("state %s", h.seq.State())
	}
	if got := strings.Join(h.game().SANMoves(), " "); got != "e4 e5" {
		t.Fatalf("moves %q", got)
	}
}

func TestLoadWithoutSave(t *testing.T) {
	h := newHarness(t)
	h.seq.LoadGame()
	if err := h.listener.takeErr(); !errors.Is(err, ErrNoSavedGame) {
		t.Fatalf("expected ErrNoSavedGame, got %v", err)
	}
	if h.seq.State() != StateIdle {
		t.Fatalf("state %s", h.seq.State())
	}
}

func TestClaimMismatchWarnsButMoveStands(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.Black)
	h.engineMoves("e2e4")
	h.seq.SubmitMove("pawn to e six", true)
	h.engineMoves("d2d4")
	h.seq.SubmitMove("queen h four checkmate", true)

	if len(h.listener.warnings) != 1 {
		t.Fatalf("warnings %v (errors %v)", h.listener.warnings, h.listener.errs)
	}
	if h.game().MoveCount() != 4 || h.seq.State() != StateAwaitingEngineMove {
		t.Fatalf("moves %d state %s", h.game().MoveCount(), h.seq.State())
	}
}

func TestCheckmateEndsGameAndArchives(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.Black)
	h.engineMoves("f2f3")
	h.play("e5")
	h.engineMoves("g2g4")
	h.play("Qh4#")

	if h.seq.State() != StateGameOver {
		t.Fatalf("state %s", h.seq.State())
	}
	if len(h.listener.overs) != 1 || h.listener.overs[0] != "Black wins by checkmate" {
		t.Fatalf("outcome %v", h.listener.overs)
	}
	games, _ := h.repo.GetRecentGames(context.Background(), 5)
	if len(games) != 1 || games[0].Result != "win" || len(games[0].MovesSAN) != 4 {
		t.Fatalf("archive %+v", games)
	}
}

func TestResign(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.play("e4")
	// Resigning while the engine thinks makes its reply stale.
	h.seq.Resign()
	if h.seq.State() != StateGameOver {
		t.Fatalf("state %s", h.seq.State())
	}
	h.engineMoves("e7e5")
	if h.game().MoveCount() != 1 {
		t.Fatalf("reply applied after resign")
	}
	stats, err := h.repo.Stats(context.Background())
	if err != nil || stats.Losses != 1 {
		t.Fatalf("stats %+v %v", stats, err)
	}

	h.seq.Resign()
	if err := h.listener.takeErr(); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("resign twice: %v", err)
	}
}

func TestAutoPlaySpeaksEngineMove(t *testing.T) {
	h := newHarness(t)
	on := true
	h.seq.SetOptions(OptionsUpdate{AutoPlay: &on})
	h.seq.NewGame(nchess.Black)
	h.engineMoves("g1f3")
	if len(h.listener.speech) != 1 || h.listener.speech[0] != "knight to f three" {
		t.Fatalf("speech %v", h.listener.speech)
	}
}

func TestSetOptions(t *testing.T) {
	h := newHarness(t)
	bad := 3
	h.seq.SetOptions(OptionsUpdate{Depth: &bad})
	if err := h.listener.takeErr(); !errors.Is(err, options.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	if h.opts.Current().Depth != corechess.DefaultDepth {
		t.Fatalf("depth changed to %d", h.opts.Current().Depth)
	}

	good := 12
	path := " /usr/games/stockfish "
	h.seq.SetOptions(OptionsUpdate{Depth: &good, EnginePath: &path})
	got := h.listener.noticesOf(NoticeOptions)
	if len(got) != 1 || got[0].Options.Depth != 12 || got[0].Options.EnginePath != "/usr/games/stockfish" {
		t.Fatalf("notices %+v", got)
	}
}

func TestPeekAttachesImages(t *testing.T) {
	h := newHarness(t)
	h.seq.TogglePeek()
	if err := h.listener.takeErr(); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("peek without game: %v", err)
	}

	h.seq.NewGame(nchess.White)
	h.seq.TogglePeek()
	peeks := h.listener.noticesOf(NoticePeek)
	if len(peeks) != 1 || len(peeks[0].Image) == 0 {
		t.Fatalf("peek notices %+v", peeks)
	}
	h.play("e4")
	if len(h.listener.moves[0].Image) == 0 {
		t.Fatalf("move event should carry the board image")
	}
	h.seq.TogglePeek()
	if peeks := h.listener.noticesOf(NoticePeek); len(peeks) != 2 || peeks[1].Image != nil {
		t.Fatalf("peek off notice %+v", peeks)
	}
}

func TestOpeningNoticeOnChange(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.play("e4")
	h.engineMoves("e7e5")
	h.play("Nf3")
	h.engineMoves("b8c6")
	h.play("Bb5")

	openings := h.listener.noticesOf(NoticeOpening)
	if len(openings) == 0 {
		t.Fatalf("no opening notices")
	}
	last := openings[len(openings)-1]
	if !strings.HasPrefix(last.Code, "C") {
		t.Fatalf("Ruy Lopez should be a C code, got %s %s", last.Code, last.Title)
	}
	for i := 1; i < len(openings); i++ {
		if openings[i].Code == openings[i-1].Code {
			t.Fatalf("repeated opening notice %s", openings[i].Code)
		}
	}
}

type fakeSpeech struct {
	recording bool
	text      string
	aborted   int
}

func (f *fakeSpeech) Start(context.Context) error {
	if f.recording {
		return stt.ErrRecognitionActive
	}
	f.recording = true
	return nil
}

func (f *fakeSpeech) Stop(_ context.Context, deliver func(stt.Transcript)) error {
	if !f.recording {
		return stt.ErrNotRecording
	}
	f.recording = false
	go deliver(stt.Transcript{Text: f.text})
	return nil
}

func (f *fakeSpeech) TranscribeFile(_ context.Context, _ string, deliver func(stt.Transcript)) error {
	go deliver(stt.Transcript{Err: stt.ErrNoSpeechDetected})
	return nil
}

func (f *fakeSpeech) Abort() bool {
	was := f.recording
	f.recording = false
	f.aborted++
	return was
}

func (f *fakeSpeech) Recording() bool { return f.recording }

func TestMicToggleSubmitsTranscript(t *testing.T) {
	h := newHarness(t)
	speech := &fakeSpeech{text: "knight g one to f three"}
	h.seq.deps.Speech = speech

	h.seq.ToggleMic()
	if err := h.listener.takeErr(); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("mic without game: %v", err)
	}

	h.seq.NewGame(nchess.White)
	h.seq.ToggleMic()
	if !speech.recording || len(h.listener.noticesOf(NoticeRecording)) != 1 {
		t.Fatalf("recording did not start")
	}
	h.seq.ToggleMic()
	h.pump()
	if got := h.game().SANMoves(); len(got) != 1 || got[0] != "Nf3" {
		t.Fatalf("moves %v (errors %v)", got, h.listener.errs)
	}

	h.engineMoves("e7e5")
	h.seq.ListenFile("silence.wav")
	h.pump()
	if err := h.listener.takeErr(); !errors.Is(err, stt.ErrNoSpeechDetected) {
		t.Fatalf("expected ErrNoSpeechDetected, got %v", err)
	}
	if h.seq.State() != StateAwaitingPlayerMove {
		t.Fatalf("state %s", h.seq.State())
	}

	h.seq.ToggleMic()
	h.seq.CancelMic()
	if speech.recording || len(h.listener.noticesOf(NoticeDiscarded)) != 1 {
		t.Fatalf("cancel did not discard")
	}
}

func TestSpeechUnavailable(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.seq.ToggleMic()
	if err := h.listener.takeErr(); !errors.Is(err, stt.ErrSpeechUnavailable) {
		t.Fatalf("expected ErrSpeechUnavailable, got %v", err)
	}
}

func TestHistoryAndPGN(t *testing.T) {
	h := newHarness(t)
	h.seq.ExportPGN()
	if err := h.listener.takeErr(); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("pgn without game: %v", err)
	}
	h.seq.NewGame(nchess.White)
	h.play("e4")
	h.seq.ExportPGN()
	pgn := h.listener.noticesOf(NoticePGN)
	if len(pgn) != 1 || !strings.Contains(pgn[0].PGN, "1. e4") {
		t.Fatalf("pgn %+v", pgn)
	}
	h.seq.Resign()
	h.seq.History()
	hist := h.listener.noticesOf(NoticeHistory)
	if len(hist) != 1 || len(hist[0].History) != 1 || hist[0].Stats.GamesPlayed != 1 {
		t.Fatalf("history %+v", hist)
	}
}

func TestArchivedPGN(t *testing.T) {
	h := newHarness(t)
	h.seq.NewGame(nchess.White)
	h.play("e4")
	h.seq.Resign()
	games, err := h.repo.GetRecentGames(context.Background(), 1)
	if err != nil || len(games) != 1 {
		t.Fatalf("archive %v %+v", err, games)
	}

	h.seq.NewGame(nchess.White)
	h.seq.ArchivedPGN(games[0].ID)
	pgn := h.listener.noticesOf(NoticePGN)
	if len(pgn) != 1 || !strings.Contains(pgn[0].PGN, "1. e4") {
		t.Fatalf("pgn %+v", pgn)
	}

	h.seq.ArchivedPGN(games[0].ID + 1)
	if err := h.listener.takeErr(); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
