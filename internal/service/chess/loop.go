package chess

import (
	"context"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/blindfold-chess/internal/stt"
)

const inboxSize = 32

// CmdMove submits a move in SAN or coordinates, or a spoken phrase.
type CmdMove struct {
	Text   string
	Spoken bool
}

// Other commands accepted by Loop.Post.
type (
	CmdNewGame     struct{ Side nchess.Color }
	CmdUndo        struct{}
	CmdResign      struct{}
	CmdSave        struct{}
	CmdLoad        struct{}
	CmdRetry       struct{}
	CmdTogglePeek  struct{}
	CmdSetOptions  struct{ Update OptionsUpdate }
	CmdShowOptions struct{}
	CmdStatus      struct{}
	CmdPGN         struct{}
	CmdArchivedPGN struct{ ID int64 }
	CmdHistory     struct{}
	CmdMicToggle   struct{}
	CmdMicCancel   struct{}
	CmdListenFile  struct{ Path string }
)

type engineReply struct {
	gen      uint64
	gameUUID string
	move     string
	err      error
	elapsed  time.Duration
}

type transcriptMsg struct {
	Transcript stt.Transcript
}

// Loop owns the sequencer and handles one message at a time from its inbox.
// User commands, engine replies and transcripts all arrive the same way.
type Loop struct {
	seq    *Sequencer
	inbox  chan any
	done   chan struct{}
	logger *zap.Logger
}

func NewLoop(deps Deps, listener Listener, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		inbox:  make(chan any, inboxSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	l.seq = NewSequencer(deps, listener, l.Post, logger)
	return l
}

// Post queues msg. It returns false once the loop has stopped.
func (l *Loop) Post(msg any) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- msg:
		return true
	case <-l.done:
		return false
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Run processes messages until ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	l.seq.ctx = ctx
	l.logger.Info("loop_started")
	for {
		select {
		case <-ctx.Done():
			l.seq.cancelSpeech()
			l.logger.Info("loop_stopped")
			return nil
		case msg := <-l.inbox:
			l.seq.Handle(msg)
		}
	}
}

// Handle dispatches one message.
func (s *Sequencer) Handle(msg any) {
	switch m := msg.(type) {
	case CmdNewGame:
		s.NewGame(m.Side)
	case CmdMove:
		s.SubmitMove(m.Text, m.Spoken)
	case CmdUndo:
		s.Undo()
	case CmdResign:
		s.Resign()
	case CmdSave:
		s.SaveGame()
	case CmdLoad:
		s.LoadGame()
	case CmdRetry:
		s.Retry()
	case CmdTogglePeek:
		s.TogglePeek()
	case CmdSetOptions:
		s.SetOptions(m.Update)
	case CmdShowOptions:
		s.ShowOptions()
	case CmdStatus:
		s.Status()
	case CmdPGN:
		s.ExportPGN()
	case CmdArchivedPGN:
		s.ArchivedPGN(m.ID)
	case CmdHistory:
		s.History()
	case CmdMicToggle:
		s.ToggleMic()
	case CmdMicCancel:
		s.CancelMic()
	case CmdListenFile:
		s.ListenFile(m.Path)
	case engineReply:
		s.HandleEngineReply(m)
	case transcriptMsg:
		s.HandleTranscript(m.Transcript)
	default:
		s.logger.Warn("loop_unknown_message", zap.Any("message", msg))
	}
}
