package chesspresenter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	svc "github.com/park285/blindfold-chess/internal/service/chess"
)

const defaultDisplayWindow = 5 * time.Second

type Config struct {
	// PeekFile receives the board PNG while peek is on.
	PeekFile string
	// DisplayWindow is how long the last-move banner stays in the prompt.
	DisplayWindow time.Duration
	// Speaker may be nil.
	Speaker Speaker
}

// Presenter is the terminal view. It turns sequencer notifications into
// lines on out and keeps the prompt state the REPL reads.
type Presenter struct {
	out      io.Writer
	format   *Formatter
	speaker  Speaker
	peekFile string
	window   time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	state     svc.State
	input     bool
	busy      bool
	banner    string
	bannerGen uint64

	speakMu sync.Mutex
}

var _ svc.Listener = (*Presenter)(nil)

func NewPresenter(out io.Writer, format *Formatter, cfg Config, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DisplayWindow <= 0 {
		cfg.DisplayWindow = defaultDisplayWindow
	}
	return &Presenter{
		out:      out,
		format:   format,
		speaker:  cfg.Speaker,
		peekFile: cfg.PeekFile,
		window:   cfg.DisplayWindow,
		logger:   logger,
	}
}

func (p *Presenter) println(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}

// Prompt is the REPL prompt: the move banner while it is fresh, and a marker
// while the engine is thinking.
func (p *Presenter) Prompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var sb strings.Builder
	if p.banner != "" {
		sb.WriteString("[")
		sb.WriteString(p.banner)
		sb.WriteString("] ")
	}
	if p.busy {
		sb.WriteString("(thinking) ")
	}
	sb.WriteString("> ")
	return sb.String()
}

// InputEnabled reports whether the last turn change handed the move to the
// player.
func (p *Presenter) InputEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input
}

// MoveBlocked reports whether a move entered now would be refused because
// the engine has the move.
func (p *Presenter) MoveBlocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.input {
		return false
	}
	return p.state == svc.StateAwaitingEngineMove || p.state == svc.StateProcessingEngineMove
}

func (p *Presenter) State() svc.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Presenter) StateChanged(s svc.State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.logger.Debug("view_state", zap.String("state", s.String()))
}

func (p *Presenter) TurnChanged(t svc.Turn) {
	p.mu.Lock()
	p.input = t.InputEnabled()
	p.mu.Unlock()
	if t == svc.TurnPlayer {
		p.println(p.format.PlayerTurn())
	}
}

func (p *Presenter) Busy(thinking bool) {
	p.mu.Lock()
	p.busy = thinking
	p.mu.Unlock()
	if thinking {
		p.println(p.format.Thinking())
	}
}

func (p *Presenter) MoveMade(ev svc.MoveEvent) {
	m := ToDTOMove(ev)
	p.println(p.format.Move(m))
	p.showBanner(p.format.Banner(m))
	if len(m.BoardImage) > 0 {
		p.writePeek(m.BoardImage, false)
	}
}

func (p *Presenter) showBanner(text string) {
	p.mu.Lock()
	p.bannerGen++
	gen := p.bannerGen
	p.banner = text
	p.mu.Unlock()
	time.AfterFunc(p.window, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.bannerGen == gen {
			p.banner = ""
		}
	})
}

func (p *Presenter) Warning(message string) {
	p.println(p.format.Warning(message))
}

func (p *Presenter) Error(err error) {
	de := ToDomainError(err)
	p.logger.Debug("view_error", zap.String("code", de.Code), zap.Bool("retryable", de.Retryable), zap.Error(err))
	p.println(p.format.Error(de))
}

func (p *Presenter) GameOver(outcome string, view svc.GameView) {
	p.mu.Lock()
	p.input = false
	p.busy = false
	p.mu.Unlock()
	p.println(p.format.GameOver(outcome, ToDTOState(view)))
}

// Speak reads text in the background. Utterances never overlap.
func (p *Presenter) Speak(text string) {
	if p.speaker == nil {
		return
	}
	go func() {
		p.speakMu.Lock()
		defer p.speakMu.Unlock()
		if err := p.speaker.Speak(context.Background(), text); err != nil {
			p.logger.Warn("tts_failed", zap.Error(err))
		}
	}()
}

func (p *Presenter) Notice(n svc.Notice) {
	switch n.Kind {
	case svc.NoticeStarted:
		p.println(p.format.Start(ToDTOState(n.View), false))
	case svc.NoticeResumed:
		p.println(p.format.Start(ToDTOState(n.View), true))
	case svc.NoticeSaved:
		p.println(p.format.Saved())
	case svc.NoticeUndone:
		p.println(p.format.Undone())
	case svc.NoticeOptions:
		p.println(p.format.Options(ToDTOOptions(n.Options), false))
	case svc.NoticeRecording:
		p.println(p.format.Recording())
	case svc.NoticeTranscribing:
		p.println(p.format.Transcribing())
	case svc.NoticeDiscarded:
		p.println(p.format.Discarded())
	case svc.NoticeHeard:
		p.println(p.format.Heard(n.Phrase, n.SAN))
	case svc.NoticeOpening:
		p.println(p.format.Opening(n.Code, n.Title))
	case svc.NoticePeek:
		if len(n.Image) == 0 {
			p.println(p.format.PeekHidden())
			return
		}
		p.writePeek(n.Image, true)
	case svc.NoticeStatus:
		p.println(p.format.Status(ToDTOState(n.View)))
	case svc.NoticePGN:
		p.println(n.PGN)
	case svc.NoticeHistory:
		p.println(p.format.History(ToDTOGames(n.History), ToDTOStats(n.Stats)))
	default:
		p.logger.Debug("view_notice_ignored", zap.String("kind", string(n.Kind)))
	}
}

func (p *Presenter) writePeek(img []byte, announce bool) {
	if p.peekFile == "" {
		return
	}
	if err := writeFile(p.peekFile, img); err != nil {
		p.logger.Warn("peek_write_failed", zap.String("path", p.peekFile), zap.Error(err))
		p.println(p.format.PeekFailed(err))
		return
	}
	if announce {
		p.println(p.format.PeekWritten(p.peekFile))
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
