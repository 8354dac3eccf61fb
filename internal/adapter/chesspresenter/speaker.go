package chesspresenter

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const speakTimeout = 15 * time.Second

// Speaker reads text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// CommandSpeaker runs an external synthesizer with the text as its last
// argument, e.g. TTS_COMMAND="espeak-ng -s 150".
type CommandSpeaker struct {
	name   string
	args   []string
	logger *zap.Logger
}

// NewCommandSpeaker returns nil when command is empty.
func NewCommandSpeaker(command string, logger *zap.Logger) *CommandSpeaker {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandSpeaker{name: fields[0], args: fields[1:], logger: logger}
}

func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, speakTimeout)
	defer cancel()

	args := append(append([]string(nil), s.args...), text)
	started := time.Now()
	out, err := exec.CommandContext(ctx, s.name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("tts %s: %w: %s", s.name, err, strings.TrimSpace(string(out)))
	}
	s.logger.Debug("tts_spoken", zap.Int("chars", len(text)), zap.Duration("elapsed", time.Since(started)))
	return nil
}
