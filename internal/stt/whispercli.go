package stt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/park285/blindfold-chess/internal/audio"
)

// WhisperCLI runs a whisper.cpp style binary on a temporary WAV file.
type WhisperCLI struct {
	command  string
	model    string
	language string
	logger   *zap.Logger
}

func NewWhisperCLI(command, model string, logger *zap.Logger) *WhisperCLI {
	if command == "" {
		command = "whisper-cli"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhisperCLI{command: command, model: model, language: "en", logger: logger}
}

func (w *WhisperCLI) args(wavPath string) []string {
	args := []string{"-f", wavPath, "-l", w.language, "-nt", "-np"}
	if w.model != "" {
		args = append([]string{"-m", w.model}, args...)
	}
	return args
}

func (w *WhisperCLI) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if clip.Silent(0) {
		return "", ErrNoSpeechDetected
	}

	dir, err := os.MkdirTemp("", "blindfold-stt-")
	if err != nil {
		return "", fmt.Errorf("whisper: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "move.wav")
	if err := audio.WriteWAVFile(wavPath, clip); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, w.command, w.args(wavPath)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("whisper: run %s: %w: %s", w.command, err, bytes.TrimSpace(stderr.Bytes()))
	}

	text, err := cleanText(stdout.String())
	w.logger.Debug("stt_whisper_cli_done",
		zap.Duration("clip", clip.Duration()),
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("empty", err != nil),
	)
	return text, err
}
