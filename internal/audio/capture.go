package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	startupCheck = 250 * time.Millisecond
	stopGrace    = 1200 * time.Millisecond
)

// CaptureConfig selects the ffmpeg input, e.g. pulse/default or alsa/hw:0.
type CaptureConfig struct {
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

// Capturer starts microphone recordings.
type Capturer interface {
	Start(ctx context.Context) (Recording, error)
}

// Recording is one capture in progress. Stop ends it and returns the audio;
// Abort ends it and drops the audio.
type Recording interface {
	Stop() (Clip, error)
	Abort()
}

// FFmpegCapture records raw s16le PCM from ffmpeg's stdout.
type FFmpegCapture struct {
	command string
	cfg     CaptureConfig
	logger  *zap.Logger
}

func NewFFmpegCapture(command string, cfg CaptureConfig, logger *zap.Logger) *FFmpegCapture {
	if command == "" {
		command = "ffmpeg"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = DefaultChannels
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegCapture{command: command, cfg: cfg, logger: logger}
}

func (c *FFmpegCapture) args() []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.cfg.InputFormat,
		"-i", c.cfg.InputDevice,
		"-ac", strconv.Itoa(c.cfg.Channels),
		"-ar", strconv.Itoa(c.cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// Start launches ffmpeg and fails if it exits within the startup check.
func (c *FFmpegCapture) Start(ctx context.Context) (Recording, error) {
	cmd := exec.CommandContext(ctx, c.command, c.args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	rec := &ffmpegRecording{
		process: cmd.Process,
		stderr:  &stderr,
		done:    make(chan error, 1),
		rate:    c.cfg.SampleRate,
		chans:   c.cfg.Channels,
	}
	// Drain stdout fully before Wait so no captured bytes are lost.
	go func() {
		_, copyErr := io.Copy(&rec.pcm, stdout)
		waitErr := cmd.Wait()
		if waitErr == nil {
			waitErr = copyErr
		}
		rec.done <- waitErr
		close(rec.done)
	}()

	select {
	case err, ok := <-rec.done:
		msg := trimmed(stderr.String())
		if ok && err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffmpeg exited before capture started: %s", msg)
	case <-time.After(startupCheck):
	}

	c.logger.Debug("audio_capture_started",
		zap.String("format", c.cfg.InputFormat),
		zap.String("device", c.cfg.InputDevice),
		zap.Int("sample_rate", c.cfg.SampleRate),
	)
	return rec, nil
}

type ffmpegRecording struct {
	process *os.Process
	stderr  *bytes.Buffer
	done    chan error
	pcm     bytes.Buffer
	rate    int
	chans   int

	stopOnce sync.Once
	stopErr  error
}

func (r *ffmpegRecording) Stop() (Clip, error) {
	r.halt()
	if r.stopErr != nil {
		return Clip{}, r.stopErr
	}
	return Clip{SampleRate: r.rate, Channels: r.chans, PCM: r.pcm.Bytes()}, nil
}

func (r *ffmpegRecording) Abort() {
	r.halt()
	r.pcm.Reset()
}

// halt interrupts ffmpeg so it flushes, then kills it after the grace period.
func (r *ffmpegRecording) halt() {
	r.stopOnce.Do(func() {
		if r.process != nil {
			_ = r.process.Signal(os.Interrupt)
		}
		select {
		case err, ok := <-r.done:
			if ok {
				r.stopErr = normalizeStopErr(err)
			}
		case <-time.After(stopGrace):
			if r.process != nil {
				_ = r.process.Kill()
			}
			if err, ok := <-r.done; ok {
				r.stopErr = normalizeStopErr(err)
			}
		}
		if r.stopErr != nil && r.stderr.Len() > 0 {
			r.stopErr = fmt.Errorf("%w: %s", r.stopErr, trimmed(r.stderr.String()))
		}
	})
}

// An interrupted ffmpeg exits non-zero; that is the normal way to stop it.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimmed(s string) string {
	return string(bytes.TrimSpace([]byte(s)))
}
