package stt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/blindfold-chess/internal/audio"
)

var (
	ErrRecognitionActive = errors.New("speech recognition already active")
	ErrNotRecording      = errors.New("no recording in progress")
	ErrSpeechUnavailable = errors.New("speech recognition is not configured")
)

// Recognizer owns at most one recording or transcription at a time. Results
// are handed to a deliver callback from a worker goroutine, exactly once per
// Stop or TranscribeFile, unless Abort discards them first.
type Recognizer struct {
	capture     audio.Capturer
	transcriber Transcriber
	logger      *zap.Logger

	mu        sync.Mutex
	recording audio.Recording
	stopRec   context.CancelFunc
	pending   context.CancelFunc
	gen       uint64
}

func NewRecognizer(capture audio.Capturer, transcriber Transcriber, logger *zap.Logger) *Recognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recognizer{capture: capture, transcriber: transcriber, logger: logger}
}

// Active reports whether a recording or transcription is in progress.
func (r *Recognizer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording != nil || r.pending != nil
}

// Recording reports whether the microphone is open.
func (r *Recognizer) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording != nil
}

// Start opens the microphone.
func (r *Recognizer) Start(ctx context.Context) error {
	if r.capture == nil || r.transcriber == nil {
		return ErrSpeechUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording != nil || r.pending != nil {
		return ErrRecognitionActive
	}

	recCtx, cancel := context.WithCancel(ctx)
	rec, err := r.capture.Start(recCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("start recording: %w", err)
	}
	r.recording = rec
	r.stopRec = cancel
	r.logger.Info("stt_recording_started")
	return nil
}

// Stop closes the microphone and transcribes the recording in the
// background.
func (r *Recognizer) Stop(ctx context.Context, deliver func(Transcript)) error {
	r.mu.Lock()
	rec, cancelRec := r.recording, r.stopRec
	if rec == nil {
		r.mu.Unlock()
		return ErrNotRecording
	}
	r.recording, r.stopRec = nil, nil
	workCtx, gen := r.beginLocked(ctx)
	r.mu.Unlock()

	go func() {
		clip, err := rec.Stop()
		cancelRec()
		if err != nil {
			r.finish(gen, deliver, Transcript{Err: fmt.Errorf("stop recording: %w", err)})
			return
		}
		r.logger.Debug("stt_recording_stopped", zap.Duration("clip", clip.Duration()))
		r.finish(gen, deliver, r.transcribe(workCtx, clip))
	}()
	return nil
}

// TranscribeFile transcribes a WAV file in the background.
func (r *Recognizer) TranscribeFile(ctx context.Context, path string, deliver func(Transcript)) error {
	if r.transcriber == nil {
		return ErrSpeechUnavailable
	}
	r.mu.Lock()
	if r.recording != nil || r.pending != nil {
		r.mu.Unlock()
		return ErrRecognitionActive
	}
	workCtx, gen := r.beginLocked(ctx)
	r.mu.Unlock()

	go func() {
		clip, err := audio.ReadWAVFile(path)
		if err != nil {
			r.finish(gen, deliver, Transcript{Err: err})
			return
		}
		r.finish(gen, deliver, r.transcribe(workCtx, clip))
	}()
	return nil
}

// Abort discards the current recording or transcription. It reports whether
// there was anything to discard.
func (r *Recognizer) Abort() bool {
	r.mu.Lock()
	rec, cancelRec, pending := r.recording, r.stopRec, r.pending
	r.recording, r.stopRec, r.pending = nil, nil, nil
	r.gen++
	r.mu.Unlock()

	if pending != nil {
		pending()
	}
	if rec != nil {
		rec.Abort()
		cancelRec()
	}
	aborted := rec != nil || pending != nil
	if aborted {
		r.logger.Info("stt_recognition_aborted")
	}
	return aborted
}

func (r *Recognizer) beginLocked(ctx context.Context) (context.Context, uint64) {
	workCtx, cancel := context.WithCancel(ctx)
	r.gen++
	r.pending = cancel
	return workCtx, r.gen
}

func (r *Recognizer) transcribe(ctx context.Context, clip audio.Clip) Transcript {
	text, err := r.transcriber.Transcribe(ctx, clip)
	if err != nil {
		return Transcript{Err: err}
	}
	return Transcript{Text: text}
}

// finish delivers unless the work was aborted in the meantime.
func (r *Recognizer) finish(gen uint64, deliver func(Transcript), t Transcript) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	cancel := r.pending
	r.pending = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if t.Err != nil && !errors.Is(t.Err, ErrNoSpeechDetected) {
		r.logger.Warn("stt_transcription_failed", zap.Error(t.Err))
	}
	if deliver != nil {
		deliver(t)
	}
}
