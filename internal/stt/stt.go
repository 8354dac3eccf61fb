package stt

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/park285/blindfold-chess/internal/audio"
)

// ErrNoSpeechDetected means the recording held nothing to transcribe.
var ErrNoSpeechDetected = errors.New("no speech detected")

// Transcriber turns a 16 kHz mono clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip audio.Clip) (string, error)
}

// Transcript is the single completion of a recognition.
type Transcript struct {
	Text string
	Err  error
}

// whisper marks silence and noise with bracketed or parenthesised tags.
var nonSpeechTag = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// cleanText strips non-speech tags and returns ErrNoSpeechDetected when
// nothing is left.
func cleanText(raw string) (string, error) {
	text := nonSpeechTag.ReplaceAllString(raw, " ")
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", ErrNoSpeechDetected
	}
	return text, nil
}
