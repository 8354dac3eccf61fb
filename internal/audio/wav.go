package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcmFormat = 1

// EncodeWAV writes clip as a 16-bit PCM WAV stream.
func EncodeWAV(w io.WriteSeeker, clip Clip) error {
	rate, channels := clip.SampleRate, clip.Channels
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if channels <= 0 {
		channels = DefaultChannels
	}

	enc := wav.NewEncoder(w, rate, 16, channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           clip.Samples(),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: finish header: %w", err)
	}
	return nil
}

// WAVBytes encodes clip in memory, for uploads.
func WAVBytes(clip Clip) ([]byte, error) {
	ws := &seekBuffer{}
	if err := EncodeWAV(ws, clip); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// WriteWAVFile writes clip to path, creating parent directories.
func WriteWAVFile(path string, clip Clip) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("wav: create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wav: create %s: %w", path, err)
	}
	if err := EncodeWAV(f, clip); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DecodeWAV reads a PCM WAV stream and returns it as 16-bit mono.
func DecodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if dec == nil || !dec.IsValidFile() {
		return Clip{}, errors.New("wav: not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("wav: %w", err)
	}

	channels := int(dec.NumChans)
	if channels <= 0 {
		channels = 1
	}
	shift := int(dec.BitDepth) - 16

	// first channel only
	mono := make([]int, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		s := buf.Data[i]
		switch {
		case shift > 0:
			s >>= shift
		case shift < 0:
			// 8-bit WAV is unsigned
			s = (s - 128) << -shift
		}
		mono = append(mono, s)
	}
	return clipFromSamples(mono, int(dec.SampleRate), 1), nil
}

func ReadWAVFile(path string) (Clip, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("wav: read %s: %w", path, err)
	}
	return DecodeWAV(bytes.NewReader(b))
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if end := s.pos + len(p); end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(s.pos) + offset
	case io.SeekEnd:
		next = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("seek: invalid whence")
	}
	if next < 0 {
		return 0, errors.New("seek: negative position")
	}
	s.pos = int(next)
	return next, nil
}
