package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func tone(n int, amp float64) Clip {
	samples := make([]int, n)
	for i := range samples {
		samples[i] = int(amp * math.Sin(float64(i)*2*math.Pi*440/DefaultSampleRate))
	}
	return clipFromSamples(samples, DefaultSampleRate, 1)
}

func TestWAVFileRoundTrip(t *testing.T) {
	clip := tone(DefaultSampleRate/2, 8000)
	path := filepath.Join(t.TempDir(), "nested", "move.wav")
	if err := WriteWAVFile(path, clip); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}
	got, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("ReadWAVFile: %v", err)
	}
	if got.SampleRate != DefaultSampleRate || got.Channels != 1 {
		t.Fatalf("format %d/%d", got.SampleRate, got.Channels)
	}
	if string(got.PCM) != string(clip.PCM) {
		t.Fatalf("pcm differs: %d vs %d bytes", len(got.PCM), len(clip.PCM))
	}
	if got.Duration() != 500*time.Millisecond {
		t.Fatalf("duration %v", got.Duration())
	}
}

func TestWAVBytesHasRIFFHeader(t *testing.T) {
	b, err := WAVBytes(tone(160, 1000))
	if err != nil {
		t.Fatalf("WAVBytes: %v", err)
	}
	if len(b) != 44+320 || string(b[:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatalf("unexpected header %q (len %d)", b[:12], len(b))
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.wav")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWAVFile(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSilent(t *testing.T) {
	if !(Clip{}).Silent(0) {
		t.Fatalf("empty clip should be silent")
	}
	if !tone(1600, 30).Silent(0) {
		t.Fatalf("low hum should be silent")
	}
	if tone(1600, 6000).Silent(0) {
		t.Fatalf("loud tone should not be silent")
	}
}

func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFFmpegCaptureStop(t *testing.T) {
	bin := fakeFFmpeg(t, `printf 'abcd'; exec sleep 5`)
	c := NewFFmpegCapture(bin, CaptureConfig{}, nil)

	rec, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	clip, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if string(clip.PCM) != "abcd" || clip.SampleRate != DefaultSampleRate {
		t.Fatalf("clip %+v", clip)
	}
}

func TestFFmpegCaptureEarlyExit(t *testing.T) {
	bin := fakeFFmpeg(t, `echo "no such device" >&2; exit 1`)
	c := NewFFmpegCapture(bin, CaptureConfig{InputDevice: "hw:9"}, nil)

	_, err := c.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no such device") {
		t.Fatalf("expected startup failure with stderr, got %v", err)
	}
}
