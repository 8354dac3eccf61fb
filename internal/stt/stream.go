package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/blindfold-chess/internal/audio"
)

const (
	streamChunkBytes = 4096
	streamDialWait   = 10 * time.Second
	streamResultWait = 15 * time.Second
)

// Stream sends the clip over a Deepgram-style listen websocket: binary PCM
// frames, then a CloseStream message, then JSON results until the server
// closes.
type Stream struct {
	baseURL string
	apiKey  string
	model   string
	logger  *zap.Logger
}

func NewStream(baseURL, apiKey string, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{baseURL: strings.TrimSpace(baseURL), apiKey: apiKey, model: "nova-2", logger: logger}
}

type streamResult struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (r streamResult) transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
}

func (s *Stream) listenURL(clip audio.Clip) (string, error) {
	base := s.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasSuffix(base, "/listen") {
		base += "/listen"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("stream: invalid url: %w", err)
	}
	q := u.Query()
	q.Set("model", s.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(clip.SampleRate))
	q.Set("channels", strconv.Itoa(clip.Channels))
	q.Set("interim_results", "false")
	q.Set("punctuate", "false")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Stream) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if clip.Silent(0) {
		return "", ErrNoSpeechDetected
	}
	if clip.SampleRate <= 0 {
		clip.SampleRate = audio.DefaultSampleRate
	}
	if clip.Channels <= 0 {
		clip.Channels = audio.DefaultChannels
	}
	wsURL, err := s.listenURL(clip)
	if err != nil {
		return "", err
	}

	hdr := http.Header{}
	if s.apiKey != "" {
		hdr.Set("Authorization", "Token "+s.apiKey)
	}
	dialCtx, cancel := context.WithTimeout(ctx, streamDialWait)
	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{HTTPHeader: hdr})
	cancel()
	if err != nil {
		return "", fmt.Errorf("stream: connect: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	for off := 0; off < len(clip.PCM); off += streamChunkBytes {
		end := min(off+streamChunkBytes, len(clip.PCM))
		if err := conn.Write(ctx, websocket.MessageBinary, clip.PCM[off:end]); err != nil {
			return "", fmt.Errorf("stream: send audio: %w", err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return "", fmt.Errorf("stream: close stream: %w", err)
	}

	readCtx, cancelRead := context.WithTimeout(ctx, streamResultWait)
	defer cancelRead()

	var finals []string
	for {
		var res streamResult
		err := wsjson.Read(readCtx, conn, &res)
		if err != nil {
			if isNormalClose(err) {
				break
			}
			if len(finals) > 0 && readCtx.Err() != nil {
				// Server kept the socket open after its last result.
				break
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("stream: read result: %w", err)
		}
		if strings.EqualFold(res.Type, "Error") {
			msg := strings.TrimSpace(res.Message)
			if msg == "" {
				msg = "provider returned an unknown error"
			}
			return "", errors.New("stream: " + msg)
		}
		if res.IsFinal || res.SpeechFinal {
			if text := res.transcript(); text != "" {
				finals = append(finals, text)
			}
		}
	}

	s.logger.Debug("stt_stream_done", zap.Int("segments", len(finals)))
	return cleanText(strings.Join(finals, " "))
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return true
	}
	return false
}
