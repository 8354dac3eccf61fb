package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/blindfold-chess/internal/audio"
)

const defaultHTTPTimeout = 30 * time.Second

// WhisperHTTP posts the clip to a whisper.cpp server's /inference endpoint.
type WhisperHTTP struct {
	endpoint string
	apiKey   string
	http     *fasthttp.Client
	timeout  time.Duration
	logger   *zap.Logger
}

type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// NewWhisperHTTP accepts either the server root or the full inference URL.
func NewWhisperHTTP(baseURL, apiKey string, logger *zap.Logger) *WhisperHTTP {
	endpoint := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(endpoint, "/inference") {
		endpoint += "/inference"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhisperHTTP{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &fasthttp.Client{ReadTimeout: defaultHTTPTimeout, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		timeout:  defaultHTTPTimeout,
		logger:   logger,
	}
}

func (w *WhisperHTTP) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if clip.Silent(0) {
		return "", ErrNoSpeechDetected
	}
	wavBytes, err := audio.WAVBytes(clip)
	if err != nil {
		return "", err
	}
	body, contentType, err := multipartBody(wavBytes)
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(w.endpoint)
	req.Header.SetContentType(contentType)
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}
	req.SetBody(body)

	if err := w.http.DoDeadline(req, resp, w.deadline(ctx)); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("whisper http: request failed: %w", err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return "", fmt.Errorf("whisper http: status=%d body=%s", status, truncate(string(resp.Body()), 256))
	}

	var out inferenceResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("whisper http: decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("whisper http: %s", out.Error)
	}
	w.logger.Debug("stt_whisper_http_done", zap.Int("bytes", len(wavBytes)))
	return cleanText(out.Text)
}

func (w *WhisperHTTP) deadline(ctx context.Context) time.Time {
	own := time.Now().Add(w.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(own) {
		return dl
	}
	return own
}

func multipartBody(wavBytes []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "move.wav")
	if err != nil {
		return nil, "", fmt.Errorf("whisper http: form file: %w", err)
	}
	if _, err := part.Write(wavBytes); err != nil {
		return nil, "", fmt.Errorf("whisper http: form file: %w", err)
	}
	for k, v := range map[string]string{"response_format": "json", "temperature": "0.0"} {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("whisper http: form field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("whisper http: close form: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
