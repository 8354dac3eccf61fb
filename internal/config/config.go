package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDisplayWindow = 5 * time.Second
	defaultHistoryLimit  = 10
)

// STT provider names accepted by STT_PROVIDER.
const (
	STTWhisperCLI  = "whisper-cli"
	STTWhisperHTTP = "whisper-http"
	STTStream      = "stream"
	STTNone        = "none"
)

type AppConfig struct {
	DataDir     string
	OptionsFile string
	SaveFile    string
	PeekFile    string
	MessagesDir string

	// Used when the options file leaves the engine path empty.
	StockfishPath string

	RedisURL    string
	DatabaseURL string

	HistoryLimit  int
	DisplayWindow time.Duration

	FFmpegPath       string
	AudioInputFormat string
	AudioInputDevice string

	STTProvider    string
	WhisperCommand string
	WhisperModel   string
	WhisperHTTPURL string
	STTStreamURL   string
	STTAPIKey      string

	TTSCommand string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HistoryLimit:     defaultHistoryLimit,
		DisplayWindow:    defaultDisplayWindow,
		FFmpegPath:       "ffmpeg",
		AudioInputFormat: "pulse",
		AudioInputDevice: "default",
		STTProvider:      STTWhisperCLI,
		WhisperCommand:   "whisper-cli",
	}

	cfg.DataDir = strings.TrimSpace(os.Getenv("BLINDFOLD_DATA_DIR"))
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	cfg.OptionsFile = envOrDefault("BLINDFOLD_OPTIONS_FILE", filepath.Join(cfg.DataDir, "options.yaml"))
	cfg.SaveFile = envOrDefault("BLINDFOLD_SAVE_FILE", filepath.Join(cfg.DataDir, "saved_game.json"))
	cfg.PeekFile = envOrDefault("BLINDFOLD_PEEK_FILE", filepath.Join(cfg.DataDir, "board.png"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("BLINDFOLD_MESSAGES_DIR"))

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("BLINDFOLD_HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BLINDFOLD_DISPLAY_WINDOW")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, errors.New("BLINDFOLD_DISPLAY_WINDOW must be a positive duration like 5s")
		}
		cfg.DisplayWindow = d
	}

	cfg.FFmpegPath = envOrDefault("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.AudioInputFormat = envOrDefault("AUDIO_INPUT_FORMAT", cfg.AudioInputFormat)
	cfg.AudioInputDevice = envOrDefault("AUDIO_INPUT_DEVICE", cfg.AudioInputDevice)

	cfg.STTProvider = strings.ToLower(envOrDefault("STT_PROVIDER", cfg.STTProvider))
	cfg.WhisperCommand = envOrDefault("WHISPER_COMMAND", cfg.WhisperCommand)
	cfg.WhisperModel = strings.TrimSpace(os.Getenv("WHISPER_MODEL"))
	cfg.WhisperHTTPURL = strings.TrimSpace(os.Getenv("WHISPER_HTTP_URL"))
	cfg.STTStreamURL = strings.TrimSpace(os.Getenv("STT_STREAM_URL"))
	cfg.STTAPIKey = strings.TrimSpace(os.Getenv("STT_API_KEY"))
	cfg.TTSCommand = strings.TrimSpace(os.Getenv("TTS_COMMAND"))

	switch cfg.STTProvider {
	case STTWhisperCLI, STTNone:
	case STTWhisperHTTP:
		if cfg.WhisperHTTPURL == "" {
			return nil, errors.New("WHISPER_HTTP_URL is required for STT_PROVIDER=whisper-http")
		}
	case STTStream:
		if cfg.STTStreamURL == "" {
			return nil, errors.New("STT_STREAM_URL is required for STT_PROVIDER=stream")
		}
	default:
		return nil, errors.New("STT_PROVIDER must be one of whisper-cli, whisper-http, stream, none")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "blindfold-chess")
	}
	return ".blindfold"
}
