package chessbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/blindfold-chess/internal/adapter/chesspresenter"
	"github.com/park285/blindfold-chess/internal/audio"
	corechess "github.com/park285/blindfold-chess/internal/chess"
	"github.com/park285/blindfold-chess/internal/config"
	"github.com/park285/blindfold-chess/internal/msgcat"
	"github.com/park285/blindfold-chess/internal/options"
	svcchess "github.com/park285/blindfold-chess/internal/service/chess"
	"github.com/park285/blindfold-chess/internal/stt"
)

const (
	startupTimeout = 5 * time.Second
	boardSquare    = 64
)

// Deps is everything the terminal front-end needs. Close releases the
// engine process and any connections.
type Deps struct {
	Loop      *svcchess.Loop
	Presenter *chesspresenter.Presenter
	Formatter *chesspresenter.Formatter
	Options   *options.Store
	Engine    *corechess.Engine

	closers []io.Closer
}

func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func New(cfg *config.AppConfig, out io.Writer, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Formatter = chesspresenter.NewFormatter(catalog)

	d.Options = options.NewStore(options.NewFileStore(cfg.OptionsFile), cfg.StockfishPath, logger)
	if _, err := d.Options.Load(ctx); err != nil {
		return nil, err
	}

	slot, err := openSlot(ctx, cfg, d, logger)
	if err != nil {
		return nil, err
	}
	repo, err := openRepository(ctx, cfg, d, logger)
	if err != nil {
		return nil, err
	}

	d.Engine = corechess.NewEngine(logger)
	d.closers = append(d.closers, d.Engine)
	d.closers = append(d.closers, closerFunc(releaseOnPathChange(d.Options, d.Engine)))

	pcfg := chesspresenter.Config{PeekFile: cfg.PeekFile, DisplayWindow: cfg.DisplayWindow}
	if sp := chesspresenter.NewCommandSpeaker(cfg.TTSCommand, logger); sp != nil {
		pcfg.Speaker = sp
	}
	d.Presenter = chesspresenter.NewPresenter(out, d.Formatter, pcfg, logger)

	deps := svcchess.Deps{
		Session:      svcchess.NewSession(slot, logger),
		Engine:       d.Engine,
		Options:      d.Options,
		Renderer:     svcchess.NewBoardRenderer(boardSquare),
		Repository:   repo,
		HistoryLimit: cfg.HistoryLimit,
	}
	if rec := newRecognizer(cfg, logger); rec != nil {
		deps.Speech = rec
	}
	d.Loop = svcchess.NewLoop(deps, d.Presenter, logger)

	ok = true
	return d, nil
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// releaseOnPathChange stops the engine process once the options point at a
// different binary. Release blocks behind a running search, so it runs off
// the saving goroutine.
func releaseOnPathChange(store *options.Store, engine *corechess.Engine) func() {
	return store.Subscribe(func(options.Options) {
		go engine.Release(store.EnginePath())
	})
}

func openSlot(ctx context.Context, cfg *config.AppConfig, d *Deps, logger *zap.Logger) (svcchess.Slot, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		logger.Info("save_slot_file", zap.String("path", cfg.SaveFile))
		return svcchess.NewFileSlot(cfg.SaveFile), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	d.closers = append(d.closers, rdb)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("save_slot_redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return svcchess.NewRedisSlot(rdb, ""), nil
}

func openRepository(ctx context.Context, cfg *config.AppConfig, d *Deps, logger *zap.Logger) (svcchess.Repository, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("archive_memory")
		return svcchess.NewMemoryRepository(), nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	d.closers = append(d.closers, db)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := svcchess.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	logger.Info("archive_postgres")
	return svcchess.NewRepository(db), nil
}

// newRecognizer returns nil when speech input is switched off.
func newRecognizer(cfg *config.AppConfig, logger *zap.Logger) *stt.Recognizer {
	var transcriber stt.Transcriber
	switch cfg.STTProvider {
	case config.STTWhisperCLI:
		transcriber = stt.NewWhisperCLI(cfg.WhisperCommand, cfg.WhisperModel, logger)
	case config.STTWhisperHTTP:
		transcriber = stt.NewWhisperHTTP(cfg.WhisperHTTPURL, cfg.STTAPIKey, logger)
	case config.STTStream:
		transcriber = stt.NewStream(cfg.STTStreamURL, cfg.STTAPIKey, logger)
	default:
		logger.Info("speech_disabled")
		return nil
	}
	capture := audio.NewFFmpegCapture(cfg.FFmpegPath, audio.CaptureConfig{
		InputFormat: cfg.AudioInputFormat,
		InputDevice: cfg.AudioInputDevice,
		SampleRate:  audio.DefaultSampleRate,
		Channels:    audio.DefaultChannels,
	}, logger)
	logger.Info("speech_enabled", zap.String("provider", cfg.STTProvider))
	return stt.NewRecognizer(capture, transcriber, logger)
}
