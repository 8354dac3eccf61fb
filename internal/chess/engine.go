package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/park285/blindfold-chess/internal/chess/uci"
	"go.uber.org/zap"
)

var ErrEngineUnavailable = errors.New("chess engine unavailable")

type EngineFailure int

const (
	// FailureStart: the engine could not be launched or did not finish the
	// handshake. Nothing was lost; the same query can be issued again.
	FailureStart EngineFailure = iota + 1
	// FailureCrash: the engine died or misbehaved during a search.
	FailureCrash
)

func (f EngineFailure) String() string {
	switch f {
	case FailureStart:
		return "start"
	case FailureCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// EngineError matches ErrEngineUnavailable under errors.Is.
type EngineError struct {
	Failure EngineFailure
	Path    string
	Err     error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("chess engine %s failure (%s): %v", e.Failure, e.Path, e.Err)
}

func (e *EngineError) Unwrap() []error { return []error{ErrEngineUnavailable, e.Err} }

// Searcher is the part of a UCI session the engine drives.
type Searcher interface {
	NewGame(ctx context.Context) error
	Search(ctx context.Context, req uci.SearchRequest) (uci.SearchResponse, error)
	Close() error
}

type StartFunc func(ctx context.Context, path string, logger *zap.Logger) (Searcher, error)

func startUCI(ctx context.Context, path string, logger *zap.Logger) (Searcher, error) {
	session, err := uci.NewSession(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Engine keeps one UCI process alive across moves and restarts it when the
// configured path changes or after a crash.
type Engine struct {
	mu      sync.Mutex
	start   StartFunc
	session Searcher
	path    string
	lastPly int
	logger  *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	return NewEngineWithStarter(startUCI, logger)
}

func NewEngineWithStarter(start StartFunc, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{start: start, logger: logger}
}

// BestMove asks the engine at path for its move after the given UCI history,
// searching to depth. It blocks until the engine answers or ctx ends.
func (e *Engine) BestMove(ctx context.Context, path string, moves []string, depth int) (string, error) {
	limits, err := LimitsForDepth(depth)
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureSession(ctx, path); err != nil {
		return "", err
	}

	if len(moves) <= 1 || len(moves) < e.lastPly {
		if err := e.session.NewGame(ctx); err != nil {
			return "", e.crashed(ctx, err)
		}
	}
	e.lastPly = len(moves)

	started := time.Now()
	resp, err := e.session.Search(ctx, uci.SearchRequest{Moves: moves, Limits: limits})
	if err != nil {
		return "", e.crashed(ctx, err)
	}
	best := strings.ToLower(strings.TrimSpace(resp.BestMove))
	if best == "" || best == "(none)" || best == "0000" {
		return "", e.crashed(ctx, fmt.Errorf("engine returned no move"))
	}

	e.logger.Debug("engine_best_move",
		zap.String("move", best),
		zap.Int("depth", depth),
		zap.Int("ply", len(moves)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return best, nil
}

func (e *Engine) ensureSession(ctx context.Context, path string) error {
	if e.session != nil && e.path == path {
		return nil
	}
	e.closeSession()
	if path == "" {
		return &EngineError{Failure: FailureStart, Path: path, Err: errors.New("no engine path configured")}
	}
	session, err := e.start(ctx, path, e.logger)
	if err != nil {
		e.logger.Warn("engine_start_failed", zap.String("path", path), zap.Error(err))
		return &EngineError{Failure: FailureStart, Path: path, Err: err}
	}
	e.logger.Info("engine_started", zap.String("path", path))
	e.session = session
	e.path = path
	e.lastPly = 0
	return nil
}

// crashed drops the session so the next query starts a fresh process. A
// cancelled context is reported as such, not as a crash.
func (e *Engine) crashed(ctx context.Context, err error) error {
	path := e.path
	e.closeSession()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	e.logger.Warn("engine_crashed", zap.String("path", path), zap.Error(err))
	return &EngineError{Failure: FailureCrash, Path: path, Err: err}
}

func (e *Engine) closeSession() {
	if e.session == nil {
		return
	}
	if err := e.session.Close(); err != nil {
		e.logger.Debug("engine_close_failed", zap.Error(err))
	}
	e.session = nil
	e.path = ""
	e.lastPly = 0
}

// Release stops the running process unless it was started from path, so a
// replaced binary does not stay up until the next query. It waits for a
// search in progress.
func (e *Engine) Release(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || e.path == strings.TrimSpace(path) {
		return
	}
	e.logger.Info("engine_released", zap.String("path", e.path), zap.String("next_path", path))
	e.closeSession()
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeSession()
	return nil
}
