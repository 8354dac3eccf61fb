package chess

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/blindfold-chess/internal/chess/uci"
	"go.uber.org/zap"
)

type fakeSearcher struct {
	reply     string
	searchErr error
	newGames  int
	searches  []uci.SearchRequest
	closed    bool
}

func (f *fakeSearcher) NewGame(context.Context) error {
	f.newGames++
	return nil
}

func (f *fakeSearcher) Search(_ context.Context, req uci.SearchRequest) (uci.SearchResponse, error) {
	f.searches = append(f.searches, req)
	if f.searchErr != nil {
		return uci.SearchResponse{}, f.searchErr
	}
	return uci.SearchResponse{BestMove: f.reply}, nil
}

func (f *fakeSearcher) Close() error {
	f.closed = true
	return nil
}

func TestEngineBestMoveReusesSession(t *testing.T) {
	fake := &fakeSearcher{reply: "e7e5"}
	starts := 0
	eng := NewEngineWithStarter(func(context.Context, string, *zap.Logger) (Searcher, error) {
		starts++
		return fake, nil
	}, nil)

	ctx := context.Background()
	for _, moves := range [][]string{{"e2e4"}, {"e2e4", "e7e5", "g1f3"}} {
		got, err := eng.BestMove(ctx, "/bin/engine", moves, 12)
		if err != nil {
			t.Fatalf("BestMove: %v", err)
		}
		if got != "e7e5" {
			t.Fatalf("best move %q", got)
		}
	}
	if starts != 1 {
		t.Fatalf("engine started %d times", starts)
	}
	if fake.newGames != 1 {
		t.Fatalf("ucinewgame sent %d times", fake.newGames)
	}
	if fake.searches[1].Limits.Depth != 12 || len(fake.searches[1].Moves) != 3 {
		t.Fatalf("unexpected search %+v", fake.searches[1])
	}

	if _, err := eng.BestMove(ctx, "/bin/engine", nil, 12); err != nil {
		t.Fatalf("BestMove new game: %v", err)
	}
	if fake.newGames != 2 {
		t.Fatalf("shorter history should reset the engine game")
	}
}

func TestEngineStartFailure(t *testing.T) {
	eng := NewEngineWithStarter(func(context.Context, string, *zap.Logger) (Searcher, error) {
		return nil, errors.New("exec: not found")
	}, nil)

	_, err := eng.BestMove(context.Background(), "/missing", nil, 10)
	var engErr *EngineError
	if !errors.As(err, &engErr) || engErr.Failure != FailureStart {
		t.Fatalf("expected start failure, got %v", err)
	}
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("start failure should match ErrEngineUnavailable")
	}

	_, err = eng.BestMove(context.Background(), "", nil, 10)
	if !errors.As(err, &engErr) || engErr.Failure != FailureStart {
		t.Fatalf("empty path should be a start failure, got %v", err)
	}
}

func TestEngineCrashDropsSession(t *testing.T) {
	fake := &fakeSearcher{searchErr: uci.ErrEngineExited}
	eng := NewEngineWithStarter(func(context.Context, string, *zap.Logger) (Searcher, error) {
		return fake, nil
	}, nil)

	_, err := eng.BestMove(context.Background(), "/bin/engine", []string{"e2e4"}, 10)
	var engErr *EngineError
	if !errors.As(err, &engErr) || engErr.Failure != FailureCrash {
		t.Fatalf("expected crash failure, got %v", err)
	}
	if !fake.closed {
		t.Fatalf("crashed session was not closed")
	}
}

func TestEngineReleaseOnPathChange(t *testing.T) {
	fake := &fakeSearcher{reply: "e7e5"}
	eng := NewEngineWithStarter(func(context.Context, string, *zap.Logger) (Searcher, error) {
		return fake, nil
	}, nil)
	if _, err := eng.BestMove(context.Background(), "/bin/engine", []string{"e2e4"}, 10); err != nil {
		t.Fatalf("BestMove: %v", err)
	}

	eng.Release(" /bin/engine ")
	if fake.closed {
		t.Fatalf("same path must keep the session")
	}
	eng.Release("/opt/other")
	if !fake.closed {
		t.Fatalf("session kept after path change")
	}
	eng.Release("/opt/other")
}

func TestEngineRejectsDepth(t *testing.T) {
	eng := NewEngineWithStarter(func(context.Context, string, *zap.Logger) (Searcher, error) {
		t.Fatalf("engine should not start for an invalid depth")
		return nil, nil
	}, nil)
	if _, err := eng.BestMove(context.Background(), "/bin/engine", nil, 3); !errors.Is(err, ErrDepthOutOfRange) {
		t.Fatalf("expected ErrDepthOutOfRange, got %v", err)
	}
}
