package chess

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	nchess "github.com/corentings/chess/v2"
	"github.com/redis/go-redis/v9"

	corechess "github.com/park285/blindfold-chess/internal/chess"
	"github.com/park285/blindfold-chess/internal/domain"
)

func playAll(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for i, mv := range moves {
		var err error
		if i%2 == 0 {
			_, err = g.playHuman(mv)
		} else {
			_, err = g.playEngine(mv)
		}
		if err != nil {
			t.Fatalf("move %d %q: %v", i, mv, err)
		}
	}
}

func TestSessionSaveLoadReplaysFEN(t *testing.T) {
	ctx := context.Background()
	slot := NewFileSlot(filepath.Join(t.TempDir(), "nested", "saved.json"))
	s := NewSession(slot, nil)

	g := s.Reset(nchess.White)
	playAll(t, g, "e4", "c7c5", "Nf3", "d7d6", "d4", "c5d4", "Nxd4")
	want := g.FEN()
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s.Reset(nchess.Black)
	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.FEN() != want {
		t.Fatalf("FEN %q, want %q", loaded.FEN(), want)
	}
	if loaded.UUID != g.UUID || loaded.Human != nchess.White {
		t.Fatalf("identity not restored: %s %v", loaded.UUID, loaded.Human)
	}
	if last := loaded.LastMove(); last == nil || last.To != nchess.D4 {
		t.Fatalf("last move %+v", last)
	}
}

func TestSessionLoadEmptySlot(t *testing.T) {
	s := NewSession(NewFileSlot(filepath.Join(t.TempDir(), "none.json")), nil)
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrNoSavedGame) {
		t.Fatalf("expected ErrNoSavedGame, got %v", err)
	}
	if err := s.Save(context.Background()); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("expected ErrNoActiveGame, got %v", err)
	}
}

func TestSessionLoadRejectsCorruptHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	raw := `{"version":1,"human_side":"white","moves":["e2e4","e2e4"]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewSession(NewFileSlot(path), nil)
	if _, err := s.Load(context.Background()); err == nil || errors.Is(err, ErrNoSavedGame) {
		t.Fatalf("expected a replay error, got %v", err)
	}
	if s.Active() != nil {
		t.Fatalf("failed load must not replace the game")
	}
}

func TestSessionUndo(t *testing.T) {
	s := NewSession(nil, nil)
	if err := s.Undo(); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("undo without game: %v", err)
	}

	g := s.Reset(nchess.White)
	playAll(t, g, "e4", "e7e5", "Nf3", "b8c6")
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := strings.Join(g.Moves(), " "); got != "e2e4 e7e5" {
		t.Fatalf("moves %q", got)
	}
	err := s.Undo()
	if !errors.Is(err, ErrNoActiveGame) || !errors.Is(err, ErrUndoUnavailable) {
		t.Fatalf("second undo: %v", err)
	}
	if g.MoveCount() != 2 {
		t.Fatalf("history changed: %v", g.Moves())
	}
}

func TestSessionUndoAsBlackNeedsTwoMoves(t *testing.T) {
	s := NewSession(nil, nil)
	g := s.Reset(nchess.Black)
	if _, err := g.playEngine("e2e4"); err != nil {
		t.Fatal(err)
	}
	if err := s.Undo(); !errors.Is(err, ErrUndoUnavailable) {
		t.Fatalf("only the engine has moved, got %v", err)
	}
}

func TestGameOutcomeAccessors(t *testing.T) {
	s := NewSession(nil, nil)
	g := s.Reset(nchess.White)
	g.resign()
	if !g.Terminal() || g.Result() != "loss" || g.Status() != corechess.StatusResigned {
		t.Fatalf("after resign: terminal=%v result=%s status=%s", g.Terminal(), g.Result(), g.Status())
	}

	g = s.Reset(nchess.Black)
	g.abort()
	if !g.Terminal() || g.Result() != "unknown" || g.Method() != "aborted" {
		t.Fatalf("after abort: %v %s %s", g.Terminal(), g.Result(), g.Method())
	}
	if !strings.Contains(g.PGN(), `[White "Engine"]`) {
		t.Fatalf("pgn tags: %s", g.PGN())
	}
}

func TestRedisSlot(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	slot := NewRedisSlot(rdb, "")
	if got, err := slot.Read(ctx); err != nil || got != nil {
		t.Fatalf("empty slot: %+v %v", got, err)
	}

	saved := SavedGame{Version: savedGameVersion, GameUUID: "g-1", HumanSide: "black", Moves: []string{"e2e4"}, SavedAt: time.Now().UTC()}
	if err := slot.Write(ctx, saved); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ttl := mr.TTL("blindfold:savedgame"); ttl != 0 {
		t.Fatalf("saved game should not expire, ttl %v", ttl)
	}
	got, err := slot.Read(ctx)
	if err != nil || got == nil || got.GameUUID != "g-1" || len(got.Moves) != 1 {
		t.Fatalf("Read: %+v %v", got, err)
	}

	mr.Set("blindfold:savedgame", `{"version":99}`)
	if _, err := slot.Read(ctx); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now()

	for i, result := range []string{"win", "loss", "draw"} {
		rec := &domain.GameRecord{
			GameUUID: string(rune('a' + i)),
			Result:   result,
			Status:   "checkmate",
			MovesUCI: []string{"e2e4"},
			EndedAt:  now.Add(time.Duration(i) * time.Minute),
		}
		if _, err := repo.InsertGame(ctx, rec); err != nil {
			t.Fatalf("InsertGame: %v", err)
		}
	}
	if _, err := repo.InsertGame(ctx, &domain.GameRecord{GameUUID: "a"}); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}

	recent, err := repo.GetRecentGames(ctx, 2)
	if err != nil || len(recent) != 2 || recent[0].GameUUID != "c" {
		t.Fatalf("recent %+v %v", recent, err)
	}
	recent[0].MovesUCI[0] = "mutated"
	again, _ := repo.GetGame(ctx, recent[0].ID)
	if again == nil || again.MovesUCI[0] != "e2e4" {
		t.Fatalf("repository leaked internal state")
	}

	stats, err := repo.Stats(ctx)
	if err != nil || stats.GamesPlayed != 3 || stats.Wins != 1 || stats.Losses != 1 || stats.Draws != 1 {
		t.Fatalf("stats %+v %v", stats, err)
	}
}

func TestRenderPNG(t *testing.T) {
	s := NewSession(nil, nil)
	g := s.Reset(nchess.Black)
	playAll(t, g, "e4", "e7e5")

	r := NewBoardRenderer(32)
	img, err := r.RenderPNG(context.Background(), g.Board(), RenderOptions{
		Orientation: nchess.Black,
		Highlight:   g.LastMove(),
		Caption:     "Move 2",
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() < 8*32 || b.Dy() < 8*32 {
		t.Fatalf("image too small: %v", b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, g.Board(), RenderOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
