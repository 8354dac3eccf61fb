package chess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const savedGameVersion = 1

// SavedGame is the content of the single saved-game slot.
type SavedGame struct {
	Version   int       `json:"version"`
	GameUUID  string    `json:"game_uuid"`
	HumanSide string    `json:"human_side"`
	Moves     []string  `json:"moves"`
	StartedAt time.Time `json:"started_at"`
	SavedAt   time.Time `json:"saved_at"`
}

// Slot persists at most one saved game. Read returns nil, nil when the slot
// is empty. Write replaces whatever was there.
type Slot interface {
	Read(ctx context.Context) (*SavedGame, error)
	Write(ctx context.Context, game SavedGame) error
}

func decodeSavedGame(raw []byte, source string) (*SavedGame, error) {
	var saved SavedGame
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, fmt.Errorf("decode saved game from %s: %w", source, err)
	}
	if saved.Version > savedGameVersion {
		return nil, fmt.Errorf("saved game in %s has unsupported version %d", source, saved.Version)
	}
	return &saved, nil
}

// FileSlot stores the saved game as JSON in one file.
type FileSlot struct {
	path string
}

func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

func (f *FileSlot) Read(ctx context.Context) (*SavedGame, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read saved game: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	return decodeSavedGame(raw, f.path)
}

func (f *FileSlot) Write(ctx context.Context, game SavedGame) error {
	raw, err := json.MarshalIndent(game, "", "  ")
	if err != nil {
		return fmt.Errorf("encode saved game: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".savegame.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write saved game: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close saved game: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace saved game: %w", err)
	}
	return nil
}

// RedisSlot keeps the saved game under one Redis key with no expiry.
type RedisSlot struct {
	rdb *redis.Client
	key string
}

func NewRedisSlot(rdb *redis.Client, key string) *RedisSlot {
	if strings.TrimSpace(key) == "" {
		key = "blindfold:savedgame"
	}
	return &RedisSlot{rdb: rdb, key: key}
}

func (s *RedisSlot) Read(ctx context.Context) (*SavedGame, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decodeSavedGame(raw, "redis key "+s.key)
}

func (s *RedisSlot) Write(ctx context.Context, game SavedGame) error {
	raw, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("encode saved game: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
