package chess

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/blindfold-chess/internal/domain"
)

// memrepo keeps the archive in memory when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	gamesByID   map[int64]*domain.GameRecord
	gamesByUUID map[string]*domain.GameRecord
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesByID:   make(map[int64]*domain.GameRecord),
		gamesByUUID: make(map[string]*domain.GameRecord),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := strings.TrimSpace(game.GameUUID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesByUUID[key]; exists {
		return 0, ErrDuplicateGame
	}

	m.nextID++
	stored := cloneRecord(game)
	stored.ID = m.nextID
	m.gamesByID[stored.ID] = stored
	m.gamesByUUID[key] = stored
	return stored.ID, nil
}

func (m *memrepo) GetRecentGames(ctx context.Context, limit int) ([]*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*domain.GameRecord, 0, len(m.gamesByID))
	for _, g := range m.gamesByID {
		items = append(items, cloneRecord(g))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetGame(ctx context.Context, id int64) (*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.gamesByID[id]; ok {
		return cloneRecord(g), nil
	}
	return nil, nil
}

func (m *memrepo) Stats(ctx context.Context) (domain.PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats domain.PlayerStats
	for _, g := range m.gamesByID {
		stats.GamesPlayed++
		switch g.Result {
		case "win":
			stats.Wins++
		case "loss":
			stats.Losses++
		case "draw":
			stats.Draws++
		}
		if g.Status == "aborted" {
			stats.Aborted++
		}
		if g.EndedAt.After(stats.LastPlayed) {
			stats.LastPlayed = g.EndedAt
		}
	}
	return stats, nil
}

func cloneRecord(g *domain.GameRecord) *domain.GameRecord {
	c := *g
	c.MovesUCI = append([]string(nil), g.MovesUCI...)
	c.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &c
}
