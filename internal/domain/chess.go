package domain

import "time"

// GameRecord is a finished game kept in the archive.
type GameRecord struct {
	ID           int64
	GameUUID     string
	HumanSide    string
	Result       string
	ResultMethod string
	Status       string
	Opening      string
	MovesUCI     []string
	MovesSAN     []string
	PGN          string
	Depth        int
	EnginePath   string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}

// PlayerStats aggregates the archive from the human's point of view.
type PlayerStats struct {
	GamesPlayed int
	Wins        int
	Losses      int
	Draws       int
	Aborted     int
	LastPlayed  time.Time
}
