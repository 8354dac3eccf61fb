package chessdto

import "time"

type GameEntry struct {
	ID           int64
	GameUUID     string
	HumanSide    string
	Result       string
	ResultMethod string
	Status       string
	Opening      string
	MoveCount    int
	PGN          string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}

type Stats struct {
	GamesPlayed int
	Wins        int
	Losses      int
	Draws       int
	Aborted     int
	LastPlayed  time.Time
}
