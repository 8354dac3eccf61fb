package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	corechess "github.com/park285/blindfold-chess/internal/chess"
	"github.com/park285/blindfold-chess/internal/obslog"
)

// enginecheck starts the configured engine, searches the position after the
// moves given as arguments and plays the answer through the rules library.
//
//	STOCKFISH_PATH=/usr/bin/stockfish DEPTH=12 enginecheck e2e4 e7e5
func main() {
	path := strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if path == "" {
		log.Fatal("STOCKFISH_PATH is required")
	}
	depth := corechess.DefaultDepth
	if v := strings.TrimSpace(os.Getenv("DEPTH")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("DEPTH must be a number: %v", err)
		}
		depth = n
	}
	moves := os.Args[1:]

	logger, err := obslog.New(obslog.Options{Level: "debug", Console: true, Format: "console"})
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	game, err := corechess.Replay(moves)
	if err != nil {
		log.Fatalf("moves: %v", err)
	}

	engine := corechess.NewEngine(logger)
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	started := time.Now()
	best, err := engine.BestMove(ctx, path, moves, depth)
	if err != nil {
		log.Printf("search error: %v", err)
		return
	}
	res, err := corechess.ApplyUCI(game, best)
	if err != nil {
		log.Printf("engine move %s rejected: %v", best, err)
		return
	}
	fmt.Printf("bestmove %s (%s) depth=%d in %s\n", best, res.SAN, depth, time.Since(started).Round(time.Millisecond))
	fmt.Printf("fen %s\n", res.FEN)
}
