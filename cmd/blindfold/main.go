package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/blindfold-chess/internal/adapter/chesspresenter"
	"github.com/park285/blindfold-chess/internal/chessbuilder"
	"github.com/park285/blindfold-chess/internal/config"
	"github.com/park285/blindfold-chess/internal/obslog"
	svcchess "github.com/park285/blindfold-chess/internal/service/chess"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	deps, err := chessbuilder.New(cfg, os.Stdout, logger)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := deps.Loop.Run(ctx); err != nil {
			logger.Error("loop_failed", zap.Error(err))
		}
	}()

	fmt.Println(deps.Formatter.Help())
	repl(ctx, os.Stdin, os.Stdout, deps, logger)
	stop()
	<-deps.Loop.Done()
}

func repl(ctx context.Context, in io.Reader, out io.Writer, deps *chessbuilder.Deps, logger *zap.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Fprint(out, deps.Presenter.Prompt())
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		cmd, err := parseLine(line)
		switch {
		case err != nil:
			fmt.Fprintln(out, err)
		case cmd.quit:
			return
		case cmd.help:
			fmt.Fprintln(out, deps.Formatter.Help())
		case cmd.msg != nil:
			if text := refuseMove(cmd.msg, deps.Presenter, deps.Formatter); text != "" {
				fmt.Fprintln(out, text)
				continue
			}
			logger.Debug("command", zap.String("type", fmt.Sprintf("%T", cmd.msg)))
			if !deps.Loop.Post(cmd.msg) {
				return
			}
		}
	}
}

// refuseMove returns the message to show instead of posting msg, or "" when
// msg may go to the loop.
func refuseMove(msg any, p *chesspresenter.Presenter, f *chesspresenter.Formatter) string {
	if _, ok := msg.(svcchess.CmdMove); !ok || !p.MoveBlocked() {
		return ""
	}
	return f.Error(chesspresenter.ToDomainError(svcchess.ErrNotYourTurn))
}
