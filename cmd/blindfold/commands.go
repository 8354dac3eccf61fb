package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	nchess "github.com/corentings/chess/v2"

	svcchess "github.com/park285/blindfold-chess/internal/service/chess"
)

var errUsage = errors.New("usage")

type command struct {
	// msg is posted to the loop; nil for local commands.
	msg  any
	help bool
	quit bool
}

// parseLine turns one line of input into a loop message. A lone token that
// is not a keyword is a typed move; several words are read as a spoken
// phrase.
func parseLine(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, nil
	}
	keyword := strings.ToLower(fields[0])
	args := fields[1:]
	rest := strings.TrimSpace(strings.TrimSpace(line)[len(fields[0]):])

	switch keyword {
	case "help", "?":
		return command{help: true}, nil
	case "quit", "exit":
		return command{quit: true}, nil
	case "new":
		side := nchess.White
		if len(args) > 0 {
			c, err := svcchess.ParseSide(args[0])
			if err != nil {
				return command{}, fmt.Errorf("%w: new white|black", errUsage)
			}
			side = c
		}
		return command{msg: svcchess.CmdNewGame{Side: side}}, nil
	case "say":
		if rest == "" {
			return command{}, fmt.Errorf("%w: say <phrase>", errUsage)
		}
		return command{msg: svcchess.CmdMove{Text: rest, Spoken: true}}, nil
	case "mic":
		if len(args) > 0 && strings.EqualFold(args[0], "cancel") {
			return command{msg: svcchess.CmdMicCancel{}}, nil
		}
		return command{msg: svcchess.CmdMicToggle{}}, nil
	case "listen":
		if rest == "" {
			return command{}, fmt.Errorf("%w: listen <file.wav>", errUsage)
		}
		return command{msg: svcchess.CmdListenFile{Path: rest}}, nil
	case "pgn":
		if len(args) == 0 {
			return command{msg: svcchess.CmdPGN{}}, nil
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
		if err != nil || len(args) > 1 || id <= 0 {
			return command{}, fmt.Errorf("%w: pgn [game number]", errUsage)
		}
		return command{msg: svcchess.CmdArchivedPGN{ID: id}}, nil
	case "options":
		if len(args) == 0 {
			return command{msg: svcchess.CmdShowOptions{}}, nil
		}
		update, err := parseOptions(rest)
		if err != nil {
			return command{}, err
		}
		return command{msg: svcchess.CmdSetOptions{Update: update}}, nil
	}

	if len(args) == 0 {
		switch keyword {
		case "undo":
			return command{msg: svcchess.CmdUndo{}}, nil
		case "resign":
			return command{msg: svcchess.CmdResign{}}, nil
		case "save":
			return command{msg: svcchess.CmdSave{}}, nil
		case "load":
			return command{msg: svcchess.CmdLoad{}}, nil
		case "peek":
			return command{msg: svcchess.CmdTogglePeek{}}, nil
		case "retry":
			return command{msg: svcchess.CmdRetry{}}, nil
		case "status":
			return command{msg: svcchess.CmdStatus{}}, nil
		case "history":
			return command{msg: svcchess.CmdHistory{}}, nil
		}
		return command{msg: svcchess.CmdMove{Text: fields[0]}}, nil
	}
	return command{msg: svcchess.CmdMove{Text: strings.Join(fields, " "), Spoken: true}}, nil
}

// parseOptions reads key/value pairs. The engine path takes the rest of the
// line, so it may contain spaces.
func parseOptions(rest string) (svcchess.OptionsUpdate, error) {
	var u svcchess.OptionsUpdate
	usage := fmt.Errorf("%w: options [depth N] [autoplay on|off] [engine PATH]", errUsage)
	for rest = strings.TrimSpace(rest); rest != ""; {
		key, tail := cutWord(rest)
		key = strings.ToLower(key)
		if key == "engine" {
			if tail == "" {
				return u, usage
			}
			path := tail
			u.EnginePath = &path
			break
		}
		value, next := cutWord(tail)
		if value == "" {
			return u, usage
		}
		rest = next
		switch key {
		case "depth":
			n, err := strconv.Atoi(value)
			if err != nil {
				return u, fmt.Errorf("%w: depth must be a number, got %q", errUsage, value)
			}
			u.Depth = &n
		case "autoplay":
			var on bool
			switch strings.ToLower(value) {
			case "on", "true", "yes":
				on = true
			case "off", "false", "no":
			default:
				return u, fmt.Errorf("%w: autoplay on|off, got %q", errUsage, value)
			}
			u.AutoPlay = &on
		default:
			return u, fmt.Errorf("%w: unknown option %q", errUsage, key)
		}
	}
	return u, nil
}

// cutWord splits s after its first word; both parts are trimmed.
func cutWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}
