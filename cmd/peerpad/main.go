package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ergochat/readline"

	"github.com/peerpad/peerpad"
	"github.com/peerpad/peerpad/snapstore"
	"github.com/peerpad/peerpad/utils"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("create"),
	readline.PcItem("sessions"),
	readline.PcItem("use"),
	readline.PcItem("close"),

	readline.PcItem("join"),
	readline.PcItem("leave"),
	readline.PcItem("cursor"),

	readline.PcItem("insert"),
	readline.PcItem("delete"),
	readline.PcItem("show"),
	readline.PcItem("watch"),

	readline.PcItem("save"),
	readline.PcItem("load"),
	readline.PcItem("stored"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// REPL per se.
type REPL struct {
	cfg     Config
	engine  *peerpad.Engine
	store   *snapstore.Store
	rl      *readline.Instance
	current string
	unwatch func()
}

func (repl *REPL) Open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     repl.cfg.HistoryFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()

	repl.store, err = snapstore.Open(repl.cfg.DataDir)
	return
}

func (repl *REPL) Close() error {
	if repl.unwatch != nil {
		repl.unwatch()
		repl.unwatch = nil
	}
	if repl.store != nil {
		_ = repl.store.Close()
		repl.store = nil
	}
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return repl.engine.Close()
}

var ErrNoSession = errors.New("no session selected, create or load one first")

func (repl *REPL) REPL() (err error) {
	var line string
	line, err = repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	args := strings.Fields(line)
	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "help":
		repl.CommandHelp()
	// ----- session lifecycle -----
	case "create":
		err = repl.CommandCreate(args)
	case "sessions":
		err = repl.CommandSessions()
	case "use":
		err = repl.CommandUse(args)
	case "close":
		err = repl.CommandClose()
	// ----- membership & presence -----
	case "join":
		err = repl.CommandJoin(args)
	case "leave":
		err = repl.CommandLeave(args)
	case "cursor":
		err = repl.CommandCursor(args)
	// ----- editing -----
	case "insert":
		err = repl.CommandInsert(args)
	case "delete":
		err = repl.CommandDelete(args)
	case "show":
		err = repl.CommandShow()
	case "watch":
		err = repl.CommandWatch()
	// ----- snapshots -----
	case "save":
		err = repl.CommandSave()
	case "load":
		err = repl.CommandLoad(args)
	case "stored":
		err = repl.CommandStored()
	case "exit", "quit":
		return io.EOF
	default:
		_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
	}
	return
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	repl := REPL{
		cfg: cfg,
		engine: peerpad.New(peerpad.Options{
			Logger:     utils.NewDefaultLogger(parseLevel(cfg.LogLevel)),
			MaxPending: cfg.MaxPending,
		}),
	}

	err = repl.Open()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
		}
		err = repl.REPL()
	}
	_ = repl.Close()
}
