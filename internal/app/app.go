package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/five82/smashtrack/internal/analysis"
	"github.com/five82/smashtrack/internal/config"
	"github.com/five82/smashtrack/internal/logging"
	"github.com/five82/smashtrack/internal/session"
	"github.com/five82/smashtrack/internal/ui"
)

// Options configure one smashtrack invocation.
type Options struct {
	ConfigPath string
	PollEvery  int // seconds; zero uses the configured history_poll
	Args       []string
	Stdout     io.Writer
	Stderr     io.Writer
}

// ErrSignedOut is returned by commands that need a session when none exists.
var ErrSignedOut = errors.New("not signed in, run `smashtrack login` first")

type command func(ctx context.Context, d *Deps, args []string, out io.Writer) error

var commands = map[string]command{
	"login":    runLogin,
	"register": runRegister,
	"logout":   runLogout,
	"profile":  runProfile,
	"analyze":  runAnalyze,
	"report":   runReport,
	"history":  runHistory,
	"logs":     runLogs,
}

// Run executes the command named by opts.Args[0], or the TUI when no command
// is given, until it finishes or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.HistoryPoll = time.Duration(opts.PollEvery) * time.Second
	}

	logger, closer, err := logging.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()
	ctx = logging.WithLogger(ctx, logger)

	d, err := NewDeps(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("metrics flush failed", "error", err)
		}
	}()

	name, rest := "tui", []string(nil)
	if len(opts.Args) > 0 {
		name, rest = opts.Args[0], opts.Args[1:]
	}
	if name == "tui" {
		return runTUI(ctx, d)
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	logger.Debug("command started", "command", name)
	return cmd(ctx, d, rest, opts.Stdout)
}

func runTUI(ctx context.Context, d *Deps) error {
	d.Restore(ctx)
	StartPoller(ctx, d.HistoryStore, d.History, d.Session.Authenticated, d.Config.HistoryPoll, d.Logger)

	return ui.Run(ui.Options{
		Context:  ctx,
		Accounts: d.Session,
		Tokens:   d.Tokens,
		Pipeline: d.Runner,
		Reports:  d.Reports,
		History:  d.HistoryStore,
		Recall: func(ctx context.Context, id string) (analysis.Report, error) {
			return d.Analysis.Recall(ctx, d.Fetcher, id)
		},
		RefreshHistory: func(ctx context.Context) error {
			return refresh(ctx, d.HistoryStore, d.History, d.Session.Authenticated, d.Logger)
		},
		Limits:    d.Uploads.Limits(),
		LogPath:   d.Config.LogPath,
		ThemeName: d.Config.Theme,
	})
}

// requireSession runs the guard for route and maps a denial to ErrSignedOut.
func requireSession(d *Deps, route session.Route) error {
	var redirect session.Route
	guard := d.Guard(session.NavigatorFunc(func(r session.Route) { redirect = r }))
	if guard.Enter(route) {
		return nil
	}
	d.Logger.Debug("route denied", "route", route, "redirect", redirect)
	return ErrSignedOut
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
