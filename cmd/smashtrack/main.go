package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/smashtrack/internal/app"
	"github.com/five82/smashtrack/internal/gateway"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (optional, defaults to ~/.config/smashtrack/config.toml)")
	pollSeconds := flag.Int("poll", 0, "history refresh interval in seconds (optional)")
	flag.Usage = usage
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath, Args: flag.Args()}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		if ctx.Err() != nil {
			return 130
		}
		msg := err.Error()
		if gateway.KindOf(err) != 0 {
			msg = gateway.Message(err)
		}
		fmt.Fprintf(os.Stderr, "smashtrack: %s\n", msg)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: smashtrack [flags] [command] [args]

commands:
  login -u NAME -p PASSWORD
  register -u NAME -p PASSWORD [-nickname N] [-email E]
  logout
  profile
  analyze [-trim START:END] VIDEO
  analyze -media ID
  report [-share] ANALYSIS_ID
  history [-page N] [-size N] [-sort analyzed_at|speed|score] [-order asc|desc]
  logs [-n LINES] [-raw]
  tui (default)

flags:
`)
	flag.PrintDefaults()
}
