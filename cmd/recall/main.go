// Package main implements the recall command line tool, which manages
// flashcards, runs spaced repetition study sessions and reports leaderboards
// and statistics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/phrazzld/scry-recall/internal/config"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/redact"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `Usage: recall [global flags] <command> [args]

Commands:
  migrate [up|down|reset|status|version]
  card add|show|edit|delete|activate|deactivate
  due [--category C] [--limit N]
  new [--category C] [--limit N]
  categories
  session start|current|answer|status|publish
  stats <user>
  leaderboard top|rank|score

Global flags:
`

// errUsage marks command line mistakes, which exit with exitUsage.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// globalFlags declares the flags config.Load binds to configuration keys.
func globalFlags(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("recall", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.String(config.ConfigFileFlag, "", "path to a config file")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("backend", "", "store backend: redis or postgres")
	fs.String("redis-addr", "", "redis address (host:port)")
	fs.Int("redis-db", 0, "redis database number")
	fs.String("redis-prefix", "", "prefix for every redis key")
	fs.String("database-url", "", "postgres connection URL")
	fs.Int("default-cards", 0, "default number of cards per session")
	return fs
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := globalFlags(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %s\n", redact.Error(err))
		return exitError
	}

	log, err := logger.Setup(cfg.Server, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "failed to set up logger: %v\n", err)
		return exitError
	}
	ctx = logger.WithLogger(ctx, log)

	command := fs.Arg(0)
	app, err := newApplication(ctx, cfg, log, command != "migrate")
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize application: %s\n", redact.Secrets(err.Error(), cfg.Redis.Password))
		return exitError
	}
	defer app.cleanup()

	c := &cli{app: app, stdout: stdout, stderr: stderr}
	if err := c.dispatch(ctx, command, fs.Args()[1:]); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", redact.Secrets(err.Error(), cfg.Redis.Password))
		if errors.Is(err, errUsage) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}
