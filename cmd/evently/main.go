// evently is the terminal front end: log in, browse events with a live
// debounced search, and list your transactions.
//
// Usage:
//
//	evently login [--email you@example.com] [--password-file path]
//	evently logout
//	evently me
//	evently search [--category c] [--location l] [--q text] [--from YYYY-MM-DD] [--max-price n]
//	evently transactions
//
// The session token is kept in a file under the user's config directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/evently/evently-web/internal/core/session"
	"github.com/evently/evently-web/internal/infrastructure/apiclient"
	"github.com/evently/evently-web/internal/infrastructure/config"
	"github.com/evently/evently-web/internal/infrastructure/tokenstore"
	"github.com/evently/evently-web/pkg/logger"
)

// exitError carries a process exit code for failures already explained to
// the user.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	if err := run(os.Args[1:]); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is what every subcommand shares.
type app struct {
	cfg    *config.Config
	client *apiclient.Client
	tokens *tokenstore.File
	store  *session.Store
	log    zerolog.Logger
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":        {"log in and save the session token", runLogin},
	"logout":       {"forget the saved session token", runLogout},
	"me":           {"show the signed-in account", runMe},
	"search":       {"search events interactively", runSearch},
	"transactions": {"list your ticket purchases (customers)", runTransactions},
}

var commandOrder = []string{"login", "logout", "me", "search", "transactions"}

func run(args []string) error {
	var apiURL, tokenFile, logFile string
	flags := pflag.NewFlagSet("evently", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.StringVar(&apiURL, "api", "", "backend base URL (default: $API_BASE_URL)")
	flags.StringVar(&tokenFile, "token-file", "", "session token file (default: <config dir>/evently/token.json)")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file (default: <config dir>/evently/evently.log)")
	flags.Usage = func() { usage(os.Stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() == 0 {
		usage(os.Stderr, flags)
		return exitError{code: 2}
	}
	name := flags.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage(os.Stderr, flags)
		return exitError{code: 2}
	}

	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, cleanup, err := setup(ctx, apiURL, tokenFile, logFile)
	if err != nil {
		return err
	}
	defer cleanup()

	return cmd.run(ctx, a, flags.Args()[1:])
}

func setup(ctx context.Context, apiURL, tokenFile, logFile string) (*app, func(), error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}

	if tokenFile == "" {
		if tokenFile, err = tokenstore.DefaultPath(); err != nil {
			return nil, nil, err
		}
	}
	if logFile == "" {
		logFile = filepath.Join(filepath.Dir(tokenFile), "evently.log")
	}

	// Logs go to a file so they never tear the terminal UI.
	var out io.Writer = io.Discard
	var closeLog func() error
	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err == nil {
		if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
			out, closeLog = f, f.Close
		}
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Output: out, App: "evently-tui"})

	tokens := tokenstore.NewFile(tokenFile, cfg.Cookie.MaxAge)
	client, err := apiclient.New(apiclient.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, tokens, logger.Component("apiclient"))
	if err != nil {
		return nil, nil, err
	}

	a := &app{
		cfg:    cfg,
		client: client,
		tokens: tokens,
		store:  session.NewStore(client, tokens, logger.Component("session")),
		log:    log,
	}
	cleanup := func() {
		if closeLog != nil {
			_ = closeLog()
		}
	}
	return a, cleanup, nil
}

func usage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(w, "evently browses events and manages tickets from the terminal.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  evently [flags] <command> [command flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	flags.SetOutput(w)
	flags.PrintDefaults()
}
