package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/guard"
	"github.com/evently/evently-web/internal/core/ports"
	"github.com/evently/evently-web/internal/core/search"
	"github.com/evently/evently-web/internal/core/service"
	"github.com/evently/evently-web/internal/tui"
	"github.com/evently/evently-web/pkg/logger"
)

func runLogin(ctx context.Context, a *app, args []string) error {
	var email, passwordFile string
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	flags.StringVar(&email, "email", "", "account email (prompted when empty)")
	flags.StringVar(&passwordFile, "password-file", "", "read the password from this file instead of prompting")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if email == "" {
		fmt.Fprint(os.Stderr, "Email: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	password, err := readPassword(passwordFile)
	if err != nil {
		return err
	}

	auth := service.NewAuthService(a.client, a.client, a.store, logger.Component("auth"))
	user, err := auth.Login(ctx, domain.Credentials{Email: email, Password: password})
	if err != nil {
		return explain(err)
	}

	p := tui.NewPrinter(os.Stdout)
	p.Notify(ports.NoticeInfo, fmt.Sprintf("Logged in as %s (%s).", user.FullName(), user.Role))
	if !user.IsVerified {
		p.Notify(ports.NoticeWarning, "Your email is not verified yet. Some actions stay locked until it is.")
	}
	return nil
}

// readPassword prompts on the terminal with echo disabled, or reads the
// first line of path.
func readPassword(path string) (string, error) {
	if path != "" && path != "-" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		return strings.TrimRight(string(raw), "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for the password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func runLogout(_ context.Context, a *app, _ []string) error {
	service.NewAuthService(a.client, a.client, a.store, logger.Component("auth")).Logout()
	tui.NewPrinter(os.Stdout).Notify(ports.NoticeInfo, "Logged out.")
	return nil
}

func runMe(ctx context.Context, a *app, _ []string) error {
	snap := a.store.Hydrate(ctx)
	if snap.User == nil {
		fmt.Fprintln(os.Stderr, tui.Hint(guard.LoginPath))
		return exitError{code: 1}
	}
	tui.RenderProfile(os.Stdout, snap.User)
	return nil
}

func runSearch(_ context.Context, a *app, args []string) error {
	values := url.Values{}
	flags := pflag.NewFlagSet("search", pflag.ContinueOnError)
	for _, name := range []string{"category", "location", "q", "from", "max-price"} {
		flags.String(name, "", "local filter: "+name)
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	flags.Visit(func(f *pflag.Flag) {
		values.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	criteria, err := search.ParseCriteria(values)
	if err != nil {
		return explain(err)
	}

	events := service.NewEventService(a.client, a.client, nil, nil, nil, "tui", logger.Component("events"))
	model := tui.NewSearchModel(events, clockwork.NewRealClock(), a.cfg.Search.Debounce, criteria, logger.Component("search"))
	defer model.Close()

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(tui.SearchModel); ok {
		if e, ok := m.Selected(); ok {
			fmt.Printf("#%d %s · %s · %s\n", e.ID, e.Title, e.Location, tui.FormatPrice(e))
		}
	}
	return nil
}

// runTransactions is the guarded customer screen: the guard decides before
// anything is fetched.
func runTransactions(ctx context.Context, a *app, _ []string) error {
	p := tui.NewPrinter(os.Stderr)
	req := guard.Requirement{Path: "/dashboard/customer", AllowedRoles: []domain.Role{domain.RoleCustomer}}
	g := guard.New(a.store, req, p, p, logger.Component("guard"))
	defer g.Unmount()

	if d := g.Mount(ctx); d.State != guard.StateAuthorized {
		if hint := tui.Hint(p.Target()); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		return exitError{code: 1}
	}

	account := service.NewAccountService(a.client, a.client, a.store, logger.Component("account"))
	txs, err := account.Transactions(ctx)
	if err != nil {
		return explain(err)
	}
	tui.RenderTransactions(os.Stdout, txs)
	return nil
}

// explain turns service errors into terminal messages.
func explain(err error) error {
	var ve *domain.ValidationError
	var ae *domain.APIError
	switch {
	case errors.As(err, &ve):
		for field, msg := range ve.Fields {
			fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
		}
		return exitError{code: 2}
	case errors.Is(err, domain.ErrUnauthorized):
		fmt.Fprintln(os.Stderr, "Invalid credentials or expired session. "+tui.Hint(guard.LoginPath))
		return exitError{code: 1}
	case errors.As(err, &ae) && ae.Transient():
		return fmt.Errorf("backend unavailable, please try again: %w", err)
	}
	return err
}
