package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/tradesim"
	"github.com/etnz/tradesim/renderer"
	"github.com/google/subcommands"
)

type startCmd struct{}

func (*startCmd) Name() string     { return "start" }
func (*startCmd) Synopsis() string { return "resume the trading session, or create a new one" }
func (*startCmd) Usage() string {
	return `tsim start

  Resumes the saved session. Without one, creates a new user and its
  portfolio on the backend and saves them as the active session.
`
}

func (*startCmd) SetFlags(f *flag.FlagSet) {}

func (*startCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	id, err := tradesim.Bootstrap(ctx, a.client, a.store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting session: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.StatusMarkdown(renderer.NewStatus(a.cfg.Server, id, nil)))
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "forget the active session" }
func (*logoutCmd) Usage() string {
	return `tsim logout

  Forgets the saved session. The user and its portfolio are left on the
  backend, the next command starts a new session.
`
}

func (*logoutCmd) SetFlags(f *flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := tradesim.Logout(a.store); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println("Logged out.")
	return subcommands.ExitSuccess
}

type statusCmd struct{}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "show the active session" }
func (*statusCmd) Usage() string {
	return `tsim status

  Shows the backend, user and portfolio of the active session. Unlike the
  other commands it never creates a session.
`
}

func (*statusCmd) SetFlags(f *flag.FlagSet) {}

func (*statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	id, err := a.store.Load()
	if errors.Is(err, tradesim.ErrNoSession) {
		fmt.Println("No active session, run `tsim start`.")
		return subcommands.ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading session: %v\n", err)
		return subcommands.ExitFailure
	}

	var p *tradesim.Portfolio
	if got, err := a.client.Portfolio(ctx, id.PortfolioID); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot read portfolio %s: %v\n", id.PortfolioID, err)
	} else {
		p = &got
	}
	printMarkdown(renderer.StatusMarkdown(renderer.NewStatus(a.cfg.Server, id, p)))
	return subcommands.ExitSuccess
}
