// Package cmd implements the tsim command line.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/tradesim"
	"github.com/etnz/tradesim/api"
	"github.com/etnz/tradesim/session"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, g := range groups {
		for _, cmd := range g.commands {
			c.Register(cmd, g.name)
		}
	}
}

type group struct {
	name     string
	commands []subcommands.Command
}

var groups = []group{
	{"session", []subcommands.Command{&startCmd{}, &logoutCmd{}, &statusCmd{}}},
	{"portfolio", []subcommands.Command{&holdingsCmd{}, &stocksCmd{}, &historyCmd{}, &watchCmd{}}},
	{"orders", []subcommands.Command{newOrderCmd(tradesim.Buy), newOrderCmd(tradesim.Sell)}},
	{"help", []subcommands.Command{&topicCmd{}, &assistCmd{}}},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile  = flag.String("config", "", "Path to the tsim.yaml configuration file. Defaults to ./tsim.yaml, then the user config dir.")
	serverURL   = flag.String("server", "", "Base URL of the simulator backend, overrides the configuration.")
	sessionFile = flag.String("session", "", "Path to the session file, overrides the configuration.")
	Verbose     = flag.Bool("v", false, "Log requests and diagnostics to stderr.")
)

// app is what a command needs to talk to the backend.
type app struct {
	cfg    *Config
	client *api.Client
	store  tradesim.SessionStore
}

// newApp loads the configuration and installs the logger.
func newApp() (*app, error) {
	path := *configFile
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	cfg, err := LoadConfig(path, map[string]string{
		"server":  *serverURL,
		"session": *sessionFile,
	})
	if err != nil {
		return nil, err
	}
	verbose, _ := strconv.ParseBool(os.Getenv(EnvVerbose))
	setupLogger(*Verbose || verbose)
	tradesim.DefaultCurrency = cfg.Currency

	client, err := api.New(cfg.Server, api.WithTimeout(cfg.Timeout), api.WithStockCache(cfg.Cache))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, client: client, store: session.File{Path: cfg.Session}}, nil
}

func setupLogger(verbose bool) {
	if !verbose {
		tradesim.SetLogger(nil)
		return
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		return
	}
	tradesim.SetLogger(l)
}

// dashboard resumes, or starts, the session and loads its portfolio.
func (a *app) dashboard(ctx context.Context) (*tradesim.Dashboard, error) {
	id, err := tradesim.Bootstrap(ctx, a.client, a.store)
	if err != nil {
		return nil, err
	}
	d := tradesim.NewDashboard(a.client)
	if err := d.Switch(ctx, id.PortfolioID); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// withDashboard is the common body of the read only commands.
func withDashboard(ctx context.Context, f func(*app, *tradesim.Dashboard) error) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	d, err := a.dashboard(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer d.Close()
	if err := f(a, d); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal, or prints it raw if it cannot.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
