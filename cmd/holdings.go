package cmd

import (
	"context"
	"flag"

	"github.com/etnz/tradesim"
	"github.com/etnz/tradesim/renderer"
	"github.com/google/subcommands"
)

// holdingsCmd displays the valued holdings of the portfolio.
type holdingsCmd struct{}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display the positions held and the portfolio value" }
func (*holdingsCmd) Usage() string {
	return `tsim holdings

  Derives the holdings from the portfolio's transactions and values them at
  the current prices. Positions whose price cannot be read are left out of
  the total and listed separately.
`
}

func (*holdingsCmd) SetFlags(f *flag.FlagSet) {}

func (*holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withDashboard(ctx, func(_ *app, d *tradesim.Dashboard) error {
		v := d.View()
		printMarkdown(renderer.HoldingMarkdown(v.Portfolio, v.Valuation))
		return nil
	})
}

type stocksCmd struct{}

func (*stocksCmd) Name() string     { return "stocks" }
func (*stocksCmd) Synopsis() string { return "list the stocks available for trading" }
func (*stocksCmd) Usage() string {
	return `tsim stocks

  Lists every stock of the simulator with its current price and the quantity
  held, if any.
`
}

func (*stocksCmd) SetFlags(f *flag.FlagSet) {}

func (*stocksCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withDashboard(ctx, func(_ *app, d *tradesim.Dashboard) error {
		printMarkdown(renderer.MarketMarkdown(d.Market()))
		return nil
	})
}

type historyCmd struct{}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the portfolio value over time" }
func (*historyCmd) Usage() string {
	return `tsim history

  Displays the value history recorded by the backend.
`
}

func (*historyCmd) SetFlags(f *flag.FlagSet) {}

func (*historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withDashboard(ctx, func(_ *app, d *tradesim.Dashboard) error {
		printMarkdown(renderer.HistoryMarkdown(d.View().History))
		return nil
	})
}
