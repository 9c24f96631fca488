package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/etnz/tradesim"
	"github.com/etnz/tradesim/live"
	"github.com/etnz/tradesim/renderer"
	"github.com/google/subcommands"
)

type watchCmd struct {
	refresh time.Duration
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "follow live prices until interrupted" }
func (*watchCmd) Usage() string {
	return `tsim watch [-refresh <duration>] [<symbol>...]

  Connects a card per symbol (by default the symbols held) to the live price
  feed and prints every price change until interrupted. With -refresh, the
  holdings are reloaded periodically and the cards follow them.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.refresh, "refresh", 0, "Reload the holdings at this interval, 0 never reloads.")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbols := make([]string, 0, f.NArg())
	for _, s := range f.Args() {
		symbols = append(symbols, normalizeSymbol(s))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	return withDashboard(ctx, func(a *app, d *tradesim.Dashboard) error {
		board := live.NewBoard(live.DefaultDialer, a.cfg.WS)
		defer board.Close()
		board.OnChange(func(s tradesim.CardState) { fmt.Println(renderer.CardLine(s)) })

		follow := func() {
			if err := board.Sync(ctx, watched(d, symbols)...); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
		follow()
		printMarkdown(renderer.CardsMarkdown(board.Cards()))

		var tick <-chan time.Time
		if c.refresh > 0 {
			t := time.NewTicker(c.refresh)
			defer t.Stop()
			tick = t.C
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
				d.Reload(ctx)
				follow()
			}
		}
	})
}

// watched returns the positions to follow: the given symbols, or the held
// positions when there are none.
func watched(d *tradesim.Dashboard, symbols []string) []tradesim.Position {
	if len(symbols) == 0 {
		return d.View().Positions()
	}
	var out []tradesim.Position
	for _, p := range d.Market() {
		if slices.Contains(symbols, p.Symbol) {
			out = append(out, p)
		}
	}
	return out
}
