package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/tradesim"
	"github.com/etnz/tradesim/renderer"
	"github.com/google/subcommands"
)

// orderCmd implements both buy and sell.
type orderCmd struct {
	side tradesim.Side
}

func newOrderCmd(side tradesim.Side) *orderCmd { return &orderCmd{side: side} }

func (c *orderCmd) Name() string { return c.side.Verb() }
func (c *orderCmd) Synopsis() string {
	return fmt.Sprintf("%s shares of a stock at the current price", c.side.Verb())
}
func (c *orderCmd) Usage() string {
	return fmt.Sprintf(`tsim %[1]s <symbol> [<quantity>]

  Places an order to %[1]s <quantity> shares (1 by default) of <symbol> at the
  current price, then displays the updated holdings. The quantity must be a
  positive whole number, and a sell cannot exceed the shares held.
`, c.side.Verb())
}

func (*orderCmd) SetFlags(f *flag.FlagSet) {}

func (c *orderCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbol, quantity, err := parseOrderArgs(f.Args())
	if err != nil {
		fmt.Fprintln(f.Output(), err)
		return subcommands.ExitUsageError
	}

	return withDashboard(ctx, func(a *app, d *tradesim.Dashboard) error {
		pos, err := positionOf(ctx, d, a.client, symbol)
		if err != nil {
			return err
		}
		card := tradesim.NewCard(pos)
		t := tradesim.NewTicket()
		t.Open(c.side)
		t.SetQuantity(quantity)
		if err := t.Submit(ctx, a.client, d.Portfolio(), card.State(), d.Reload); err != nil {
			return err
		}

		o := tradesim.Order{PortfolioID: d.Portfolio(), Symbol: symbol, Quantity: quantity, Side: c.side, Price: pos.Price}
		v := d.View()
		printMarkdown(renderer.OrderMarkdown(o) + "\n" + renderer.HoldingMarkdown(v.Portfolio, v.Valuation))
		return nil
	})
}

// parseOrderArgs reads "<symbol> [<quantity>]".
func parseOrderArgs(args []string) (string, tradesim.Quantity, error) {
	switch len(args) {
	case 1:
		return normalizeSymbol(args[0]), tradesim.Q(1), nil
	case 2:
		q, err := tradesim.ParseQuantity(args[1])
		if err != nil {
			return "", tradesim.Quantity{}, err
		}
		return normalizeSymbol(args[0]), q, nil
	default:
		return "", tradesim.Quantity{}, fmt.Errorf("expected <symbol> [<quantity>], got %d arguments", len(args))
	}
}

func normalizeSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// positionOf returns the position in symbol as displayed by d, looking the
// stock up when the stock list is not available.
func positionOf(ctx context.Context, d *tradesim.Dashboard, src tradesim.StockSource, symbol string) (tradesim.Position, error) {
	for _, p := range d.Market() {
		if p.Symbol == symbol {
			return p, nil
		}
	}
	if p, ok := d.View().Valuation.Position(symbol); ok {
		return p, nil
	}
	s, err := src.Stock(ctx, symbol)
	if err != nil {
		return tradesim.Position{}, fmt.Errorf("unknown stock %s: %w", symbol, err)
	}
	return tradesim.NewPosition(s, tradesim.Quantity{}), nil
}
