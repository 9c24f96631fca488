package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/tradesim"
	md "github.com/nao1215/markdown"
)

// CardsMarkdown renders the live cards of a view.
func CardsMarkdown(cards []tradesim.CardState) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Live prices")

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
		},
		Header: []string{"Symbol", "Price", "Change", "Held", "Value", "Feed"},
		Rows:   [][]string{},
	}
	for _, c := range cards {
		table.Rows = append(table.Rows, []string{
			cell(c.Symbol),
			c.Price.String(),
			c.Delta.SignedString(),
			c.Quantity.String(),
			c.Value().String(),
			c.Conn.String(),
		})
	}
	doc.Table(table)
	return doc.String()
}

// CardLine is a one line summary of a card, for streaming updates.
func CardLine(c tradesim.CardState) string {
	if c.Conn != tradesim.Connected {
		return fmt.Sprintf("%s %s (%s)", c.Symbol, c.Price, c.Conn)
	}
	arrow := "="
	switch {
	case c.Delta.IsPositive():
		arrow = "▲"
	case c.Delta.IsNegative():
		arrow = "▼"
	}
	return fmt.Sprintf("%s %s %s %s", c.Symbol, c.Price, arrow, c.Delta.SignedString())
}

// OrderMarkdown confirms an order accepted by the backend.
func OrderMarkdown(o tradesim.Order) string {
	verb := "Bought"
	if o.Side == tradesim.Sell {
		verb = "Sold"
	}
	return fmt.Sprintf("%s **%s %s** at %s (about %s).\n", verb, o.Quantity, cell(o.Symbol), o.Price, o.Price.Mul(o.Quantity))
}
