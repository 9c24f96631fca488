package renderer

import (
	"strings"

	"github.com/etnz/tradesim"
)

// Row is a position as displayed.
type Row struct {
	Symbol   string
	Name     string
	Quantity string
	Price    string
	Value    string
}

func newRow(p tradesim.Position) Row {
	return Row{
		Symbol:   cell(p.Symbol),
		Name:     cell(p.Name),
		Quantity: p.Quantity.String(),
		Price:    p.Price.String(),
		Value:    p.Value.String(),
	}
}

// Holding is the holdings view of a portfolio.
type Holding struct {
	Portfolio string
	Total     string
	Positions []Row
	Missing   string // symbols not valued, comma separated
}

// NewHolding prepares v for display.
func NewHolding(portfolio tradesim.ID, v *tradesim.Valuation) *Holding {
	h := &Holding{Portfolio: portfolio.String(), Total: tradesim.M(0, "").String()}
	if v == nil {
		return h
	}
	h.Total = v.Total.String()
	for _, p := range v.Positions {
		h.Positions = append(h.Positions, newRow(p))
	}
	h.Missing = strings.Join(v.Missing, ", ")
	return h
}

// RenderHolding renders the holdings view.
func RenderHolding(h *Holding) string {
	return renderTemplate("holding.md", map[string]string{
		"holding_title":     "holding_title.md",
		"holding_positions": "holding_positions.md",
	}, h)
}

// HoldingMarkdown renders the valued holdings of portfolio.
func HoldingMarkdown(portfolio tradesim.ID, v *tradesim.Valuation) string {
	return RenderHolding(NewHolding(portfolio, v))
}

// MarketMarkdown renders the available stocks, with the held quantity of each.
func MarketMarkdown(positions []tradesim.Position) string {
	rows := make([]Row, 0, len(positions))
	for _, p := range positions {
		r := newRow(p)
		if p.Quantity.IsZero() {
			r.Quantity = ""
		}
		if p.Price.IsZero() {
			r.Price = "n/a"
		}
		rows = append(rows, r)
	}
	return renderTemplate("market.md", nil, rows)
}
