package tradesim

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StockSource looks up the current state of a single instrument.
type StockSource interface {
	Stock(ctx context.Context, symbol string) (Stock, error)
}

// maxStockFetches bounds the number of concurrent price lookups of a valuation.
const maxStockFetches = 8

// Position is a holding combined with its instrument's current price.
type Position struct {
	Stock
	Quantity Quantity
	Value    Money // Price × Quantity
}

// NewPosition values q shares of s at s's price.
func NewPosition(s Stock, q Quantity) Position {
	return Position{Stock: s, Quantity: q, Value: s.Price.Mul(q)}
}

// Valuation is the worth of a portfolio at the time it was computed.
type Valuation struct {
	Positions []Position // sorted by symbol
	Total     Money      // sum of all Positions' Value
	Missing   []string   // held symbols left out because their lookup failed
}

// Valuate prices every holding with a lookup per symbol.
//
// A failed lookup leaves that symbol out of both the positions and the total,
// it does not fail the valuation. An empty holdings yields a valuation with no
// positions and a zero total.
func Valuate(ctx context.Context, h Holdings, src StockSource) *Valuation {
	symbols := h.Symbols()
	stocks := make([]*Stock, len(symbols))

	var g errgroup.Group
	g.SetLimit(maxStockFetches)
	for i, symbol := range symbols {
		g.Go(func() error {
			s, err := src.Stock(ctx, symbol)
			if err != nil {
				logger.Debug("dropping position, no price", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}
			stocks[i] = &s
			return nil
		})
	}
	_ = g.Wait() // lookups never fail the group

	v := &Valuation{Total: M(0, "")}
	for i, symbol := range symbols {
		if stocks[i] == nil {
			v.Missing = append(v.Missing, symbol)
			continue
		}
		p := NewPosition(*stocks[i], h.Quantity(symbol))
		v.Positions = append(v.Positions, p)
		v.Total = v.Total.Add(p.Value)
	}
	return v
}

// Position returns the position in symbol.
func (v *Valuation) Position(symbol string) (Position, bool) {
	if v == nil {
		return Position{}, false
	}
	i := slices.IndexFunc(v.Positions, func(p Position) bool { return p.Symbol == symbol })
	if i < 0 {
		return Position{}, false
	}
	return v.Positions[i], true
}

// Holdings returns the quantities of the valued positions.
func (v *Valuation) Holdings() Holdings {
	h := make(Holdings)
	if v == nil {
		return h
	}
	for _, p := range v.Positions {
		h[p.Symbol] = p.Quantity
	}
	return h
}

// Market returns one position per available stock, sorted by symbol. Held
// stocks reuse the valuation's position, the others get a zero quantity.
func (v *Valuation) Market(stocks []Stock) []Position {
	out := make([]Position, 0, len(stocks))
	for _, s := range stocks {
		if p, ok := v.Position(s.Symbol); ok {
			out = append(out, p)
			continue
		}
		out = append(out, NewPosition(s, Quantity{}))
	}
	slices.SortFunc(out, func(a, b Position) int { return strings.Compare(a.Symbol, b.Symbol) })
	return out
}
