package tradesim

import (
	"maps"
	"slices"
	"strings"
)

// Holdings maps an instrument symbol to the net quantity a portfolio holds.
//
// Holdings are derived, never stored: they are recomputed from the full
// transaction log and only strictly positive positions are kept.
type Holdings map[string]Quantity

// DeriveHoldings folds the transactions into net quantities per symbol: a buy
// adds its quantity, a sell subtracts it. The order of transactions does not
// matter.
//
// Transactions without a symbol, or of an unknown type, are ignored. Selling
// more than was held is not rejected, it simply yields a non positive net
// quantity, and symbols whose net quantity is zero or less are left out.
func DeriveHoldings(txs []Transaction) Holdings {
	net := make(map[string]Quantity)
	for _, tx := range txs {
		if strings.TrimSpace(tx.Symbol) == "" {
			continue
		}
		q, ok := tx.signed()
		if !ok {
			continue
		}
		net[tx.Symbol] = net[tx.Symbol].Add(q)
	}

	h := make(Holdings, len(net))
	for symbol, q := range net {
		if q.IsPositive() {
			h[symbol] = q
		}
	}
	return h
}

// Quantity returns the quantity held for symbol, zero when not held.
func (h Holdings) Quantity(symbol string) Quantity {
	return h[symbol]
}

// Symbols returns the held symbols in alphabetical order.
func (h Holdings) Symbols() []string {
	return slices.Sorted(maps.Keys(h))
}

// Equal reports whether h and o hold the same quantities of the same symbols.
func (h Holdings) Equal(o Holdings) bool {
	return maps.EqualFunc(h, o, Quantity.Equal)
}
