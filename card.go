package tradesim

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// ConnState is the state of a card's live channel.
type ConnState int

const (
	// Disconnected is the initial state, and the state after the channel
	// closed or failed.
	Disconnected ConnState = iota
	// Connected means the channel is open and price updates are applied.
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Quote is a price update pushed on the live channel.
type Quote struct {
	Symbol string
	Price  Money
}

// ErrNoPrice is returned by ParseQuote for a well formed message that carries
// no usable price.
var ErrNoPrice = errors.New("quote has no price")

// priceFields are looked up in this order, the first non zero one wins.
var priceFields = []string{"$.price", "$.currentPrice", "$.lastPrice"}

// ParseQuote decodes a live channel message. It must be a JSON object with a
// "symbol" and at least one of "price", "currentPrice" or "lastPrice", either
// as a number or a numeric string.
func ParseQuote(msg []byte) (Quote, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var obj any
	if err := dec.Decode(&obj); err != nil {
		return Quote{}, fmt.Errorf("malformed quote: %w", err)
	}

	jsym, err := jsonpath.Get("$.symbol", obj)
	if err != nil {
		return Quote{}, fmt.Errorf("malformed quote: %w", err)
	}
	symbol, ok := jsym.(string)
	if !ok || strings.TrimSpace(symbol) == "" {
		return Quote{}, fmt.Errorf("malformed quote: symbol is %v", jsym)
	}

	for _, path := range priceFields {
		jval, err := jsonpath.Get(path, obj)
		if err != nil {
			continue
		}
		price, ok := decimalOf(jval)
		if !ok || price.IsZero() {
			continue
		}
		return Quote{Symbol: symbol, Price: M(price, "")}, nil
	}
	return Quote{Symbol: symbol}, ErrNoPrice
}

// decimalOf reads a JSON number, or a numeric string, as a decimal.
func decimalOf(v any) (decimal.Decimal, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}

// CardState is a snapshot of a Card.
type CardState struct {
	Symbol   string
	Name     string
	Quantity Quantity  // held quantity, zero for a stock that is only listed
	Price    Money     // displayed price
	Delta    Money     // last non zero price change
	Conn     ConnState // live channel state
}

// Value is the position value at the displayed price.
func (s CardState) Value() Money { return s.Price.Mul(s.Quantity) }

// Card is the live state of one displayed instrument.
//
// A card starts Disconnected with the last known price of its position. Once
// Connected, quotes for its symbol update the displayed price and the last
// delta; quotes for other symbols and unreadable messages change nothing.
// The live package drives a card from a websocket.
type Card struct {
	mu       sync.Mutex
	state    CardState
	onChange []func(CardState)
}

// NewCard creates a Disconnected card showing p.
func NewCard(p Position) *Card {
	return &Card{state: CardState{
		Symbol:   p.Symbol,
		Name:     p.Name,
		Quantity: p.Quantity,
		Price:    p.Price,
		Delta:    M(0, p.Price.Currency()),
	}}
}

// Symbol returns the card's instrument symbol.
func (c *Card) Symbol() string { return c.State().Symbol }

// State returns a snapshot of the card.
func (c *Card) State() CardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnChange registers f to be called with the new state after every change.
// f is called without the card's lock held, from the goroutine that made the
// change. For a mounted card that is the subscription's read goroutine: f must
// not close that subscription synchronously (Subscription.Close,
// Board.Sync or Board.Close) since Close waits for the read goroutine. Do it
// from another goroutine.
func (c *Card) OnChange(f func(CardState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, f)
}

// Connect moves the card to Connected.
func (c *Card) Connect() { c.update(func(s *CardState) bool { return c.setConn(s, Connected) }) }

// Disconnect moves the card to Disconnected.
func (c *Card) Disconnect() { c.update(func(s *CardState) bool { return c.setConn(s, Disconnected) }) }

func (c *Card) setConn(s *CardState, conn ConnState) bool {
	if s.Conn == conn {
		return false
	}
	s.Conn = conn
	return true
}

// SetQuantity updates the held quantity after a holdings refresh. The live
// price and delta are left untouched.
func (c *Card) SetQuantity(q Quantity) {
	c.update(func(s *CardState) bool {
		if s.Quantity.Equal(q) {
			return false
		}
		s.Quantity = q
		return true
	})
}

// Apply applies a live channel message and reports whether the card changed.
//
// Messages are discarded while Disconnected, when they cannot be parsed, when
// they are for another symbol, or when the price did not move.
func (c *Card) Apply(msg []byte) bool {
	q, err := ParseQuote(msg)
	if err != nil {
		return false
	}
	return c.ApplyQuote(q)
}

// ApplyQuote is Apply for an already decoded quote.
func (c *Card) ApplyQuote(q Quote) bool {
	return c.update(func(s *CardState) bool {
		if s.Conn != Connected || q.Symbol != s.Symbol {
			return false
		}
		delta := q.Price.Sub(s.Price)
		if delta.IsZero() {
			return false
		}
		s.Delta = delta
		s.Price = q.Price
		return true
	})
}

// update runs f on the state under the lock and notifies on change.
func (c *Card) update(f func(*CardState) bool) bool {
	c.mu.Lock()
	changed := f(&c.state)
	state, listeners := c.state, c.onChange
	c.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l(state)
		}
	}
	return changed
}
