package tradesim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order or a transaction.
type Side string

// Sides known by the backend.
const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide parses "buy" or "sell" in any case.
func ParseSide(s string) (Side, error) {
	switch side := Side(strings.ToUpper(strings.TrimSpace(s))); side {
	case Buy, Sell:
		return side, nil
	default:
		return "", fmt.Errorf("unknown side %q, expected BUY or SELL", s)
	}
}

// Verb returns the lower case verb for side, as used in messages.
func (s Side) Verb() string { return strings.ToLower(string(s)) }

// Transaction is an executed order as recorded by the backend.
// Transactions are immutable, the client only ever reads them.
type Transaction struct {
	ID        int64     `json:"id,omitempty"`
	Symbol    string    `json:"stockSymbol"`
	Quantity  Quantity  `json:"quantity"`
	Price     Money     `json:"price"`
	Type      Side      `json:"type"`
	Timestamp Timestamp `json:"timestamp"`
}

// NewTransaction creates a transaction, mostly useful to tests and fakes.
func NewTransaction(side Side, symbol string, quantity int, price float64) Transaction {
	return Transaction{
		Symbol:   symbol,
		Quantity: Q(quantity),
		Price:    USD(price),
		Type:     side,
	}
}

// signed returns the quantity counted positively for a buy and negatively for
// a sell. ok is false for any other kind of transaction.
func (t Transaction) signed() (q Quantity, ok bool) {
	switch t.Type {
	case Buy:
		return t.Quantity, true
	case Sell:
		return Quantity{}.Sub(t.Quantity), true
	default:
		return Quantity{}, false
	}
}

// Timestamp is a point in time as sent by the backend.
//
// The backend is not consistent: transaction timestamps are local date-times
// without a zone, value history uses instants that are either RFC 3339 strings
// or epoch seconds. Timestamps are only displayed, so an unreadable value
// decodes to the zero Timestamp instead of failing the whole payload.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*t = Timestamp{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		for _, layout := range timestampLayouts {
			if v, err := time.Parse(layout, s); err == nil {
				t.Time = v
				return nil
			}
		}
		return nil
	}
	if seconds, err := decimal.NewFromString(string(b)); err == nil {
		whole := seconds.IntPart()
		nanos := seconds.Sub(decimal.NewFromInt(whole)).Shift(9).IntPart()
		t.Time = time.Unix(whole, nanos).UTC()
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
