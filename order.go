package tradesim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrInvalidQuantity rejects quantities that are not positive whole numbers
	// within MaxOrderQuantity.
	ErrInvalidQuantity = errors.New("quantity must be a positive whole number")
	// ErrInsufficientHoldings rejects a sell of more shares than held.
	ErrInsufficientHoldings = errors.New("not enough shares held")
)

// MaxOrderQuantity is the largest quantity the backend accepts in an order,
// it reads quantities as 32 bit integers.
var MaxOrderQuantity = Q(math.MaxInt32)

// ParseQuantity parses a quantity typed by a user: plain decimal digits
// only, no sign, fraction or exponent. Anything else, zero, or more than
// MaxOrderQuantity is rejected with ErrInvalidQuantity.
func ParseQuantity(s string) (Quantity, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("%w, got %q", ErrInvalidQuantity, s)
	}
	q := Q(n)
	if !validQuantity(q) {
		return Quantity{}, fmt.Errorf("%w, got %q", ErrInvalidQuantity, s)
	}
	return q, nil
}

func validQuantity(q Quantity) bool {
	return q.IsPositive() && q.IsWhole() && !q.GreaterThan(MaxOrderQuantity)
}

// ValidateOrder checks an order before it is sent.
//
// Any side needs a positive whole quantity up to MaxOrderQuantity. A sell
// also needs quantity to be at most held. Affordability of a buy is up to the
// backend.
func ValidateOrder(side Side, quantity, held Quantity) error {
	if !validQuantity(quantity) {
		return fmt.Errorf("%w, got %s", ErrInvalidQuantity, quantity)
	}
	switch side {
	case Buy:
		return nil
	case Sell:
		if held.LessThan(quantity) {
			return fmt.Errorf("cannot sell %s, %w: %s", quantity, ErrInsufficientHoldings, held)
		}
		return nil
	default:
		return fmt.Errorf("unknown side %q", side)
	}
}

// Order is the request sent to the backend's order endpoint.
type Order struct {
	PortfolioID ID
	Symbol      string
	Quantity    Quantity
	Side        Side
	Price       Money // the price displayed when the order was placed
}

// MarshalJSON implements the json.Marshaler interface for Order.
func (o Order) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("portfolioId", o.PortfolioID)
	w.Append("symbol", o.Symbol)
	w.Append("quantity", o.Quantity)
	w.Append("side", o.Side)
	w.Append("price", o.Price.Number())
	return w.MarshalJSON()
}

// OrderPlacer submits orders to the backend.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, o Order) error
}

// OrderError is returned by Ticket.Submit when the backend refused the order
// or could not be reached. It is meant to be shown to the user.
type OrderError struct {
	Order Order
	Err   error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("failed to %s %s %s: %v", e.Order.Side.Verb(), e.Order.Quantity, e.Order.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// ErrTicketClosed is returned when submitting a ticket that was not opened.
var ErrTicketClosed = errors.New("order ticket is not open")

// Ticket is the state of a buy or sell dialog on a card.
//
// A new ticket is closed with a requested quantity of 1. It is reset after a
// successful submission and left as is after a failure so the user can retry.
type Ticket struct {
	mu       sync.Mutex
	open     bool
	busy     bool
	side     Side
	quantity Quantity
}

// NewTicket returns a closed ticket.
func NewTicket() *Ticket {
	return &Ticket{quantity: Q(1)}
}

// Open opens the dialog for side.
func (t *Ticket) Open(side Side) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open, t.side = true, side
}

// Cancel closes the dialog, keeping the requested quantity.
func (t *Ticket) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = false
}

// SetQuantity sets the requested quantity. It is validated on Submit.
func (t *Ticket) SetQuantity(q Quantity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quantity = q
}

// IsOpen reports whether the dialog is open.
func (t *Ticket) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// Side returns the side the dialog was last opened for.
func (t *Ticket) Side() Side {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.side
}

// Quantity returns the requested quantity.
func (t *Ticket) Quantity() Quantity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quantity
}

// Submit validates the ticket against card and sends it.
//
// A validation failure is returned as is and nothing is sent. A backend or
// transport failure is returned as an *OrderError, the dialog stays open. On
// success the dialog closes, the quantity goes back to 1 and refresh, when not
// nil, is called to reload the holdings. The card itself is not modified.
func (t *Ticket) Submit(ctx context.Context, placer OrderPlacer, portfolio ID, card CardState, refresh func(context.Context)) error {
	t.mu.Lock()
	if !t.open {
		t.mu.Unlock()
		return ErrTicketClosed
	}
	if t.busy {
		t.mu.Unlock()
		return errors.New("order already in flight")
	}
	side, quantity := t.side, t.quantity
	if err := ValidateOrder(side, quantity, card.Quantity); err != nil {
		t.mu.Unlock()
		return err
	}
	t.busy = true
	t.mu.Unlock()

	o := Order{
		PortfolioID: portfolio,
		Symbol:      card.Symbol,
		Quantity:    quantity,
		Side:        side,
		Price:       card.Price,
	}
	err := placer.PlaceOrder(ctx, o)

	t.mu.Lock()
	t.busy = false
	if err != nil {
		t.mu.Unlock()
		logger.Info("order failed", zap.String("symbol", o.Symbol), zap.String("side", string(side)), zap.Error(err))
		return &OrderError{Order: o, Err: err}
	}
	t.open = false
	t.quantity = Q(1)
	t.mu.Unlock()

	if refresh != nil {
		refresh(ctx)
	}
	return nil
}
