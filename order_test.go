package tradesim

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1", want: 1},
		{in: " 42 ", want: 42},
		{in: "2147483647", want: 2147483647},
		{in: "3.0", wantErr: true},
		{in: "1e2", wantErr: true},
		{in: "+3", wantErr: true},
		{in: "2147483648", wantErr: true},
		{in: "20000000000000000000", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-2", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseQuantity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseQuantity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !errors.Is(err, ErrInvalidQuantity) {
				t.Errorf("ParseQuantity(%q) error = %v, want %v", tt.in, err, ErrInvalidQuantity)
			}
			continue
		}
		if !got.Equal(Q(tt.want)) {
			t.Errorf("ParseQuantity(%q) = %v, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValidateOrder(t *testing.T) {
	tests := []struct {
		name     string
		side     Side
		quantity Quantity
		held     Quantity
		want     error
	}{
		{"buy without holdings", Buy, Q(1000), Quantity{}, nil},
		{"buy zero", Buy, Q(0), Q(5), ErrInvalidQuantity},
		{"buy fraction", Buy, Q(0.5), Q(5), ErrInvalidQuantity},
		{"sell all", Sell, Q(3), Q(3), nil},
		{"sell some", Sell, Q(2), Q(3), nil},
		{"oversell", Sell, Q(5), Q(3), ErrInsufficientHoldings},
		{"sell unheld", Sell, Q(1), Quantity{}, ErrInsufficientHoldings},
		{"sell negative", Sell, Q(-1), Q(3), ErrInvalidQuantity},
		{"buy largest", Buy, MaxOrderQuantity, Quantity{}, nil},
		{"buy beyond backend range", Buy, MaxOrderQuantity.Add(Q(1)), Quantity{}, ErrInvalidQuantity},
		{"buy beyond int64", Buy, Q(decimal.RequireFromString("20000000000000000000")), Quantity{}, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrder(tt.side, tt.quantity, tt.held)
			if tt.want == nil && err != nil {
				t.Errorf("ValidateOrder() error = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("ValidateOrder() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOrder_MarshalJSON(t *testing.T) {
	o := Order{PortfolioID: "12", Symbol: "AAPL", Quantity: Q(3), Side: Sell, Price: USD(150.25)}
	got, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"portfolioId":12,"symbol":"AAPL","quantity":3,"side":"SELL","price":150.25}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestOrder_MarshalJSON_ExactQuantity(t *testing.T) {
	o := Order{PortfolioID: "1", Symbol: "AAPL", Quantity: Q(decimal.RequireFromString("20000000000000000000")), Side: Buy, Price: USD(1)}
	got, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"portfolioId":1,"symbol":"AAPL","quantity":20000000000000000000,"side":"BUY","price":1}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestTicket_QuantityOutOfRange(t *testing.T) {
	backend := newFakeBackend()
	ticket := NewTicket()
	ticket.Open(Buy)
	ticket.SetQuantity(MaxOrderQuantity.Add(Q(1)))

	err := ticket.Submit(context.Background(), backend, "1", heldCard("AAPL", 0, 150), nil)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("Submit() error = %v, want %v", err, ErrInvalidQuantity)
	}
	if len(backend.orders) != 0 {
		t.Errorf("orders sent = %v, want none", backend.orders)
	}
}

func heldCard(symbol string, held int, price float64) CardState {
	return CardState{Symbol: symbol, Quantity: Q(held), Price: USD(price), Conn: Connected}
}

func TestTicket_RejectedLocally(t *testing.T) {
	backend := newFakeBackend()
	ticket := NewTicket()
	ticket.Open(Sell)
	ticket.SetQuantity(Q(5))

	refreshed := false
	err := ticket.Submit(context.Background(), backend, "1", heldCard("AAPL", 3, 150), func(context.Context) { refreshed = true })
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("Submit() error = %v, want %v", err, ErrInsufficientHoldings)
	}
	if len(backend.orders) != 0 {
		t.Errorf("orders sent = %v, want none", backend.orders)
	}
	if refreshed {
		t.Error("refresh called after a rejected order")
	}
	if !ticket.IsOpen() || !ticket.Quantity().Equal(Q(5)) {
		t.Errorf("ticket changed after rejection: open %v quantity %v", ticket.IsOpen(), ticket.Quantity())
	}
}

func TestTicket_Accepted(t *testing.T) {
	backend := newFakeBackend()
	ticket := NewTicket()
	ticket.Open(Sell)
	ticket.SetQuantity(Q(3))

	refreshed := 0
	card := heldCard("AAPL", 3, 150)
	if err := ticket.Submit(context.Background(), backend, "7", card, func(context.Context) { refreshed++ }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(backend.orders) != 1 {
		t.Fatalf("orders sent = %d, want 1", len(backend.orders))
	}
	o := backend.orders[0]
	if o.PortfolioID != "7" || o.Symbol != "AAPL" || o.Side != Sell || !o.Quantity.Equal(Q(3)) || !o.Price.Equal(USD(150)) {
		t.Errorf("order sent = %+v", o)
	}
	if refreshed != 1 {
		t.Errorf("refresh called %d times, want 1", refreshed)
	}
	if ticket.IsOpen() {
		t.Error("ticket still open after success")
	}
	if !ticket.Quantity().Equal(Q(1)) {
		t.Errorf("Quantity() = %v, want 1", ticket.Quantity())
	}
}

func TestTicket_BackendFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.orderErr = errBackend
	ticket := NewTicket()
	ticket.Open(Buy)
	ticket.SetQuantity(Q(2))

	err := ticket.Submit(context.Background(), backend, "7", heldCard("MSFT", 0, 300), func(context.Context) {
		t.Error("refresh called after a failed order")
	})
	var oerr *OrderError
	if !errors.As(err, &oerr) {
		t.Fatalf("Submit() error = %v, want an *OrderError", err)
	}
	if !errors.Is(err, errBackend) {
		t.Errorf("Submit() error = %v, want it to wrap %v", err, errBackend)
	}
	if oerr.Order.Symbol != "MSFT" {
		t.Errorf("OrderError.Order.Symbol = %q, want MSFT", oerr.Order.Symbol)
	}
	if !ticket.IsOpen() || !ticket.Quantity().Equal(Q(2)) {
		t.Errorf("ticket changed after failure: open %v quantity %v", ticket.IsOpen(), ticket.Quantity())
	}
}

func TestTicket_NotOpen(t *testing.T) {
	ticket := NewTicket()
	err := ticket.Submit(context.Background(), newFakeBackend(), "7", heldCard("AAPL", 3, 1), nil)
	if !errors.Is(err, ErrTicketClosed) {
		t.Errorf("Submit() error = %v, want %v", err, ErrTicketClosed)
	}

	ticket.Open(Buy)
	ticket.Cancel()
	if ticket.IsOpen() {
		t.Error("IsOpen() = true after Cancel")
	}
}
