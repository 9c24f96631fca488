package tradesim

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValuate(t *testing.T) {
	ctx := context.Background()
	src := newFakeBackend().price("AAPL", 150).price("MSFT", 300)

	h := DeriveHoldings([]Transaction{
		NewTransaction(Buy, "AAPL", 10, 140),
		NewTransaction(Sell, "AAPL", 4, 150),
	})
	v := Valuate(ctx, h, src)

	want := &Valuation{
		Positions: []Position{NewPosition(src.stocks["AAPL"], Q(6))},
		Total:     USD(900),
	}
	if diff := cmp.Diff(want, v, cmpOpts); diff != "" {
		t.Errorf("Valuate() mismatch (-want +got):\n%s", diff)
	}
	if p, _ := v.Position("AAPL"); !p.Value.Equal(USD(900)) {
		t.Errorf("AAPL value = %v, want %v", p.Value, USD(900))
	}
}

func TestValuate_PartialFailure(t *testing.T) {
	ctx := context.Background()
	src := newFakeBackend().price("AAPL", 150).price("MSFT", 300).price("GOOG", 100)
	src.broken["MSFT"] = true

	h := Holdings{"AAPL": Q(2), "MSFT": Q(5), "GOOG": Q(1), "NOPE": Q(3)}
	v := Valuate(ctx, h, src)

	var symbols []string
	for _, p := range v.Positions {
		symbols = append(symbols, p.Symbol)
	}
	if diff := cmp.Diff([]string{"AAPL", "GOOG"}, symbols); diff != "" {
		t.Errorf("Positions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"MSFT", "NOPE"}, v.Missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
	if want := USD(400); !v.Total.Equal(want) {
		t.Errorf("Total = %v, want %v", v.Total, want)
	}
}

func TestValuate_TotalIsSumOfValues(t *testing.T) {
	ctx := context.Background()
	src := newFakeBackend().price("AAPL", 150.25).price("MSFT", 301.5).price("GOOG", 99.99)
	v := Valuate(ctx, Holdings{"AAPL": Q(3), "MSFT": Q(7), "GOOG": Q(11)}, src)

	sum := M(0, "")
	for _, p := range v.Positions {
		if want := p.Price.Mul(p.Quantity); !p.Value.Equal(want) {
			t.Errorf("%s value = %v, want %v", p.Symbol, p.Value, want)
		}
		sum = sum.Add(p.Value)
	}
	if !v.Total.Equal(sum) {
		t.Errorf("Total = %v, want %v", v.Total, sum)
	}
}

func TestValuate_Empty(t *testing.T) {
	v := Valuate(context.Background(), Holdings{}, newFakeBackend())
	if len(v.Positions) != 0 {
		t.Errorf("len(Positions) = %d, want 0", len(v.Positions))
	}
	if !v.Total.IsZero() {
		t.Errorf("Total = %v, want 0", v.Total)
	}
}

func TestValuation_Market(t *testing.T) {
	src := newFakeBackend().price("AAPL", 150).price("MSFT", 300)
	v := Valuate(context.Background(), Holdings{"MSFT": Q(2)}, src)

	got := v.Market([]Stock{src.stocks["MSFT"], src.stocks["AAPL"]})
	want := []Position{
		NewPosition(src.stocks["AAPL"], Quantity{}),
		NewPosition(src.stocks["MSFT"], Q(2)),
	}
	if diff := cmp.Diff(want, got, cmpOpts); diff != "" {
		t.Errorf("Market() mismatch (-want +got):\n%s", diff)
	}

	var none *Valuation
	if got := none.Market([]Stock{src.stocks["AAPL"]}); len(got) != 1 || !got[0].Quantity.IsZero() {
		t.Errorf("nil Valuation Market() = %v, want one unheld position", got)
	}
}
