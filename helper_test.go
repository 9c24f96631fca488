package tradesim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/go-cmp/cmp"
)

// cmpOpts compares the decimal backed types by value.
var cmpOpts = cmp.Options{
	cmp.Comparer(Quantity.Equal),
	cmp.Comparer(Money.Equal),
}

var errBackend = errors.New("backend unavailable")

// fakeBackend is an in memory simulator backend.
type fakeBackend struct {
	mu      sync.Mutex
	txs     map[ID][]Transaction
	stocks  map[string]Stock
	broken  map[string]bool // symbols whose lookup fails
	history map[ID][]ValuePoint

	txErr, stocksErr, historyErr, orderErr error

	// gate, when set, is called before Transactions returns, to order
	// concurrent calls.
	gate func(call int)
	call int

	orders []Order
	users  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		txs:     make(map[ID][]Transaction),
		stocks:  make(map[string]Stock),
		broken:  make(map[string]bool),
		history: make(map[ID][]ValuePoint),
	}
}

func (f *fakeBackend) price(symbol string, price float64) *fakeBackend {
	f.stocks[symbol] = Stock{Symbol: symbol, Name: symbol + " Inc.", Price: USD(price)}
	return f
}

func (f *fakeBackend) Stock(ctx context.Context, symbol string) (Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[symbol] {
		return Stock{}, errBackend
	}
	s, ok := f.stocks[symbol]
	if !ok {
		return Stock{}, fmt.Errorf("stock %s: not found", symbol)
	}
	return s, nil
}

func (f *fakeBackend) Stocks(ctx context.Context) ([]Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stocksErr != nil {
		return nil, f.stocksErr
	}
	var out []Stock
	for _, s := range f.stocks {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeBackend) Transactions(ctx context.Context, portfolio ID) ([]Transaction, error) {
	f.mu.Lock()
	f.call++
	call, gate := f.call, f.gate
	txs, err := append([]Transaction(nil), f.txs[portfolio]...), f.txErr
	f.mu.Unlock()
	if gate != nil {
		gate(call)
	}
	return txs, err
}

func (f *fakeBackend) ValueHistory(ctx context.Context, portfolio ID) ([]ValuePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[portfolio], nil
}

func (f *fakeBackend) PlaceOrder(ctx context.Context, o Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return f.orderErr
	}
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakeBackend) CreateUser(ctx context.Context, username string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users++
	return User{ID: ID(fmt.Sprint(f.users)), Username: username}, nil
}

func (f *fakeBackend) CreatePortfolio(ctx context.Context, user ID) (Portfolio, error) {
	return Portfolio{ID: "10" + user, User: &User{ID: user}}, nil
}

// memStore is a SessionStore in memory.
type memStore struct {
	id    Identity
	saves int
	err   error
}

func (m *memStore) Load() (Identity, error) {
	if m.err != nil {
		return Identity{}, m.err
	}
	if m.id.IsZero() {
		return Identity{}, ErrNoSession
	}
	return m.id, nil
}

func (m *memStore) Save(id Identity) error {
	m.saves++
	m.id = id
	return nil
}

func (m *memStore) Clear() error {
	m.id = Identity{}
	return nil
}
