package live

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/etnz/tradesim"
	"go.uber.org/zap"
)

// ErrBoardClosed is returned by a Board after Close.
var ErrBoardClosed = errors.New("board closed")

type mount struct {
	card *tradesim.Card
	sub  *Subscription // nil when the dial failed
}

func (m *mount) unmount() {
	if m.sub != nil {
		m.sub.Close()
	}
}

// Board is the set of cards shown by a view, one per symbol, each with its own
// subscription.
type Board struct {
	dialer Dialer
	url    string

	syncMu sync.Mutex // serializes Sync, Remount and Close

	mu       sync.Mutex
	closed   bool
	mounts   map[string]*mount
	onChange []func(tradesim.CardState)
}

// NewBoard returns an empty board whose cards connect to url.
func NewBoard(d Dialer, url string) *Board {
	return &Board{dialer: d, url: url, mounts: make(map[string]*mount)}
}

// OnChange registers f on every card mounted afterwards. f runs on the read
// goroutine of the card's subscription and must not call Sync, Remount or
// Close itself, they would wait for that goroutine forever. Hand them to
// another goroutine instead.
func (b *Board) OnChange(f func(tradesim.CardState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = append(b.onChange, f)
}

// Sync makes the board show exactly positions.
//
// Cards for new symbols are created and mounted, cards for symbols that are
// gone are unmounted, and the others only get their held quantity updated, so
// their live price is kept. A card whose dial failed is still shown,
// Disconnected, and the dial errors are returned joined.
func (b *Board) Sync(ctx context.Context, positions ...tradesim.Position) error {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	want := make(map[string]tradesim.Position, len(positions))
	for _, p := range positions {
		want[p.Symbol] = p
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBoardClosed
	}
	var removed []*mount
	for symbol, m := range b.mounts {
		if _, ok := want[symbol]; !ok {
			removed = append(removed, m)
			delete(b.mounts, symbol)
		}
	}
	existing := maps.Clone(b.mounts)
	listeners := slices.Clone(b.onChange)
	b.mu.Unlock()

	for _, m := range removed {
		m.unmount()
	}

	var errs []error
	for _, symbol := range slices.Sorted(maps.Keys(want)) {
		p := want[symbol]
		if m, ok := existing[symbol]; ok {
			m.card.SetQuantity(p.Quantity)
			continue
		}
		card := tradesim.NewCard(p)
		for _, f := range listeners {
			card.OnChange(f)
		}
		m := &mount{card: card}
		sub, err := Mount(ctx, b.dialer, b.url, card)
		if err != nil {
			errs = append(errs, err)
		}
		m.sub = sub
		b.mu.Lock()
		b.mounts[symbol] = m
		b.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Remount closes the subscription of symbol's card, if any, and mounts the
// card again. It is the only way to reconnect a card.
func (b *Board) Remount(ctx context.Context, symbol string) error {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	b.mu.Lock()
	m, ok := b.mounts[symbol]
	closed := b.closed
	b.mu.Unlock()
	switch {
	case closed:
		return ErrBoardClosed
	case !ok:
		return errors.New("no card for " + symbol)
	}

	m.unmount()
	sub, err := Mount(ctx, b.dialer, b.url, m.card)
	b.mu.Lock()
	m.sub = sub
	b.mu.Unlock()
	if err != nil {
		tradesim.Logger().Info("remount failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return err
}

// Card returns the card of symbol.
func (b *Board) Card(symbol string) (*tradesim.Card, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.mounts[symbol]
	if !ok {
		return nil, false
	}
	return m.card, true
}

// Cards returns the state of every card, sorted by symbol.
func (b *Board) Cards() []tradesim.CardState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]tradesim.CardState, 0, len(b.mounts))
	for _, symbol := range slices.Sorted(maps.Keys(b.mounts)) {
		out = append(out, b.mounts[symbol].card.State())
	}
	return out
}

// Close unmounts every card. After Close the board is empty and unusable.
func (b *Board) Close() error {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	mounts := b.mounts
	b.mounts = make(map[string]*mount)
	b.mu.Unlock()

	var errs []error
	for _, m := range mounts {
		if m.sub != nil {
			errs = append(errs, m.sub.Close())
		}
	}
	return errors.Join(errs...)
}
