package tradesim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Backend is everything a Dashboard reads from the simulator.
type Backend interface {
	StockSource
	Transactions(ctx context.Context, portfolio ID) ([]Transaction, error)
	Stocks(ctx context.Context) ([]Stock, error)
	ValueHistory(ctx context.Context, portfolio ID) ([]ValuePoint, error)
}

var (
	// ErrClosed is returned for work that completed after its Dashboard was closed.
	ErrClosed = errors.New("dashboard closed")
	// ErrSuperseded is returned for a load whose result was discarded because a
	// newer one of the same kind was issued while it ran.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// View is the committed state of a Dashboard.
type View struct {
	Portfolio ID
	Valuation *Valuation   // nil until the first successful refresh
	Stocks    []Stock      // available stocks, sorted by symbol
	History   []ValuePoint // empty means no history
	Err       error        // error of the last holdings refresh, if it failed
}

// Positions returns the valued holdings, nil before the first refresh.
func (v View) Positions() []Position {
	if v.Valuation == nil {
		return nil
	}
	return v.Valuation.Positions
}

// sequence orders the loads of one kind: only the last one issued may commit.
type sequence struct{ issued atomic.Uint64 }

func (s *sequence) next() uint64         { return s.issued.Add(1) }
func (s *sequence) latest(n uint64) bool { return s.issued.Load() == n }
func (s *sequence) invalidate()          { s.issued.Add(1) }

// Dashboard owns the state of a portfolio view and the loads that feed it.
//
// Loads may overlap. For each kind of load (holdings, stocks, history) the
// last one issued wins: a result that resolves after a newer load was issued
// is discarded, even if it resolves last. After Close nothing is committed any
// more.
type Dashboard struct {
	backend Backend

	refreshes, stockLoads, historyLoads sequence

	mu        sync.Mutex
	closed    bool
	view      View
	listeners []func(View)
}

// NewDashboard returns a dashboard with no portfolio, see Switch.
func NewDashboard(b Backend) *Dashboard {
	return &Dashboard{backend: b}
}

// View returns the committed state.
func (d *Dashboard) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Portfolio returns the portfolio being shown.
func (d *Dashboard) Portfolio() ID { return d.View().Portfolio }

// OnChange registers f to be called after each commit, outside of any lock.
func (d *Dashboard) OnChange(f func(View)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, f)
}

// Close tears the dashboard down. In flight loads are not cancelled but their
// results are dropped. Close is idempotent.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.listeners = nil
}

// commit applies f to the view if seq is still the latest of s.
func (d *Dashboard) commit(s *sequence, seq uint64, f func(*View)) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if !s.latest(seq) {
		d.mu.Unlock()
		return ErrSuperseded
	}
	f(&d.view)
	view, listeners := d.view, d.listeners
	d.mu.Unlock()

	for _, l := range listeners {
		l(view)
	}
	return nil
}

// Refresh reloads the transactions, derives the holdings and values them.
//
// A failure to read the transactions is recorded in the view and returned,
// the previous valuation stays. Failed price lookups only drop their position.
func (d *Dashboard) Refresh(ctx context.Context) (*Valuation, error) {
	seq := d.refreshes.next()
	portfolio := d.Portfolio()
	if portfolio.IsZero() {
		return nil, ErrNoSession
	}

	txs, err := d.backend.Transactions(ctx, portfolio)
	if err != nil {
		err = fmt.Errorf("cannot load transactions of portfolio %s: %w", portfolio, err)
		if cerr := d.commit(&d.refreshes, seq, func(v *View) { v.Err = err }); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	val := Valuate(ctx, DeriveHoldings(txs), d.backend)
	if len(val.Missing) > 0 {
		logger.Info("positions left out of valuation", zap.Strings("symbols", val.Missing))
	}
	if err := d.commit(&d.refreshes, seq, func(v *View) {
		v.Valuation = val
		v.Err = nil
	}); err != nil {
		return nil, err
	}
	return val, nil
}

// Reload is Refresh for callers that only need the view updated, like a
// successful order.
func (d *Dashboard) Reload(ctx context.Context) {
	if _, err := d.Refresh(ctx); err != nil {
		logger.Debug("reload", zap.Error(err))
	}
}

// LoadStocks reloads the available stocks. A failure is not an error: the
// list is left empty and the failure logged.
func (d *Dashboard) LoadStocks(ctx context.Context) ([]Stock, error) {
	seq := d.stockLoads.next()
	stocks, err := d.backend.Stocks(ctx)
	if err != nil {
		logger.Warn("cannot load stocks", zap.Error(err))
		stocks = nil
	}
	stocks = slices.Clone(stocks)
	slices.SortFunc(stocks, func(a, b Stock) int { return strings.Compare(a.Symbol, b.Symbol) })
	if err := d.commit(&d.stockLoads, seq, func(v *View) { v.Stocks = stocks }); err != nil {
		return nil, err
	}
	return stocks, nil
}

// LoadHistory reloads the value history. A failure means no history.
func (d *Dashboard) LoadHistory(ctx context.Context) ([]ValuePoint, error) {
	seq := d.historyLoads.next()
	portfolio := d.Portfolio()
	if portfolio.IsZero() {
		return nil, ErrNoSession
	}
	points, err := d.backend.ValueHistory(ctx, portfolio)
	if err != nil {
		logger.Warn("cannot load value history", zap.Stringer("portfolio", portfolio), zap.Error(err))
		points = nil
	}
	if err := d.commit(&d.historyLoads, seq, func(v *View) { v.History = points }); err != nil {
		return nil, err
	}
	return points, nil
}

// Market returns every available stock as a position, see Valuation.Market.
func (d *Dashboard) Market() []Position {
	v := d.View()
	return v.Valuation.Market(v.Stocks)
}

// Effect is a load a Dashboard performs.
type Effect int

const (
	EffectRefresh Effect = iota // reload holdings and valuation
	EffectStocks                // reload available stocks
	EffectHistory               // reload value history
)

func (e Effect) String() string {
	switch e {
	case EffectRefresh:
		return "refresh"
	case EffectStocks:
		return "stocks"
	case EffectHistory:
		return "history"
	default:
		return fmt.Sprintf("Effect(%d)", int(e))
	}
}

// EffectsFor returns the loads needed when the shown portfolio goes from prev
// to next: everything for a new portfolio, nothing otherwise.
func EffectsFor(prev, next ID) []Effect {
	if next.IsZero() || next == prev {
		return nil
	}
	return []Effect{EffectRefresh, EffectStocks, EffectHistory}
}

// Perform runs the effects concurrently and returns their joined errors.
func (d *Dashboard) Perform(ctx context.Context, effects ...Effect) error {
	errs := make([]error, len(effects))
	var g errgroup.Group
	for i, e := range effects {
		g.Go(func() error {
			var err error
			switch e {
			case EffectRefresh:
				_, err = d.Refresh(ctx)
			case EffectStocks:
				_, err = d.LoadStocks(ctx)
			case EffectHistory:
				_, err = d.LoadHistory(ctx)
			default:
				err = fmt.Errorf("unknown effect %v", e)
			}
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Switch shows portfolio id, performing the loads EffectsFor requires.
// Results of loads issued for the previous portfolio are discarded. Switching
// to the zero ID empties the view, as after a logout.
func (d *Dashboard) Switch(ctx context.Context, id ID) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	prev := d.view.Portfolio
	if prev != id {
		d.refreshes.invalidate()
		d.stockLoads.invalidate()
		d.historyLoads.invalidate()
		d.view = View{Portfolio: id}
	}
	d.mu.Unlock()
	return d.Perform(ctx, EffectsFor(prev, id)...)
}
