// Package tradesim is the client side of the trading simulator. It holds the
// logic a dashboard needs on top of the simulator's backend, which owns order
// matching, price simulation and persistence.
//
// The core functionalities include:
//   - Session bootstrap: creating or resuming a user and its portfolio, with a
//     locally persisted reference to it.
//   - Holdings derivation: folding the portfolio's transaction log into net
//     quantities per instrument.
//   - Portfolio valuation: joining holdings with current instrument prices into
//     positions and a total value, tolerating per-instrument lookup failures.
//   - Live price reconciliation: a per-instrument Card fed by push messages.
//   - Order submission: validating buy and sell tickets before they reach the
//     backend, then refreshing the holdings.
//
// The backend is reached through small interfaces (StockSource, Backend,
// Registrar, OrderPlacer) implemented by the api package; the live channel is
// implemented by the live package. This package serves as the foundational
// logic for the `tsim` command-line tool.
package tradesim
