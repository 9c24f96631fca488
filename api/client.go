// Package api is the REST client of the trading simulator backend.
//
// A Client implements every backend interface of the tradesim package:
// tradesim.Backend, tradesim.Registrar and tradesim.OrderPlacer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/tradesim"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every request when no http.Client is provided.
const DefaultTimeout = 15 * time.Second

// Client calls the simulator REST API.
type Client struct {
	base     *url.URL
	http     *http.Client
	cacheTTL time.Duration
	cache    *stockCache // nil when disabled
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses h to send requests. It is mostly used by tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the timeout of each request. A client given with
// WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			h := *c.http
			h.Timeout = d
			c.http = &h
		}
	}
}

// WithStockCache keeps stocks fetched from the backend for ttl, so that the
// stocks listed by one view are not fetched again to value the holdings of
// the next. A zero ttl disables the cache.
func WithStockCache(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

// New returns a client for the backend at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(base)
	if raw == "" {
		return nil, errors.New("backend url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", base)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: DefaultTimeout, Transport: &logTransport{base: http.DefaultTransport}},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheTTL > 0 {
		if c.cache, err = newStockCache(c.cacheTTL); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BaseURL returns the backend url.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// StatusError is returned when the backend answers with a non success status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string // at most the first 4KiB
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound
}

// CreateUser registers a new user.
func (c *Client) CreateUser(ctx context.Context, username string) (tradesim.User, error) {
	var u tradesim.User
	payload := struct {
		Username string `json:"username"`
	}{username}
	err := c.doRequest(ctx, http.MethodPost, "/api/users", payload, &u)
	return u, err
}

// CreatePortfolio creates a portfolio owned by user.
func (c *Client) CreatePortfolio(ctx context.Context, user tradesim.ID) (tradesim.Portfolio, error) {
	var p tradesim.Portfolio
	payload := struct {
		User tradesim.User `json:"user"`
	}{tradesim.User{ID: user}}
	err := c.doRequest(ctx, http.MethodPost, "/api/portfolios", payload, &p)
	return p, err
}

// Portfolio returns the portfolio id.
func (c *Client) Portfolio(ctx context.Context, id tradesim.ID) (tradesim.Portfolio, error) {
	var p tradesim.Portfolio
	err := c.doRequest(ctx, http.MethodGet, "/api/portfolios/"+url.PathEscape(id.String()), nil, &p)
	return p, err
}

// Transactions returns every transaction of portfolio.
func (c *Client) Transactions(ctx context.Context, portfolio tradesim.ID) ([]tradesim.Transaction, error) {
	var txs []tradesim.Transaction
	err := c.doRequest(ctx, http.MethodGet, "/api/portfolios/"+url.PathEscape(portfolio.String())+"/transactions", nil, &txs)
	return txs, err
}

// ValueHistory returns the value history of portfolio. A portfolio without
// history is not an error, whether the backend answers with an empty list or
// with an error status.
func (c *Client) ValueHistory(ctx context.Context, portfolio tradesim.ID) ([]tradesim.ValuePoint, error) {
	var points []tradesim.ValuePoint
	err := c.doRequest(ctx, http.MethodGet, "/api/portfolios/"+url.PathEscape(portfolio.String())+"/value-history", nil, &points)
	var serr *StatusError
	if errors.As(err, &serr) {
		tradesim.Logger().Debug("no value history", zap.Stringer("portfolio", portfolio), zap.Int("status", serr.StatusCode))
		return nil, nil
	}
	return points, err
}

// Stocks returns every stock available for trading.
func (c *Client) Stocks(ctx context.Context) ([]tradesim.Stock, error) {
	var stocks []tradesim.Stock
	if err := c.doRequest(ctx, http.MethodGet, "/api/stocks", nil, &stocks); err != nil {
		return nil, err
	}
	for _, s := range stocks {
		c.cache.set(s)
	}
	c.cache.wait()
	return stocks, nil
}

// Stock returns the stock symbol.
func (c *Client) Stock(ctx context.Context, symbol string) (tradesim.Stock, error) {
	if s, ok := c.cache.get(symbol); ok {
		return s, nil
	}
	var s tradesim.Stock
	if err := c.doRequest(ctx, http.MethodGet, "/api/stocks/"+url.PathEscape(symbol), nil, &s); err != nil {
		return tradesim.Stock{}, err
	}
	if s.Symbol == "" {
		s.Symbol = symbol
	}
	c.cache.set(s)
	return s, nil
}

// PlaceOrder submits o. Only the status of the answer matters.
func (c *Client) PlaceOrder(ctx context.Context, o tradesim.Order) error {
	defer c.cache.del(o.Symbol)
	return c.doRequest(ctx, http.MethodPost, "/api/orders", o, nil)
}

// doRequest sends payload as JSON, when not nil, and decodes the answer into
// out, when not nil.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, out any) error {
	endpoint := c.base.JoinPath(path)

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("cannot encode %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("cannot create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cannot %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cannot read %s %s response: %w", method, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed %s %s response: %w", method, path, err)
	}
	return nil
}

var (
	_ tradesim.Backend     = (*Client)(nil)
	_ tradesim.Registrar   = (*Client)(nil)
	_ tradesim.OrderPlacer = (*Client)(nil)
)
