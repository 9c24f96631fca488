package api

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/etnz/tradesim"
)

// stockCache holds recently fetched stocks. A nil *stockCache is a valid,
// always empty, cache.
type stockCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func newStockCache(ttl time.Duration) (*stockCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 12, // stocks, each costs 1
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create stock cache: %w", err)
	}
	return &stockCache{c: c, ttl: ttl}, nil
}

func (s *stockCache) get(symbol string) (tradesim.Stock, bool) {
	if s == nil {
		return tradesim.Stock{}, false
	}
	v, ok := s.c.Get(symbol)
	if !ok {
		return tradesim.Stock{}, false
	}
	stock, ok := v.(tradesim.Stock)
	return stock, ok
}

func (s *stockCache) set(stock tradesim.Stock) {
	if s == nil || stock.Symbol == "" {
		return
	}
	s.c.SetWithTTL(stock.Symbol, stock, 1, s.ttl)
}

func (s *stockCache) del(symbol string) {
	if s == nil {
		return
	}
	s.c.Del(symbol)
}

// wait blocks until pending writes are visible.
func (s *stockCache) wait() {
	if s != nil {
		s.c.Wait()
	}
}
