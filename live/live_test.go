package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/etnz/tradesim"
	"github.com/gorilla/websocket"
)

// feed is a price feed server, each accepted connection is sent on conns.
type feed struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newFeed(t *testing.T) *feed {
	t.Helper()
	f := &feed{conns: make(chan *websocket.Conn, 16)}
	var up websocket.Upgrader
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- c
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *feed) url(t *testing.T) string {
	t.Helper()
	u, err := URLFor(f.srv.URL)
	if err != nil {
		t.Fatalf("URLFor() error = %v", err)
	}
	return u
}

func (f *feed) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("no connection to the feed")
		return nil
	}
}

func send(t *testing.T, c *websocket.Conn, msg string) {
	t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

// watch returns a channel receiving every change of card.
func watch(card *tradesim.Card) <-chan tradesim.CardState {
	ch := make(chan tradesim.CardState, 32)
	card.OnChange(func(s tradesim.CardState) { ch <- s })
	return ch
}

func next(t *testing.T, ch <-chan tradesim.CardState) tradesim.CardState {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("card did not change")
		return tradesim.CardState{}
	}
}

func waitDone(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription still running")
	}
}

func newCard(symbol string, price float64) *tradesim.Card {
	return tradesim.NewCard(tradesim.NewPosition(tradesim.Stock{Symbol: symbol, Price: tradesim.USD(price)}, tradesim.Q(1)))
}

func TestURLFor(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://sim.example.com/api?x=1", "wss://sim.example.com/ws"},
		{"ws://localhost:8080/feed", "ws://localhost:8080/ws"},
	}
	for _, tt := range tests {
		got, err := URLFor(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("URLFor(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
	for _, in := range []string{"ftp://host", "localhost:8080", "http://"} {
		if _, err := URLFor(in); err == nil {
			t.Errorf("URLFor(%q) error = nil, want an error", in)
		}
	}
}

func TestMount(t *testing.T) {
	f := newFeed(t)
	card := newCard("AAPL", 100)
	changes := watch(card)

	sub, err := Mount(context.Background(), nil, f.url(t), card)
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	defer sub.Close()
	if s := next(t, changes); s.Conn != tradesim.Connected {
		t.Fatalf("Conn = %v, want connected", s.Conn)
	}

	server := f.accept(t)
	send(t, server, `{"symbol":"MSFT","price":300}`)
	send(t, server, `{"symbol":"AAPL","price":`)
	send(t, server, `{"symbol":"AAPL","currentPrice":101}`)

	s := next(t, changes)
	if !s.Price.Equal(tradesim.USD(101)) || !s.Delta.Equal(tradesim.USD(1)) {
		t.Errorf("state = %+v, want price 101 and delta 1", s)
	}
}

func TestSubscription_Close(t *testing.T) {
	f := newFeed(t)
	card := newCard("AAPL", 100)

	sub, err := Mount(context.Background(), nil, f.url(t), card)
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	server := f.accept(t)

	if err := sub.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	waitDone(t, sub)
	if got := card.State().Conn; got != tradesim.Disconnected {
		t.Errorf("Conn = %v, want disconnected", got)
	}

	// too late, nothing reads it
	server.WriteMessage(websocket.TextMessage, []byte(`{"symbol":"AAPL","price":150}`))
	if got := card.State().Price; !got.Equal(tradesim.USD(100)) {
		t.Errorf("Price = %v after Close, want 100", got)
	}
	if err := sub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestSubscription_CloseFromListener(t *testing.T) {
	f := newFeed(t)
	card := newCard("AAPL", 100)

	sub, err := Mount(context.Background(), nil, f.url(t), card)
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	closed := make(chan error, 1)
	card.OnChange(func(s tradesim.CardState) {
		if s.Conn == tradesim.Connected && s.Price.Equal(tradesim.USD(120)) {
			go func() { closed <- sub.Close() }()
		}
	})
	send(t, f.accept(t), `{"symbol":"AAPL","price":120}`)

	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close() from a listener goroutine did not return")
	}
	waitDone(t, sub)
	if got := card.State(); got.Conn != tradesim.Disconnected || !got.Price.Equal(tradesim.USD(120)) {
		t.Errorf("state = %+v, want disconnected at 120", got)
	}
}

func TestSubscription_FeedLost(t *testing.T) {
	f := newFeed(t)
	card := newCard("AAPL", 100)

	sub, err := Mount(context.Background(), nil, f.url(t), card)
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	f.accept(t).Close()

	waitDone(t, sub)
	if got := card.State().Conn; got != tradesim.Disconnected {
		t.Errorf("Conn = %v, want disconnected", got)
	}
}

func TestSubscription_ContextDone(t *testing.T) {
	f := newFeed(t)
	card := newCard("AAPL", 100)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := Mount(ctx, nil, f.url(t), card)
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	f.accept(t)
	cancel()
	waitDone(t, sub)
}

func TestMount_DialFailure(t *testing.T) {
	f := newFeed(t)
	card := newCard("AAPL", 100)
	bad := strings.TrimSuffix(f.url(t), "/ws") + "/nowhere"

	if _, err := Mount(context.Background(), nil, bad, card); err == nil {
		t.Fatal("Mount() error = nil, want an error")
	}
	if got := card.State().Conn; got != tradesim.Disconnected {
		t.Errorf("Conn = %v, want disconnected", got)
	}
}
