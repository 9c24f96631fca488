// Package live connects cards to the simulator's price feed.
//
// Every mounted card owns its websocket connection. Mount opens it, Close
// releases it; there is no automatic reconnection, a card whose connection
// dropped stays Disconnected until it is mounted again.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/etnz/tradesim"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Dialer opens websocket connections. *websocket.Dialer is a Dialer.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// DefaultDialer is used when Mount is given a nil Dialer.
var DefaultDialer Dialer = &websocket.Dialer{
	Proxy:            http.ProxyFromEnvironment,
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// closeGrace bounds the time spent sending the close frame.
const closeGrace = time.Second

// URLFor returns the price feed endpoint of the backend at server:
// "http://host:8080" gives "ws://host:8080/ws".
func URLFor(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid backend url %q: %w", server, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid backend url %q: unsupported scheme %q", server, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend url %q: no host", server)
	}
	u.Path, u.RawPath, u.RawQuery, u.Fragment = "/ws", "", "", ""
	return u.String(), nil
}

// Subscription is a card's connection to the price feed.
type Subscription struct {
	ID uuid.UUID

	card    *tradesim.Card
	conn    *websocket.Conn
	done    chan struct{}
	closing atomic.Bool
	once    sync.Once
	log     *zap.Logger

	mu   sync.Mutex
	stop func() bool // stops closing on context cancellation
}

// Mount connects card to the feed at url and applies every message it
// receives until the subscription is closed, the connection fails or ctx is
// done.
//
// A failed dial is returned and leaves the card Disconnected.
func Mount(ctx context.Context, d Dialer, url string, card *tradesim.Card) (*Subscription, error) {
	if d == nil {
		d = DefaultDialer
	}
	conn, resp, err := d.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("cannot connect %s to %s: %s: %w", card.Symbol(), url, resp.Status, err)
		}
		return nil, fmt.Errorf("cannot connect %s to %s: %w", card.Symbol(), url, err)
	}

	s := &Subscription{
		ID:   uuid.New(),
		card: card,
		conn: conn,
		done: make(chan struct{}),
	}
	s.log = tradesim.Logger().With(zap.Stringer("subscription", s.ID), zap.String("symbol", card.Symbol()))
	card.Connect()
	s.log.Debug("mounted")
	go s.read()
	s.mu.Lock()
	s.stop = context.AfterFunc(ctx, func() { s.Close() })
	s.mu.Unlock()
	return s, nil
}

func (s *Subscription) read() {
	defer close(s.done)
	defer s.card.Disconnect()
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closing.Load() {
				s.log.Info("price feed lost", zap.Error(err))
			}
			return
		}
		if !s.card.Apply(msg) {
			s.log.Debug("message ignored", zap.ByteString("msg", msg))
		}
	}
}

// Card returns the card driven by s.
func (s *Subscription) Card() *tradesim.Card { return s.card }

// Done is closed once the subscription stopped applying messages.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close releases the connection. When Close returns the card is Disconnected
// and no message is applied to it any more. Close is idempotent.
//
// Close waits for the read goroutine, so it must not be called from a card
// listener, see tradesim.Card.OnChange.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.closing.Store(true)
		s.mu.Lock()
		if s.stop != nil {
			s.stop()
		}
		s.mu.Unlock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace)); werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			s.log.Debug("close frame not sent", zap.Error(werr))
		}
		err = s.conn.Close()
		s.log.Debug("unmounted")
	})
	<-s.done
	return err
}
