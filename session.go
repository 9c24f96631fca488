package tradesim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ID identifies a backend entity (user, portfolio).
//
// The backend uses numeric identifiers, but they are opaque to the client and
// kept as strings.
type ID string

// IsZero reports whether id is empty.
func (id ID) IsZero() bool { return id == "" }

func (id ID) String() string { return string(id) }

// MarshalJSON writes a numeric id as a JSON number, any other as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON number, a string or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid id %s: %w", b, err)
		}
		*id = ID(n.String())
		return nil
	}
}

func (id ID) numeric() bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Identity is the persisted reference to the active trading session.
type Identity struct {
	UserID      ID `json:"userId,omitempty"`
	PortfolioID ID `json:"portfolioId"`
}

// IsZero reports whether there is no portfolio to resume.
func (i Identity) IsZero() bool { return i.PortfolioID.IsZero() }

// ErrNoSession is returned by a SessionStore with no saved identity.
var ErrNoSession = errors.New("no active session")

// SessionStore persists the active Identity on the local device.
type SessionStore interface {
	// Load returns the saved identity, or ErrNoSession.
	Load() (Identity, error)
	Save(Identity) error
	// Clear forgets the saved identity. Clearing an empty store is not an error.
	Clear() error
}

// User is a simulator user.
type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username,omitempty"`
}

// Portfolio is a simulator portfolio.
type Portfolio struct {
	ID   ID    `json:"id"`
	User *User `json:"user,omitempty"`
}

// Registrar creates users and portfolios on the backend.
type Registrar interface {
	CreateUser(ctx context.Context, username string) (User, error)
	CreatePortfolio(ctx context.Context, user ID) (Portfolio, error)
}

// now is replaced in tests.
var now = time.Now

// NewUsername returns the name given to users created by Bootstrap.
func NewUsername() string {
	return fmt.Sprintf("trader_%d", now().UnixMilli())
}

// Bootstrap returns the identity of the session to use.
//
// A saved identity is resumed without contacting the backend. Otherwise a new
// user is created, then its portfolio, and the result is saved to store. Any
// failure aborts the bootstrap, nothing is saved, and the error is returned
// for the user to see.
func Bootstrap(ctx context.Context, r Registrar, store SessionStore) (Identity, error) {
	id, err := store.Load()
	switch {
	case err == nil && !id.IsZero():
		logger.Debug("resuming session", zap.Stringer("portfolio", id.PortfolioID))
		return id, nil
	case err != nil && !errors.Is(err, ErrNoSession):
		return Identity{}, fmt.Errorf("cannot read session: %w", err)
	}

	user, err := r.CreateUser(ctx, NewUsername())
	if err != nil {
		return Identity{}, fmt.Errorf("cannot create user: %w", err)
	}
	if user.ID.IsZero() {
		return Identity{}, errors.New("cannot create user: backend returned no id")
	}
	p, err := r.CreatePortfolio(ctx, user.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("cannot create portfolio for user %s: %w", user.ID, err)
	}
	if p.ID.IsZero() {
		return Identity{}, errors.New("cannot create portfolio: backend returned no id")
	}

	id = Identity{UserID: user.ID, PortfolioID: p.ID}
	if err := store.Save(id); err != nil {
		return Identity{}, fmt.Errorf("cannot save session: %w", err)
	}
	logger.Info("new session", zap.String("user", strings.TrimSpace(user.Username)), zap.Stringer("portfolio", p.ID))
	return id, nil
}

// Logout forgets the active session. The user and portfolio are left on the
// backend.
func Logout(store SessionStore) error {
	if err := store.Clear(); err != nil {
		return fmt.Errorf("cannot clear session: %w", err)
	}
	return nil
}
