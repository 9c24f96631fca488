// Package session stores the active trading session on the local device.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/etnz/tradesim"
)

// File is a tradesim.SessionStore keeping the identity in a JSON file.
type File struct {
	Path string
}

// DefaultPath returns the session file in the user's configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate the session file: %w", err)
	}
	return filepath.Join(dir, "tsim", "session.json"), nil
}

// Load reads the saved identity. A missing or empty file means no session.
func (f File) Load() (tradesim.Identity, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return tradesim.Identity{}, tradesim.ErrNoSession
	}
	if err != nil {
		return tradesim.Identity{}, err
	}
	var id tradesim.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return tradesim.Identity{}, fmt.Errorf("corrupted session file %s: %w", f.Path, err)
	}
	if id.IsZero() {
		return tradesim.Identity{}, tradesim.ErrNoSession
	}
	return id, nil
}

// Save replaces the saved identity.
func (f File) Save(id tradesim.Identity) error {
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// Clear removes the session file.
func (f File) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

var _ tradesim.SessionStore = File{}
