// Package tokenstore persists the bearer credential between runs.
// The credential lives in a single TOML slot, by default
// ~/.config/smashtrack/credential.toml.
package tokenstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrEmptyToken is returned by Set when asked to store a blank credential.
var ErrEmptyToken = errors.New("tokenstore: empty token")

type slot struct {
	Token string `toml:"token"`
}

// Store owns the credential. Reads are served from memory; every write goes
// to disk before memory changes, so a failed write never leaves the two out
// of sync.
type Store struct {
	path string

	writeMu sync.Mutex // serializes Set and Clear

	mu        sync.RWMutex
	token     string
	listeners map[int]func(present bool)
	nextID    int
}

// Open loads the credential from path. A missing or unreadable slot yields an
// empty store rather than an error.
func Open(path string) (*Store, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve token path: %w", err)
	}

	s := &Store{path: resolved, listeners: map[int]func(bool){}}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return s, nil
	}

	var stored slot
	if err := toml.Unmarshal(bytes, &stored); err != nil {
		return s, nil
	}
	s.token = strings.TrimSpace(stored.Token)
	return s, nil
}

// Path returns the resolved location of the durable slot.
func (s *Store) Path() string {
	return s.path
}

// Get returns the current credential and whether one is present.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Present reports whether a credential is stored.
func (s *Store) Present() bool {
	_, ok := s.Get()
	return ok
}

// Set replaces the credential and persists it.
func (s *Store) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrEmptyToken
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.write(slot{Token: value}); err != nil {
		return err
	}
	s.swap(value)
	return nil
}

// Clear removes the credential from memory and disk. Memory is always
// cleared, even when the slot file cannot be removed.
func (s *Store) Clear() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.swap("")
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Subscribe registers fn to be called whenever credential presence changes.
// The returned func unregisters it.
func (s *Store) Subscribe(fn func(present bool)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) swap(value string) {
	s.mu.Lock()
	was := s.token != ""
	s.token = value
	now := s.token != ""
	var notify []func(bool)
	if was != now {
		for _, fn := range s.listeners {
			notify = append(notify, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn(now)
	}
}

func (s *Store) write(v slot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	bytes, err := toml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
