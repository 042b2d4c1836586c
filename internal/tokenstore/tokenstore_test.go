package tokenstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_MissingFileIsAbsent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "credential.toml"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if tok, ok := s.Get(); ok || tok != "" {
		t.Fatalf("Get = (%q, %v), want absent", tok, ok)
	}
}

func TestSetGetClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credential.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	for _, tok := range []string{"abc", "eyJhbGciOiJIUzI1NiJ9.payload.sig", "second"} {
		if err := s.Set(tok); err != nil {
			t.Fatalf("Set(%q) returned error: %v", tok, err)
		}
		got, ok := s.Get()
		if !ok || got != tok {
			t.Fatalf("Get = (%q, %v), want (%q, true)", got, ok, tok)
		}
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, ok := s.Get(); ok {
		t.Fatalf("Get after Clear reported a credential")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("slot file still present after Clear: %v", err)
	}

	// Clearing twice is fine.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear returned error: %v", err)
	}
}

func TestClear_RemoveFailureStillClearsMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := s.Set("rejected"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	// A non-empty directory in place of the slot makes the remove fail,
	// even for root.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove slot: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(path, "pinned"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := s.Clear(); err == nil {
		t.Fatalf("Clear error = nil, want remove failure")
	}
	if tok, ok := s.Get(); ok || tok != "" {
		t.Fatalf("Get after failed Clear = (%q, %v), want absent", tok, ok)
	}
	if s.Present() {
		t.Fatalf("Present after failed Clear = true, want false")
	}
}

func TestSet_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := s.Set("persisted"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("slot perm = %o, want 600", perm)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if got, ok := reopened.Get(); !ok || got != "persisted" {
		t.Fatalf("Get after reopen = (%q, %v), want persisted", got, ok)
	}
}

func TestSet_RejectsBlank(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "credential.toml"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := s.Set("   "); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("Set blank error = %v, want ErrEmptyToken", err)
	}
}

func TestOpen_InvalidTOMLIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.toml")
	if err := os.WriteFile(path, []byte("token = {{{\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if s.Present() {
		t.Fatalf("Present = true, want false for corrupt slot")
	}
}

func TestSubscribe_NotifiesOnPresenceChange(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "credential.toml"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	var events []bool
	cancel := s.Subscribe(func(present bool) { events = append(events, present) })

	_ = s.Set("a")
	_ = s.Set("b") // still present, no event
	_ = s.Clear()
	cancel()
	_ = s.Set("c")

	if len(events) != 2 || !events[0] || events[1] {
		t.Fatalf("events = %v, want [true false]", events)
	}
}
