package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File keeps the token in a JSON file readable only by the owner. A token
// older than its max age is treated as absent and removed.
type File struct {
	path   string
	maxAge time.Duration
	now    func() time.Time

	mu sync.Mutex
}

type fileRecord struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewFile returns a store at path. A non-positive maxAge defaults to 24h.
func NewFile(path string, maxAge time.Duration) *File {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &File{path: path, maxAge: maxAge, now: time.Now}
}

// DefaultPath is the token file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "evently", "token.json"), nil
}

// Path returns the file location.
func (s *File) Path() string { return s.path }

func (s *File) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	var rec fileRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Token == "" {
		return "", false
	}
	if !rec.ExpiresAt.IsZero() && !s.now().Before(rec.ExpiresAt) {
		_ = os.Remove(s.path)
		return "", false
	}
	return rec.Token, true
}

func (s *File) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	raw, err := json.Marshal(fileRecord{Token: token, ExpiresAt: s.now().Add(s.maxAge).UTC()})
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*")
	if err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s *File) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
