package tokenstore

import "sync"

// Memory keeps the token in process memory only.
type Memory struct {
	mu    sync.Mutex
	token string
}

// NewMemory returns a store seeded with token, which may be empty.
func NewMemory(token string) *Memory { return &Memory{token: token} }

func (m *Memory) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *Memory) SetToken(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) ClearToken() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
