// Package marker persists the client-side session marker: the expiry time of
// the current session, stored as epoch milliseconds under a single key.
package marker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Marker stores the session expiry. Load reports ok=false when nothing is stored.
type Marker interface {
	Load(ctx context.Context) (expireAt time.Time, ok bool, err error)
	Save(ctx context.Context, expireAt time.Time) error
	Clear(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Key is the name of the persisted entry.
const Key = "sessionExpire"

// Config selects and configures a backend.
type Config struct {
	Backend  string
	StateDir string
	Redis    RedisConfig
}

// Open builds the marker described by cfg.
func Open(cfg Config) (Marker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		if cfg.StateDir == "" {
			return nil, fmt.Errorf("marker: state dir is empty")
		}
		return NewFile(filepath.Join(cfg.StateDir, Key)), nil
	case BackendRedis:
		return NewRedis(cfg.Redis)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("marker: unknown backend %q", cfg.Backend)
	}
}

// Memory keeps the marker in process memory.
type Memory struct {
	mu       sync.Mutex
	expireAt time.Time
	set      bool
}

// NewMemory returns an empty in-memory marker.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expireAt, m.set, nil
}

func (m *Memory) Save(_ context.Context, expireAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireAt = time.UnixMilli(expireAt.UnixMilli())
	m.set = true
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireAt = time.Time{}
	m.set = false
	return nil
}
