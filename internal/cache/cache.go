// Package cache stores the original site's baseline HTML between scans so
// repeated scans of one domain do not refetch it.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// New returns a Redis cache when cfg.Addr is set and an in-memory cache otherwise.
func New(cfg config.RedisConfig) (Cache, error) {
	if cfg.Addr == "" {
		return NewMemory(), nil
	}
	return NewRedis(cfg)
}

// BaselineKey is the key under which a domain's baseline page is stored.
func BaselineKey(domain string) string {
	return keyPrefix + "baseline:" + domain
}

const keyPrefix = "squatwatch:"

type entry struct {
	value   string
	expires time.Time
}

// Memory is a process-local Cache. Expired entries are dropped on read and
// swept on every write.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrMiss
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", ErrMiss
	}
	return e.value, nil
}

// Set stores value. A non-positive ttl keeps it until Close.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.sweepLocked()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) sweepLocked() {
	now := m.now()
	for k, e := range m.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	return nil
}
