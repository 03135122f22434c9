// Package cache stores entity validation results keyed by mention text so
// repeated validations of the same mention skip the matching engine.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"govregistry/internal/matching"
	"govregistry/pkg/platform/sentinel"
)

// ErrNotFound is returned on a cache miss or an expired entry.
var ErrNotFound = sentinel.ErrNotFound

// Key normalizes a mention and hint into a cache key.
func Key(text, entityTypeHint string) string {
	return strings.ToLower(strings.TrimSpace(text)) + "|" + strings.ToLower(strings.TrimSpace(entityTypeHint))
}

type memoryEntry struct {
	result    *matching.ValidationResult
	expiresAt time.Time
}

// Memory is a TTL map cache for single-process deployments and tests.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	clock   func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
}

// Get returns a copy of the cached result so callers cannot mutate the
// cached state. Expired entries are evicted on the way out.
func (m *Memory) Get(_ context.Context, key string) (*matching.ValidationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if m.clock().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrNotFound
	}
	return entry.result.Clone(), nil
}

func (m *Memory) Set(_ context.Context, key string, result *matching.ValidationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{result: result.Clone(), expiresAt: m.clock().Add(m.ttl)}
	return nil
}
