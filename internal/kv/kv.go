// Package kv defines the persistence gateway used by the crisis engine: a
// string key-value store with pluggable drivers.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store is a durable string key-value store.
// Get reports found=false (and no error) for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Pinger is implemented by stores that can verify backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Key builds the per-user key for a record kind, e.g. crisis:<user>:safety_plan.
func Key(userID, kind string) string {
	return fmt.Sprintf("crisis:%s:%s", userID, kind)
}

const (
	KindSafetyPlan  = "safety_plan"
	KindSessions    = "sessions"
	KindAssessments = "assessments"
)

// GetJSON loads key into v. It returns found=false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key as JSON.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b))
}

// Memory is an in-process Store for tests and development.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory { return &Memory{data: make(map[string]string)} }

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
