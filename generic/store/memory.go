// Package store provides Store implementations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte

	failWrites bool
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

var _ generic.Store = (*Memory)(nil)

var errWriteDisabled = errors.New("memory store: writes disabled")

func (m *Memory) GetString(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", generic.ErrKeyNotFound
	}
	return string(v), nil
}

func (m *Memory) SetString(_ context.Context, key, value string) error {
	return m.set(key, []byte(value))
}

func (m *Memory) GetMap(ctx context.Context, key string) (json.RawMessage, error) {
	return m.getJSON(key)
}

func (m *Memory) SetMap(_ context.Context, key string, value json.RawMessage) error {
	if !generic.IsJSONObject(value) {
		return fmt.Errorf("memory store: value for %q is not a JSON object", key)
	}
	return m.set(key, value)
}

func (m *Memory) GetList(ctx context.Context, key string) (json.RawMessage, error) {
	return m.getJSON(key)
}

func (m *Memory) SetList(_ context.Context, key string, value json.RawMessage) error {
	if !generic.IsJSONArray(value) {
		return fmt.Errorf("memory store: value for %q is not a JSON array", key)
	}
	return m.set(key, value)
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return errWriteDisabled
	}
	delete(m.values, key)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return errWriteDisabled
	}
	m.values = make(map[string][]byte)
	return nil
}

// SetFailWrites makes every subsequent write fail. Used to exercise
// persistence errors.
func (m *Memory) SetFailWrites(fail bool) {
	m.mu.Lock()
	m.failWrites = fail
	m.mu.Unlock()
}

// Keys returns the number of stored keys.
func (m *Memory) Keys() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

func (m *Memory) getJSON(key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, generic.ErrKeyNotFound
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return errWriteDisabled
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	return nil
}
