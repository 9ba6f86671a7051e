// Package settings persists the two display preferences across sessions.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Storage keys, shared by every backend
const (
	KeyDarkMode    = "cipherTrack_darkMode"
	KeyCompactMode = "cipherTrack_compactMode"
)

// Settings are the user's display preferences
type Settings struct {
	DarkMode    bool `json:"dark_mode"`
	CompactMode bool `json:"compact_mode"`
}

// Store loads and saves settings. Missing or unreadable keys load as false.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Close() error
}

// encode returns the stored value for each key
func encode(s Settings) (map[string]string, error) {
	out := make(map[string]string, 2)
	for key, value := range map[string]bool{
		KeyDarkMode:    s.DarkMode,
		KeyCompactMode: s.CompactMode,
	} {
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		out[key] = string(b)
	}
	return out, nil
}

// decode builds settings from stored values; unknown keys are ignored
func decode(values map[string]string) Settings {
	return Settings{
		DarkMode:    parseBool(values[KeyDarkMode]),
		CompactMode: parseBool(values[KeyCompactMode]),
	}
}

func parseBool(raw string) bool {
	var v bool
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return false
	}
	return v
}

// Memory keeps settings in process memory
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Load(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.values), nil
}

func (m *Memory) Save(ctx context.Context, s Settings) error {
	values, err := encode(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *Memory) Close() error { return nil }
