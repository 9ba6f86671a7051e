package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	values, err := encode(Settings{DarkMode: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		KeyDarkMode:    "true",
		KeyCompactMode: "false",
	}, values)

	assert.Equal(t, Settings{DarkMode: true}, decode(values))
}

func TestDecodeTolerant(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   Settings
	}{
		{"empty", map[string]string{}, Settings{}},
		{"nil", nil, Settings{}},
		{"garbage", map[string]string{KeyDarkMode: "yes please", KeyCompactMode: "{"}, Settings{}},
		{"string true", map[string]string{KeyDarkMode: `"true"`}, Settings{}},
		{"compact only", map[string]string{KeyCompactMode: "true", "other": "true"}, Settings{CompactMode: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decode(tt.values))
		})
	}
}

// exerciseStore checks the behavior shared by every backend
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{}, loaded, "missing keys load as false")

	require.NoError(t, s.Save(ctx, Settings{DarkMode: true}))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{DarkMode: true}, loaded)

	require.NoError(t, s.Save(ctx, Settings{CompactMode: true}))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{CompactMode: true}, loaded)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)
	assert.NoError(t, s.Close())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// settings survive reopening
	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Settings{CompactMode: true}, loaded)

	var raw string
	err = reopened.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, KeyCompactMode).Scan(&raw)
	require.NoError(t, err)
	assert.Equal(t, "true", raw)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis settings test")
	}

	rdb := NewRedisClient(addr)
	require.NoError(t, rdb.Ping(context.Background()).Err())

	key := "ciphertrack:test:" + uuid.NewString()
	s := NewRedis(rdb, key)
	t.Cleanup(func() {
		rdb.Del(context.Background(), key)
		s.Close()
	})

	exerciseStore(t, s)
}
