package marker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, m Marker) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := m.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh marker should be empty")

	expire := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	require.NoError(t, m.Save(ctx, expire))

	got, ok, err := m.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, expire.UnixMilli(), got.UnixMilli())

	require.NoError(t, m.Clear(ctx))
	_, ok, err = m.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "cleared marker should be empty")

	require.NoError(t, m.Clear(ctx), "clearing twice is not an error")
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestFile(t *testing.T) {
	exercise(t, NewFile(filepath.Join(t.TempDir(), "nested", Key)))
}

func TestFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), Key)
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n"), 0600))

	_, _, err := NewFile(path).Load(context.Background())
	assert.ErrorContains(t, err, "marker: parse")
}

func TestFileEmptyIsUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), Key)
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0600))

	_, ok, err := NewFile(path).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	r, err := NewRedis(RedisConfig{Addr: mr.Addr(), Prefix: "test:"})
	require.NoError(t, err)
	defer r.Close()

	exercise(t, r)

	require.NoError(t, r.Save(context.Background(), time.Now().Add(time.Minute)))
	assert.True(t, mr.Exists("test:"+Key))
	ttl := mr.TTL("test:" + Key)
	assert.Greater(t, ttl, 50*time.Second)
}

func TestRedisSavePastExpiryClears(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	r, err := NewRedis(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Save(ctx, time.Now().Add(time.Minute)))
	require.NoError(t, r.Save(ctx, time.Now().Add(-time.Minute)))
	_, ok, err := r.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisTTLFollowsClock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	// far from wall time so only the injected clock can explain the TTLs
	now := time.Now().Add(24 * time.Hour)
	r, err := NewRedis(RedisConfig{Addr: mr.Addr(), Prefix: "test:", Clock: clockwork.NewFakeClockAt(now)})
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Save(ctx, now.Add(10*time.Minute)))
	ttl := mr.TTL("test:" + Key)
	assert.Greater(t, ttl, 9*time.Minute)
	assert.LessOrEqual(t, ttl, 10*time.Minute)

	// still in the future by wall time, already past for the store
	require.NoError(t, r.Save(ctx, now.Add(-time.Hour)))
	_, ok, err := r.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUnreachable(t *testing.T) {
	_, err := NewRedis(RedisConfig{})
	assert.ErrorContains(t, err, "address required")
}

func TestOpen(t *testing.T) {
	m, err := Open(Config{StateDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &File{}, m)

	m, err = Open(Config{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, m)

	_, err = Open(Config{Backend: "file"})
	assert.Error(t, err)

	_, err = Open(Config{Backend: "etcd"})
	assert.ErrorContains(t, err, "unknown backend")
}
