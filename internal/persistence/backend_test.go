package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendContract checks the behaviour every Backend must share.
func runBackendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Put(ctx, "k", []byte("v1")))
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, b.Put(ctx, "k", []byte("v2")))
	got, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, b.Delete(ctx, "k"))
	_, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is not an error
	assert.NoError(t, b.Delete(ctx, "k"))
}

func TestMemoryBackend(t *testing.T) {
	runBackendContract(t, NewMemoryBackend())
}

func TestMemoryBackend_ReturnsCopies(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, b.Put(ctx, "k", value))
	value[0] = 'x'

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestMemoryBackend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryBackend().Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoltBackend(t *testing.T) {
	b, err := OpenBoltBackend(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	runBackendContract(t, b)
}

func TestBoltBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	b, err := OpenBoltBackend(path)
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, TokenKey, []byte("tok")))
	require.NoError(t, b.Close())

	b, err = OpenBoltBackend(path)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("tok"), got)
}

func TestSQLiteBackend(t *testing.T) {
	b, err := OpenSQLiteBackend(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	runBackendContract(t, b)
}

func TestSQLiteBackend_MigrationsAreIdempotent(t *testing.T) {
	b, err := OpenSQLiteBackend(filepath.Join(t.TempDir(), "state.sqlite"))
	require.NoError(t, err)
	defer b.Close()

	assert.NoError(t, b.RunMigrations())
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBackend(client, "test")
	t.Cleanup(func() { b.Close() })

	runBackendContract(t, b)
}

func TestRedisBackend_Namespace(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBackend(client, "shop")
	defer b.Close()

	require.NoError(t, b.Put(context.Background(), TokenKey, []byte("tok")))

	got, err := mr.Get("shop:token")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestRedisBackend_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBackend(client, "shop")
	defer b.Close()
	mr.Close()

	_, err := b.Get(context.Background(), StateKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
