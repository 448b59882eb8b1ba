package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bugreporter/bugreporter-gateway/internal/config"
	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey string = "0123456789abcdef0123456789abcdef"

func newMiniredisAdapter(t *testing.T, options ...RedisAdapterOption) (*RedisAdapter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	options = append([]RedisAdapterOption{WithRedisClient(client)}, options...)
	adapter, err := NewRedisAdapter(options...)
	require.NoError(t, err)
	return adapter, mr
}

func TestNewRedisAdapterRequiresClient(t *testing.T) {
	_, err := NewRedisAdapter()

	assert.ErrorContains(t, err, "not initialized")
}

func TestNewRedisAdapterWithMockConfig(t *testing.T) {
	adapter, err := NewRedisAdapter(WithRedisConfig(config.RedisConfig{Type: config.DBTypeRedisMock}))

	require.NoError(t, err)
	assert.IsType(t, &MockRedisClient{}, adapter.rdb)
	assert.NoError(t, adapter.Ping(context.Background()))
}

func TestNewRedisAdapterWithUnknownType(t *testing.T) {
	_, err := NewRedisAdapter(WithRedisConfig(config.RedisConfig{Type: "memcached"}))

	assert.ErrorContains(t, err, "unrecognized persistence type")
}

func TestNewRedisAdapterWithRedisConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := NewRedisAdapter(
		WithRedisConfig(config.RedisConfig{Type: config.DBTypeRedis, Addresses: []string{mr.Addr()}}),
	)
	require.NoError(t, err)

	assert.NoError(t, adapter.Ping(context.Background()))
}

func TestNewRedisAdapterWithBadEncryptionKey(t *testing.T) {
	_, err := NewMockRedisAdapter(WithEncryption("too-short"))

	assert.Error(t, err)
}

type serializable struct {
	Name    string
	Counter int
	secret  string
}

func TestHashFields(t *testing.T) {
	output := RedisAdapter{}.hashFields(serializable{Name: "n", Counter: 3, secret: "s"})

	assert.Equal(t, []any{"Name", "n", "Counter", 3}, output)
}

func TestFromHash(t *testing.T) {
	output := serializable{}

	err := RedisAdapter{}.fromHash(map[string]string{"Name": "n", "Counter": "3"}, &output)

	require.NoError(t, err)
	assert.Equal(t, serializable{Name: "n", Counter: 3}, output)
}

func TestFromEmptyHash(t *testing.T) {
	output := serializable{}

	err := RedisAdapter{}.fromHash(map[string]string{}, &output)

	assert.ErrorIs(t, err, gwerrors.ErrMissingDBResource)
}

func TestNewRedisAdapterWithoutAddresses(t *testing.T) {
	_, err := NewRedisAdapter(WithRedisConfig(config.RedisConfig{Type: config.DBTypeRedis}))

	assert.ErrorContains(t, err, "at least one redis address")
}
