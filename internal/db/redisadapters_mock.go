package db

import (
	"context"
	"encoding"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Implements the LimitedRedis client struct
// Only suitable for testing and local development
// The value set for the IntCmd or similar results is always 1 regardless of how many records were affected
// Contexts are completely ignored, expirations are recorded but never enforced
type MockRedisClient struct {
	lock        sync.Mutex
	store       map[string]map[string]string
	expirations map[string]time.Time
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: map[string]map[string]string{}, expirations: map[string]time.Time{}}
}

func NewMockRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	options = append([]RedisAdapterOption{WithRedisClient(NewMockRedisClient())}, options...)
	return NewRedisAdapter(options...)
}

func stringify(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case encoding.TextMarshaler:
		raw, err := v.MarshalText()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func convertValuesToMap(values ...any) (map[string]string, error) {
	if len(values)%2 != 0 {
		return map[string]string{}, fmt.Errorf("number of provided values must be even")
	}
	output := map[string]string{}
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return map[string]string{}, fmt.Errorf("hash field names must be strings, got %T", values[i])
		}
		val, err := stringify(values[i+1])
		if err != nil {
			return map[string]string{}, err
		}
		output[key] = val
	}
	return output, nil
}

func (m *MockRedisClient) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	res := redis.IntCmd{}
	val, err := convertValuesToMap(values...)
	if err != nil {
		res.SetErr(err)
		return &res
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	hash, found := m.store[key]
	if !found {
		hash = map[string]string{}
		m.store[key] = hash
	}
	for field, fieldVal := range val {
		hash[field] = fieldVal
	}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, k := range keys {
		delete(m.store, k)
		delete(m.expirations, k)
	}
	res := redis.IntCmd{}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.MapStringStringCmd{}
	output := map[string]string{}
	for k, v := range m.store[key] {
		output[k] = v
	}
	res.SetVal(output)
	return &res
}

func (m *MockRedisClient) ExpireAt(_ context.Context, key string, tm time.Time) *redis.BoolCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.BoolCmd{}
	if _, found := m.store[key]; !found {
		res.SetVal(false)
		return &res
	}
	m.expirations[key] = tm
	res.SetVal(true)
	return &res
}

func (m *MockRedisClient) Persist(_ context.Context, key string) *redis.BoolCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.BoolCmd{}
	_, found := m.expirations[key]
	delete(m.expirations, key)
	res.SetVal(found)
	return &res
}

// Eval only runs the scripts of this package, the script is matched verbatim.
func (m *MockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	res := redis.NewCmd(ctx)
	if script != setAccessTokenScript || len(keys) != 1 || len(args) != 4 {
		res.SetErr(fmt.Errorf("the mock redis client does not support this script"))
		return res
	}
	values := make([]string, len(args))
	for i, arg := range args {
		val, err := stringify(arg)
		if err != nil {
			res.SetErr(err)
			return res
		}
		values[i] = val
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	hash, found := m.store[keys[0]]
	if !found {
		res.SetVal(int64(-1))
		return res
	}
	if current, ok := hash[values[0]]; !ok || current != values[3] {
		res.SetVal(int64(-1))
		return res
	}
	hash[values[1]] = values[2]
	res.SetVal(int64(0))
	return res
}

func (m *MockRedisClient) Ping(_ context.Context) *redis.StatusCmd {
	res := redis.StatusCmd{}
	res.SetVal("PONG")
	return &res
}

// ExpiresAt returns the expiration recorded for a key.
func (m *MockRedisClient) ExpiresAt(key string) (time.Time, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	tm, found := m.expirations[key]
	return tm, found
}
