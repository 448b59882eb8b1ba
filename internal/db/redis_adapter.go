package db

import (
	"context"
	"encoding"
	"fmt"
	"reflect"

	"github.com/bugreporter/bugreporter-gateway/internal/config"
	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
)

// RedisAdapter stores sessions and credentials as redis hashes, one hash per session.
type RedisAdapter struct {
	rdb       LimitedRedisClient
	encryptor models.Encryptor
}

// hashFields flattens the exported fields of a struct into the field/value list taken by HSET.
// Values implementing encoding.TextMarshaler are stored as their text form.
func (RedisAdapter) hashFields(record any) []any {
	value := reflect.ValueOf(record)
	fields := reflect.VisibleFields(value.Type())
	output := make([]any, 0, 2*len(fields))
	for _, field := range fields {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		fieldValue := value.FieldByIndex(field.Index).Interface()
		if marshaler, ok := fieldValue.(encoding.TextMarshaler); ok {
			if text, err := marshaler.MarshalText(); err == nil {
				fieldValue = string(text)
			}
		}
		output = append(output, field.Name, fieldValue)
	}
	return output
}

// fromHash fills output with the result of HGETALL. HGETALL answers with an empty map when the key
// does not exist, which is reported as gwerrors.ErrMissingDBResource.
func (RedisAdapter) fromHash(hash map[string]string, output any) error {
	if len(hash) == 0 {
		return gwerrors.ErrMissingDBResource
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(hash)
}

type RedisAdapterOption func(*RedisAdapter) error

// WithRedisConfig connects to a single redis node, to a sentinel setup when IsSentinel is set, or uses
// the in-memory mock.
func WithRedisConfig(redisConfig config.RedisConfig) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		switch redisConfig.Type {
		case config.DBTypeRedis:
			if len(redisConfig.Addresses) == 0 {
				return fmt.Errorf("at least one redis address is required")
			}
			options := redis.UniversalOptions{
				Addrs:    redisConfig.Addresses,
				Password: string(redisConfig.Password),
				DB:       redisConfig.DBIndex,
			}
			if redisConfig.IsSentinel {
				options.MasterName = redisConfig.MasterName
				options.SentinelPassword = string(redisConfig.Password)
			} else {
				options.Addrs = redisConfig.Addresses[:1]
			}
			r.rdb = redis.NewUniversalClient(&options)
			return nil
		case config.DBTypeRedisMock:
			r.rdb = NewMockRedisClient()
			return nil
		default:
			return fmt.Errorf("unrecognized persistence type %v", redisConfig.Type)
		}
	}
}

// WithRedisClient uses an existing client, mostly useful in tests.
func WithRedisClient(client LimitedRedisClient) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.rdb = client
		return nil
	}
}

// WithEncryption encrypts the stored tokens with AES-GCM, the key has to be 32 bytes long.
func WithEncryption(secretKey string) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		encryptor, err := NewGCMEncryptor(secretKey)
		if err != nil {
			return err
		}
		r.encryptor = encryptor
		return nil
	}
}

func NewRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	adapter := RedisAdapter{}
	for _, opt := range options {
		err := opt(&adapter)
		if err != nil {
			return &RedisAdapter{}, err
		}
	}
	if adapter.rdb == nil {
		return &RedisAdapter{}, fmt.Errorf("redis client is not initialized")
	}
	return &adapter, nil
}

// Ping checks that the database can be reached.
func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
