package config

import "fmt"

type RedisConfig struct {
	Type       string
	Addresses  []string
	IsSentinel bool
	Password   RedactedString
	MasterName string
	DBIndex    int
}

const DBTypeRedis string = "redis"
const DBTypeRedisMock string = "redis-mock"

func (c RedisConfig) Validate(e RunningEnvironment) error {
	if e != Development && c.Type == DBTypeRedisMock {
		return fmt.Errorf("redis type cannot be \"redis-mock\" in production")
	}
	if c.Type != DBTypeRedis && c.Type != DBTypeRedisMock {
		return fmt.Errorf("unrecognized redis type %q", c.Type)
	}
	if c.Type == DBTypeRedis && len(c.Addresses) == 0 {
		return fmt.Errorf("at least one redis address is required")
	}
	if c.IsSentinel && c.MasterName == "" {
		return fmt.Errorf("the redis master name is required when using sentinel")
	}
	return nil
}
