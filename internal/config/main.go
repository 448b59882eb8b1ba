package config

import (
	"fmt"
)

type RunningEnvironment string

const (
	Development RunningEnvironment = "development"
	Production  RunningEnvironment = "production"
)

type Config struct {
	DebugMode          bool
	RunningEnvironment RunningEnvironment
	Server             ServerConfig
	API                APIConfig
	Sessions           SessionConfig
	Redis              RedisConfig
	Monitoring         MonitoringConfig
}

func (c *Config) Validate() error {
	switch c.RunningEnvironment {
	case Development, Production:
	default:
		return fmt.Errorf("unknown running environment %q (must be one of %s, %s)", c.RunningEnvironment, Development, Production)
	}
	err := c.Server.Validate()
	if err != nil {
		return err
	}
	err = c.API.Validate()
	if err != nil {
		return err
	}
	err = c.Sessions.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	err = c.Redis.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	return nil
}
