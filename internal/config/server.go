package config

import (
	"fmt"
	"strings"
)

type RateLimits struct {
	Enabled bool
	Rate    float64
	Burst   int
}

type ServerConfig struct {
	Host        string
	Port        int
	BasePath    string
	RateLimits  RateLimits
	AllowOrigin []string
}

func (c ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Port)
	}
	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("the server base path has to start with a slash, got %q", c.BasePath)
	}
	if c.RateLimits.Enabled && (c.RateLimits.Rate <= 0 || c.RateLimits.Burst <= 0) {
		return fmt.Errorf("rate limits are enabled but rate (%v) or burst (%d) are not positive", c.RateLimits.Rate, c.RateLimits.Burst)
	}
	return nil
}
