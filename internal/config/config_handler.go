package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const envPrefix string = "gateway"

// defaults are registered for every key so that the gateway can be configured with
// environment variables only.
var defaults = map[string]any{
	"debugMode":                          false,
	"runningEnvironment":                 string(Production),
	"server.host":                        "0.0.0.0",
	"server.port":                        8080,
	"server.basePath":                    "/",
	"server.rateLimits.enabled":          false,
	"server.rateLimits.rate":             20.0,
	"server.rateLimits.burst":            40,
	"server.allowOrigin":                 []string{},
	"api.baseURL":                        "/api",
	"api.upstream":                       "http://localhost:8000",
	"api.timeout":                        "30s",
	"api.signInPath":                     "/",
	"api.pageSize":                       10,
	"sessions.idleSessionTTLSeconds":     28800,
	"sessions.maxSessionTTLSeconds":      172800,
	"sessions.cookieSecure":              true,
	"sessions.cookieHashKey":             "",
	"sessions.cookieEncodingKey":         "",
	"sessions.tokenEncryption.enabled":   false,
	"sessions.tokenEncryption.secretKey": "",
	"redis.type":                         DBTypeRedis,
	"redis.addresses":                    []string{"localhost:6379"},
	"redis.isSentinel":                   false,
	"redis.password":                     "",
	"redis.masterName":                   "",
	"redis.dbIndex":                      0,
	"monitoring.sentry.enabled":          false,
	"monitoring.sentry.dsn":              "",
	"monitoring.sentry.environment":      "",
	"monitoring.sentry.sampleRate":       0.0,
	"monitoring.prometheus.enabled":      false,
	"monitoring.prometheus.port":         8765,
}

type ConfigHandler struct {
	mainViper   *viper.Viper
	secretViper *viper.Viper
	lock        *sync.Mutex
}

func (c *ConfigHandler) HandleChanges(callback func(Config, error)) {
	c.mainViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("CONFIG", "message", "main config file changed", "path", e.Name)
		callback(c.Config())
	})
	c.secretViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("CONFIG", "message", "secret config file changed", "path", e.Name)
		callback(c.Config())
	})
}

// NewConfigHandler creates a configuration handler that reads the configuration files, merges them
// and can watch them for changes. Merges replace whole arrays. The secret file always overwrites the
// regular file and environment variables (prefixed with GATEWAY_) overwrite both.
func NewConfigHandler() *ConfigHandler {
	main := viper.New()
	main.SetConfigType("yaml")
	main.SetConfigName("config")
	secret := viper.New()
	secret.SetConfigType("yaml")
	secret.SetConfigName("secret_config")
	// Viper uses the first path where a file is found, so the env variable takes precedence
	configPaths := []string{}
	configPathEnv := os.Getenv("CONFIG_LOCATION")
	if configPathEnv != "" {
		configPaths = append(configPaths, configPathEnv)
	}
	configPaths = append(configPaths, "/etc/gateway", ".")
	for _, path := range configPaths {
		main.AddConfigPath(path)
		secret.AddConfigPath(path)
	}
	for key, value := range defaults {
		main.SetDefault(key, value)
	}
	main.SetEnvPrefix(envPrefix)
	main.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	main.AutomaticEnv()
	return &ConfigHandler{secretViper: secret, mainViper: main, lock: &sync.Mutex{}}
}

func readOptional(v *viper.Viper, name string) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		slog.Info("CONFIG", "message", "could not find the "+name+" config file, skipping it")
		return nil
	}
	return err
}

func (c *ConfigHandler) getConfig() (Config, error) {
	var output Config
	err := readOptional(c.mainViper, "main")
	if err != nil {
		return Config{}, err
	}
	err = readOptional(c.secretViper, "secret")
	if err != nil {
		return Config{}, err
	}
	// the secret config overwrites the main config, env variables still take precedence
	err = c.mainViper.MergeConfigMap(c.secretViper.AllSettings())
	if err != nil {
		return Config{}, err
	}
	err = c.mainViper.Unmarshal(
		&output,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		),
	)
	if err != nil {
		return Config{}, err
	}
	err = output.Validate()
	if err != nil {
		return Config{}, err
	}
	return output, nil
}

func (c *ConfigHandler) Config() (Config, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.getConfig()
}

func (c *ConfigHandler) Watch() {
	c.mainViper.WatchConfig()
	c.secretViper.WatchConfig()
}
