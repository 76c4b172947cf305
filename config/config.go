// Package config aggregates the configuration of every component and loads
// it from config.toml and ASSETBRIDGE_* environment variables.
package config

import (
	"github.com/bronystylecrazy/assetbridge/build"
	"github.com/bronystylecrazy/assetbridge/cfg"
	"github.com/bronystylecrazy/assetbridge/eventbus"
	"github.com/bronystylecrazy/assetbridge/log"
	"github.com/bronystylecrazy/assetbridge/otel"
	"github.com/bronystylecrazy/assetbridge/realtime"
	"github.com/bronystylecrazy/assetbridge/security"
	"github.com/bronystylecrazy/assetbridge/web"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const (
	DefaultFile = "config.toml"
	EnvPrefix   = "ASSETBRIDGE"
)

type Config struct {
	Log      log.Config           `mapstructure:"log"`
	Security security.Config      `mapstructure:"security"`
	MQTT     realtime.Config      `mapstructure:"mqtt"`
	HTTP     web.Config           `mapstructure:"http"`
	Redis    eventbus.RedisConfig `mapstructure:"redis"`
	Relay    eventbus.RelayConfig `mapstructure:"relay"`
	Metrics  otel.Config          `mapstructure:"metrics"`
}

// Out splits the configuration into the values components depend on.
type Out struct {
	fx.Out

	Log      log.Config
	Security security.Config
	MQTT     realtime.Config
	HTTP     web.Config
	Redis    eventbus.RedisConfig
	Relay    eventbus.RelayConfig
	Metrics  otel.Config
}

func (c Config) Out() Out {
	return Out{
		Log:      c.Log,
		Security: c.Security,
		MQTT:     c.MQTT,
		HTTP:     c.HTTP,
		Redis:    c.Redis,
		Relay:    c.Relay,
		Metrics:  c.Metrics,
	}
}

func defaults() map[string]any {
	level := "info"
	if build.IsDevelopment() {
		level = "debug"
	}
	return map[string]any{
		"log.level":              level,
		"security.issuer":        "assetbridge",
		"security.token_ttl":     "1h",
		"mqtt.tcp.enabled":       true,
		"mqtt.tcp.address":       ":1883",
		"mqtt.websocket.enabled": true,
		"mqtt.websocket.path":    "/mqtt",
		"http.port":              8080,
		"redis.in_memory":        true,
		"relay.channel_prefix":   "assetbridge:events",
		"metrics.service_name":   build.Name,
	}
}

// Load reads path, applies defaults and environment overrides and validates
// the result. A missing file is tolerated when path is the default.
func Load(path string) (Config, *viper.Viper, error) {
	opts := []cfg.Option{
		cfg.WithDefaults(defaults()),
		cfg.WithEnvPrefix(EnvPrefix),
		cfg.WithType("toml"),
	}
	if path == "" {
		path = DefaultFile
	}
	opts = append(opts, cfg.WithFile(path))
	if path == DefaultFile {
		opts = append(opts, cfg.WithOptional())
	}

	c, v, err := cfg.Load[Config](opts...)
	if err != nil {
		return Config{}, nil, err
	}
	if err := cfg.Validate(c); err != nil {
		return Config{}, nil, err
	}
	return c, v, nil
}
