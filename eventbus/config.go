package eventbus

import (
	"time"

	redis "github.com/redis/go-redis/v9"
)

type RelayConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ChannelPrefix string `mapstructure:"channel_prefix" validate:"required_if=Enabled true"`
}

type RedisConfig struct {
	InMemory     bool          `mapstructure:"in_memory"`
	Addr         string        `mapstructure:"addr"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
}

func (c RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolSize:     c.PoolSize,
	}
}
