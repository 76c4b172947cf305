package eventbus

import (
	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

// RedisClient is a redis client plus the embedded server backing it when
// configured in memory.
type RedisClient struct {
	*redis.Client
	embedded *miniredis.Miniredis
}

func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	options := cfg.Options()
	out := &RedisClient{}
	if cfg.InMemory {
		server, err := miniredis.Run()
		if err != nil {
			return nil, err
		}
		options.Addr = server.Addr()
		out.embedded = server
	}
	out.Client = redis.NewClient(options)
	return out, nil
}

func (c *RedisClient) Close() error {
	err := c.Client.Close()
	if c.embedded != nil {
		c.embedded.Close()
	}
	return err
}
