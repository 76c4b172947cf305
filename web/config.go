package web

import (
	"net"
	"strconv"
	"time"
)

type Config struct {
	Name         string        `mapstructure:"name"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (c Config) Address() string {
	port := c.Port
	if port == 0 {
		port = 8080
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}
