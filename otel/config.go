package otel

import "time"

type Config struct {
	ServiceName   string            `mapstructure:"service_name"`
	ResourceAttrs map[string]string `mapstructure:"resource_attributes"`
	OTLP          OTLPConfig        `mapstructure:"otlp"`
}

// OTLPConfig enables periodic export next to the on demand snapshot. Export
// is off while Endpoint is empty.
type OTLPConfig struct {
	Endpoint string            `mapstructure:"endpoint" validate:"omitempty,url"`
	Protocol string            `mapstructure:"protocol" validate:"omitempty,oneof=grpc http"`
	Headers  map[string]string `mapstructure:"headers"`
	Insecure bool              `mapstructure:"insecure"`
	Interval time.Duration     `mapstructure:"interval"`
}

func (c Config) serviceName() string {
	if c.ServiceName == "" {
		return "assetbridge"
	}
	return c.ServiceName
}

func (c OTLPConfig) interval() time.Duration {
	if c.Interval <= 0 {
		return 10 * time.Second
	}
	return c.Interval
}
