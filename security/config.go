package security

import "time"

const (
	defaultTokenTTL = time.Hour
	defaultIssuer   = "assetbridge"
)

type Config struct {
	Secret   string        `mapstructure:"secret" validate:"required"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	// DenyAnonymous rejects connections that present no password.
	DenyAnonymous bool `mapstructure:"deny_anonymous"`
}

func (c Config) withDefaults() Config {
	if c.Issuer == "" {
		c.Issuer = defaultIssuer
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
	return c
}
