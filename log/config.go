package log

// Config configures the process logger.
type Config struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error fatal"`
	// Redact lists field keys whose values are masked in every entry.
	Redact []string `mapstructure:"redact"`
}

// DefaultRedact is used when Config.Redact is empty.
var DefaultRedact = []string{"password", "token", "secret"}
