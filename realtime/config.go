package realtime

type TCPListenerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	ID      string `mapstructure:"id"`
	Address string `mapstructure:"address" validate:"required_if=Enabled true"`
}

// WebsocketListenerConfig mounts MQTT over websocket on the HTTP server.
type WebsocketListenerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	ID      string `mapstructure:"id"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type Config struct {
	TCP       TCPListenerConfig       `mapstructure:"tcp"`
	Websocket WebsocketListenerConfig `mapstructure:"websocket"`
	// DisconnectReason is the stop cause given to clients the bus disconnects.
	DisconnectReason string `mapstructure:"disconnect_reason"`
}

func (c TCPListenerConfig) id() string {
	if c.ID == "" {
		return "t1"
	}
	return c.ID
}

func (c WebsocketListenerConfig) id() string {
	if c.ID == "" {
		return "ws1"
	}
	return c.ID
}
