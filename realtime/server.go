// Package realtime runs the embedded MQTT broker and adapts its hooks to the
// asset event bridge.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/listeners"
	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	NoRetain = false
	Retain   = true
)

const (
	QoS0 byte = 0
	QoS1 byte = 1
	QoS2 byte = 2
)

const defaultDisconnectReason = "session disconnected by event bus"

// Server is the embedded broker. Publishes made through it use the inline
// client and bypass ACL checks.
type Server struct {
	*mqtt.Server
	config Config
	log    *zap.Logger
}

type ServerParams struct {
	fx.In
	Config Config
	Logger *zap.Logger  `optional:"true"`
	Router fiber.Router `optional:"true"`
}

func NewServer(p ServerParams) (*Server, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("mqtt")

	s := &Server{
		Server: mqtt.New(&mqtt.Options{
			InlineClient: true,
			Logger:       slog.New(slogzap.Option{Logger: log}.NewZapHandler()),
		}),
		config: p.Config,
		log:    log,
	}

	if p.Config.TCP.Enabled {
		tcp := listeners.NewTCP(listeners.Config{
			Type:    listeners.TypeTCP,
			ID:      p.Config.TCP.id(),
			Address: p.Config.TCP.Address,
		})
		if err := s.AppendListeners(tcp); err != nil {
			return nil, err
		}
	}
	if p.Config.Websocket.Enabled {
		if p.Router == nil {
			return nil, fmt.Errorf("realtime: websocket listener %q needs an http router", p.Config.Websocket.id())
		}
		if err := s.AppendListeners(NewWebsocket(p.Router, p.Config.Websocket)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) AppendHooks(hooks ...mqtt.Hook) error {
	for _, hook := range hooks {
		if err := s.Server.AddHook(hook, nil); err != nil {
			return fmt.Errorf("hook: %w", err)
		}
		s.log.Debug("registered hook", zap.String("id", hook.ID()))
	}
	return nil
}

func (s *Server) AppendListeners(ls ...listeners.Listener) error {
	for _, l := range ls {
		if err := s.Server.AddListener(l); err != nil {
			return fmt.Errorf("listener: %w", err)
		}
		s.log.Info("registered listener", zap.String("id", l.ID()), zap.String("address", l.Address()))
	}
	return nil
}

func (s *Server) Publish(topic string, payload []byte, retain bool, qos byte) error {
	return s.Server.Publish(topic, payload, retain, qos)
}

func (s *Server) Start(context.Context) error {
	if s.Listeners.Len() == 0 {
		return ErrNoListeners
	}
	return s.Server.Serve()
}

func (s *Server) Stop(context.Context) error {
	return s.Server.Close()
}

func (s *Server) DisconnectClient(_ context.Context, clientID string, reason string) error {
	if strings.TrimSpace(clientID) == "" {
		return ErrClientIDRequired
	}

	cl, ok := s.Clients.Get(clientID)
	if !ok || cl == nil {
		return fmt.Errorf("%w: %q", ErrClientNotFound, clientID)
	}

	if reason == "" {
		reason = s.config.DisconnectReason
	}
	if reason == "" {
		reason = defaultDisconnectReason
	}
	cl.Stop(errors.New(reason))
	s.log.Info("client disconnected", zap.String("client_id", clientID), zap.String("reason", reason))
	return nil
}
