package realtime

import (
	"bytes"
	"context"
	"errors"

	"github.com/bronystylecrazy/assetbridge/bridge"
	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/security"
	"github.com/bronystylecrazy/assetbridge/topic"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const HookID = "assetbridge-bridge-hook"

// Authenticator resolves the identity of a connecting client.
type Authenticator interface {
	Authenticate(realm, username, password string) (*event.AuthContext, error)
}

// Disconnector forces a client off the broker.
type Disconnector interface {
	DisconnectClient(ctx context.Context, clientID string, reason string) error
}

// Hook connects broker events to the bridge handler.
type Hook struct {
	mqtt.HookBase
	handler      *bridge.Handler
	authn        Authenticator
	store        *ConnectionStore
	disconnector Disconnector
	log          *zap.Logger
}

type HookParams struct {
	fx.In
	Handler       *bridge.Handler
	Authenticator Authenticator
	Store         *ConnectionStore
	Disconnector  Disconnector
	Logger        *zap.Logger `optional:"true"`
}

func NewHook(p HookParams) *Hook {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Hook{
		handler:      p.Handler,
		authn:        p.Authenticator,
		store:        p.Store,
		disconnector: p.Disconnector,
		log:          log.Named("hook"),
	}
}

func (h *Hook) ID() string {
	return HookID
}

func (h *Hook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnConnectAuthenticate,
		mqtt.OnACLCheck,
		mqtt.OnSessionEstablished,
		mqtt.OnDisconnect,
		mqtt.OnSubscribed,
		mqtt.OnUnsubscribed,
		mqtt.OnPublish,
	}, []byte{b})
}

// OnConnectAuthenticate accepts a client whose username names a realm and
// whose password, when present, is a valid token for that realm.
func (h *Hook) OnConnectAuthenticate(cl *mqtt.Client, pk packets.Packet) bool {
	realm, username := security.SplitUsername(string(pk.Connect.Username))
	auth, err := h.authn.Authenticate(realm, username, string(pk.Connect.Password))
	if err != nil {
		h.log.Info("connection rejected", zap.String("client_id", cl.ID), zap.String("realm", realm), zap.Error(err))
		return false
	}

	clientID := cl.ID
	h.store.Set(cl, bridge.Connection{
		ClientID:   clientID,
		Realm:      realm,
		Auth:       auth,
		CleanStart: pk.Connect.Clean,
		Disconnect: func(reason string) error {
			return h.disconnector.DisconnectClient(context.Background(), clientID, reason)
		},
	})
	return true
}

// OnACLCheck scopes every topic to the connection's realm and client id
// before applying the bridge grammar.
func (h *Hook) OnACLCheck(cl *mqtt.Client, topicName string, write bool) bool {
	if cl.Net.Inline {
		return true
	}
	conn, ok := h.store.Get(cl.ID)
	if !ok {
		return false
	}

	t := topic.Parse(topicName)
	if t.Realm() != conn.Realm || t.ClientID() != conn.ClientID {
		h.log.Debug("topic outside connection scope", zap.String("client_id", cl.ID), zap.String("topic", topicName))
		return false
	}

	ctx := context.Background()
	if write {
		return h.handler.CanPublish(ctx, conn, topicName)
	}
	return h.handler.CanSubscribe(ctx, conn, topicName)
}

func (h *Hook) OnSessionEstablished(cl *mqtt.Client, _ packets.Packet) {
	if conn, ok := h.store.Get(cl.ID); ok {
		h.handler.Connected(conn)
	}
}

func (h *Hook) OnDisconnect(cl *mqtt.Client, err error, _ bool) {
	conn, ok := h.store.Release(cl)
	if !ok {
		return
	}
	if cleanDisconnect(err) {
		h.handler.Disconnected(conn)
		return
	}
	h.log.Debug("client connection lost", zap.String("client_id", cl.ID), zap.Error(err))
	h.handler.ConnectionLost(conn)
}

func cleanDisconnect(err error) bool {
	return err == nil ||
		errors.Is(err, packets.CodeDisconnect) ||
		errors.Is(err, packets.CodeSuccess)
}

func (h *Hook) OnSubscribed(cl *mqtt.Client, pk packets.Packet, reasonCodes []byte) {
	if cl.Net.Inline {
		return
	}
	conn, ok := h.store.Get(cl.ID)
	if !ok {
		return
	}

	ctx := context.Background()
	for i, sub := range pk.Filters {
		if i >= len(reasonCodes) || reasonCodes[i] >= packets.ErrUnspecifiedError.Code {
			continue
		}
		if err := h.handler.Subscribe(ctx, conn, sub.Filter, reasonCodes[i]); err != nil {
			h.log.Warn("failed to register subscription", zap.String("client_id", cl.ID), zap.String("topic", sub.Filter), zap.Error(err))
		}
	}
}

func (h *Hook) OnUnsubscribed(cl *mqtt.Client, pk packets.Packet) {
	if cl.Net.Inline {
		return
	}
	conn, ok := h.store.Get(cl.ID)
	if !ok {
		return
	}

	ctx := context.Background()
	for _, sub := range pk.Filters {
		if err := h.handler.Unsubscribe(ctx, conn, sub.Filter); err != nil {
			h.log.Warn("failed to cancel subscription", zap.String("client_id", cl.ID), zap.String("topic", sub.Filter), zap.Error(err))
		}
	}
}

func (h *Hook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	if cl.Net.Inline {
		return pk, nil
	}
	if conn, ok := h.store.Get(cl.ID); ok {
		h.handler.Publish(context.Background(), conn, pk.TopicName, pk.Payload)
	}
	return pk, nil
}
