// Package bridge translates MQTT subscribe, publish and session operations
// into event bus subscriptions, write commands and lifecycle notifications.
package bridge

import (
	"context"
	"errors"

	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/topic"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Publisher delivers rendered events to the transport.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool, qos byte) error
}

type Handler struct {
	bus        event.Bus
	pub        Publisher
	authorizer *Authorizer
	metrics    *Metrics
	log        *zap.Logger
}

type HandlerParams struct {
	fx.In
	Bus       event.Bus
	Publisher Publisher
	Policy    event.SubscriptionPolicy `optional:"true"`
	Metrics   *Metrics                 `optional:"true"`
	Logger    *zap.Logger              `optional:"true"`
}

func NewHandler(p HandlerParams) *Handler {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("bridge")
	return &Handler{
		bus:        p.Bus,
		pub:        p.Publisher,
		authorizer: NewAuthorizer(p.Policy, log),
		metrics:    p.Metrics,
		log:        log,
	}
}

func connFields(conn Connection, t string) []zap.Field {
	return []zap.Field{
		zap.String("topic", t),
		zap.String("client_id", conn.ClientID),
		zap.String("realm", conn.Realm),
	}
}

// CanSubscribe reports whether conn may subscribe to filter. It validates the
// topic grammar, builds the asset filter and asks the subscription policy.
func (h *Handler) CanSubscribe(ctx context.Context, conn Connection, filter string) bool {
	if conn.Anonymous() {
		h.log.Debug("anonymous subscribe not supported", connFields(conn, filter)...)
		h.metrics.SubscriptionRejected(ctx, ReasonAnonymous)
		return false
	}

	t := topic.Parse(filter)
	if err := topic.SubscribeRejection(t); err != nil {
		h.log.Debug("subscribe topic rejected", append(connFields(conn, filter), zap.Error(err))...)
		h.metrics.SubscriptionRejected(ctx, ReasonGrammar)
		return false
	}

	f, ok := BuildFilter(t, conn.Realm)
	kind, _ := EventKindOf(t.Kind())
	if !ok {
		h.log.Info("failed to process subscription topic", connFields(conn, filter)...)
		h.metrics.SubscriptionRejected(ctx, ReasonFilter)
		return false
	}

	if err := h.authorizer.Authorize(ctx, conn.Auth, kind, f); err != nil {
		h.log.Info("subscription was not authorised for this user and topic", append(connFields(conn, filter), zap.Error(err))...)
		h.metrics.SubscriptionRejected(ctx, ReasonAuthorization)
		return false
	}
	return true
}

// CanPublish reports whether conn may publish on topicName. Only write topics
// are accepted.
func (h *Handler) CanPublish(ctx context.Context, conn Connection, topicName string) bool {
	if conn.Anonymous() {
		h.log.Debug("anonymous publish not supported", connFields(conn, topicName)...)
		h.metrics.PublishDropped(ctx, ReasonAnonymous)
		return false
	}
	t := topic.Parse(topicName)
	if !t.Kind().IsWrite() {
		h.log.Debug("publish topic has no handler", connFields(conn, topicName)...)
		h.metrics.PublishDropped(ctx, ReasonUnsupported)
		return false
	}
	if err := topic.PublishRejection(t); err != nil {
		h.log.Debug("publish topic rejected", append(connFields(conn, topicName), zap.Error(err))...)
		h.metrics.PublishDropped(ctx, ReasonGrammar)
		return false
	}
	return true
}

// Subscribe registers an accepted subscription on the bus. The filter string
// is the subscription id.
func (h *Handler) Subscribe(ctx context.Context, conn Connection, filter string, qos byte) error {
	t := topic.Parse(filter)
	kind, ok := EventKindOf(t.Kind())
	if !ok {
		return ErrFilterUnsupported
	}
	f, ok := BuildFilter(t, conn.Realm)
	if !ok {
		h.log.Debug("invalid event filter generated for topic", connFields(conn, filter)...)
		return ErrFilterUnsupported
	}

	sub := event.Subscription{
		ID:      filter,
		Kind:    kind,
		Filter:  f,
		Deliver: h.newDelivery(conn, t, qos),
	}
	if err := h.bus.RegisterSubscription(sub, SessionContext(conn)); err != nil {
		return err
	}
	h.metrics.SubscriptionAccepted(ctx, t.Kind().String())
	h.log.Debug("subscription registered", connFields(conn, filter)...)
	return nil
}

// Unsubscribe cancels the bus subscription created for filter.
func (h *Handler) Unsubscribe(_ context.Context, conn Connection, filter string) error {
	kind, ok := EventKindOf(topic.Parse(filter).Kind())
	if !ok {
		return nil
	}
	return h.bus.CancelSubscription(kind, filter, SessionContext(conn))
}

// Publish decodes a write publish and forwards it to the bus. Failures are
// logged and the publish is dropped; nothing is reported to the client.
func (h *Handler) Publish(ctx context.Context, conn Connection, topicName string, payload []byte) {
	t := topic.Parse(topicName)
	cmd, err := DecodePublish(t, payload)
	if err != nil {
		h.log.Debug("failed to parse payload for publish topic", append(connFields(conn, topicName), zap.Error(err))...)
		h.metrics.PublishDropped(ctx, ReasonDecode)
		return
	}

	if err := h.bus.SendWriteCommand(ctx, cmd, SessionContext(conn)); err != nil {
		level := h.log.Warn
		if errors.Is(err, context.Canceled) {
			level = h.log.Debug
		}
		level("write command not applied", append(connFields(conn, topicName), zap.Error(err))...)
		h.metrics.PublishDropped(ctx, ReasonBus)
		return
	}
	h.metrics.PublishForwarded(ctx)
}

func (h *Handler) Connected(conn Connection) {
	h.notify(conn, event.LifecycleOpen, "connected")
}

func (h *Handler) Disconnected(conn Connection) {
	h.notify(conn, event.LifecycleClose, "connection closed")
}

func (h *Handler) ConnectionLost(conn Connection) {
	h.notify(conn, event.LifecycleCloseError, "connection lost")
}

func (h *Handler) notify(conn Connection, l event.Lifecycle, msg string) {
	if err := h.bus.NotifyLifecycle(LifecycleContext(conn, l)); err != nil {
		h.log.Warn("lifecycle notification failed", zap.String("client_id", conn.ClientID), zap.Stringer("lifecycle", l), zap.Error(err))
		return
	}
	h.log.Debug(msg, zap.String("client_id", conn.ClientID), zap.String("realm", conn.Realm))
}
