package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"

	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/topic"
	"go.uber.org/zap"
)

var nullValue = []byte("null")

// Render produces the topic and payload an event is published on for the
// subscription tmpl was built from. Value subscriptions receive only the
// property value.
func Render(tmpl topic.Template, ev event.Event) (string, []byte, error) {
	switch ev.Kind() {
	case event.EntityEventKind:
		e, ok := ev.Entity()
		if !ok || tmpl.Kind() != topic.KindEntity {
			return "", nil, ErrEventKindMismatch
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return "", nil, err
		}
		return tmpl.Expand(e.EntityID, ""), payload, nil
	case event.PropertyEventKind:
		p, ok := ev.Property()
		if !ok || !tmpl.Kind().IsProperty() {
			return "", nil, ErrEventKindMismatch
		}
		var payload []byte
		if tmpl.Kind() == topic.KindPropertyValue {
			payload = p.Value
			if len(payload) == 0 {
				payload = nullValue
			}
		} else {
			var err error
			if payload, err = json.Marshal(p); err != nil {
				return "", nil, err
			}
		}
		return tmpl.Expand(p.EntityID, p.Name), payload, nil
	default:
		return "", nil, ErrEventKindMismatch
	}
}

// newDelivery builds the callback the bus invokes for every matching event.
// The template is built once here and shared by all invocations.
func (h *Handler) newDelivery(conn Connection, t topic.Topic, qos byte) event.DeliveryFunc {
	tmpl := topic.NewTemplate(t)
	log := h.log.With(zap.String("client_id", conn.ClientID), zap.String("filter", t.String()))

	return func(ev event.Event) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic in mqtt delivery", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			}
		}()

		name, payload, err := Render(tmpl, ev)
		if errors.Is(err, ErrEventKindMismatch) {
			return
		}
		if err != nil {
			log.Warn("failed to render event", zap.Error(err), zap.String("entity_id", ev.EntityID()))
			return
		}
		if err := h.pub.Publish(name, payload, false, qos); err != nil {
			log.Warn("failed to publish event", zap.Error(err), zap.String("topic", name))
			return
		}
		h.metrics.Delivered(context.Background())
	}
}
