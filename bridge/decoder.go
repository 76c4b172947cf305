package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/topic"
)

// DecodePublish turns a publish topic that passed topic.CanPublish and its
// payload into a write command.
//
// On writepropertyvalue topics the payload is any JSON value and the property
// name and entity id come from the topic. On writeproperty topics the payload
// is a complete property event.
func DecodePublish(t topic.Topic, payload []byte) (event.WriteCommand, error) {
	switch t.Kind() {
	case topic.KindPropertyValueWrite:
		value := bytes.TrimSpace(payload)
		if !json.Valid(value) {
			return event.WriteCommand{}, fmt.Errorf("%w: payload is not a json value", ErrPayloadDecode)
		}
		cmd := event.WriteCommand{
			PropertyName: t.Token(3),
			EntityID:     t.Token(4),
		}
		if !bytes.Equal(value, []byte("null")) {
			cmd.Value = json.RawMessage(bytes.Clone(value))
		}
		return cmd, nil
	case topic.KindPropertyWrite:
		var ev event.PropertyEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return event.WriteCommand{}, fmt.Errorf("%w: %v", ErrPayloadDecode, err)
		}
		if ev.EntityID == "" || ev.Name == "" {
			return event.WriteCommand{}, fmt.Errorf("%w: write event requires entityId and name", ErrPayloadDecode)
		}
		if !topic.IsEntityID(ev.EntityID) {
			return event.WriteCommand{}, fmt.Errorf("%w: invalid entityId %q", ErrPayloadDecode, ev.EntityID)
		}
		if !topic.IsPropertyName(ev.Name) {
			return event.WriteCommand{}, fmt.Errorf("%w: invalid property name %q", ErrPayloadDecode, ev.Name)
		}
		if bytes.Equal(bytes.TrimSpace(ev.Value), []byte("null")) {
			ev.Value = nil
		}
		return event.WriteCommand{
			EntityID:     ev.EntityID,
			PropertyName: ev.Name,
			Value:        ev.Value,
			Event:        &ev,
		}, nil
	default:
		return event.WriteCommand{}, fmt.Errorf("%w: %s", ErrUnsupportedPublish, t.Kind())
	}
}
