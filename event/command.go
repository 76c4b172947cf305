package event

import (
	"encoding/json"
	"time"
)

// WriteCommand asks for one property of one entity to change value.
type WriteCommand struct {
	EntityID     string
	PropertyName string
	// Value is nil when the payload carried no value.
	Value json.RawMessage
	// Event is set when the command arrived as a complete write event.
	Event *PropertyEvent
}

// ToEvent renders the command as the property event it should produce. Realm,
// source and position in the hierarchy are never taken from the client.
func (c WriteCommand) ToEvent(realm, source string, now time.Time) *PropertyEvent {
	if c.Event != nil {
		ev := *c.Event
		ev.Realm = realm
		ev.Source = source
		ev.ParentID = NoParent
		ev.Path = nil
		if ev.Timestamp == 0 {
			ev.Timestamp = now.UnixMilli()
		}
		return &ev
	}
	return &PropertyEvent{
		EntityID:  c.EntityID,
		Realm:     realm,
		Name:      c.PropertyName,
		Value:     c.Value,
		Timestamp: now.UnixMilli(),
		Source:    source,
	}
}
