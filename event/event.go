// Package event holds the domain types exchanged between the MQTT bridge and
// the event bus: entity and property events, asset filters, write commands,
// authorization contexts and session headers.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

type EventKind uint8

const (
	EntityEventKind EventKind = iota + 1
	PropertyEventKind
)

func (k EventKind) String() string {
	switch k {
	case EntityEventKind:
		return "entity"
	case PropertyEventKind:
		return "property"
	default:
		return "unknown"
	}
}

type Cause string

const (
	CauseCreate Cause = "CREATE"
	CauseUpdate Cause = "UPDATE"
	CauseDelete Cause = "DELETE"
)

// EntityEvent describes a whole-entity change.
type EntityEvent struct {
	Cause     Cause    `json:"cause"`
	EntityID  string   `json:"entityId"`
	Realm     string   `json:"realm"`
	ParentID  string   `json:"parentId,omitempty"`
	Path      []string `json:"path,omitempty"`
	Name      string   `json:"name,omitempty"`
	Type      string   `json:"type,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// PropertyEvent describes a change of one property value on one entity.
// A nil Value marshals as null.
type PropertyEvent struct {
	EntityID  string          `json:"entityId"`
	Realm     string          `json:"realm,omitempty"`
	ParentID  string          `json:"parentId,omitempty"`
	Path      []string        `json:"path,omitempty"`
	Name      string          `json:"name"`
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Source    string          `json:"source,omitempty"`
}

// Event is a closed variant over EntityEvent and PropertyEvent.
type Event struct {
	kind     EventKind
	entity   *EntityEvent
	property *PropertyEvent
}

var ErrInvalidEvent = errors.New("event: invalid event")

func NewEntityEvent(e *EntityEvent) Event {
	return Event{kind: EntityEventKind, entity: e}
}

func NewPropertyEvent(e *PropertyEvent) Event {
	return Event{kind: PropertyEventKind, property: e}
}

func (e Event) Kind() EventKind {
	return e.kind
}

func (e Event) Entity() (*EntityEvent, bool) {
	return e.entity, e.kind == EntityEventKind && e.entity != nil
}

func (e Event) Property() (*PropertyEvent, bool) {
	return e.property, e.kind == PropertyEventKind && e.property != nil
}

func (e Event) EntityID() string {
	switch e.kind {
	case EntityEventKind:
		return e.entity.EntityID
	case PropertyEventKind:
		return e.property.EntityID
	default:
		return ""
	}
}

func (e Event) Realm() string {
	switch e.kind {
	case EntityEventKind:
		return e.entity.Realm
	case PropertyEventKind:
		return e.property.Realm
	default:
		return ""
	}
}

type envelope struct {
	Kind     string         `json:"kind"`
	Entity   *EntityEvent   `json:"entity,omitempty"`
	Property *PropertyEvent `json:"property,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.kind {
	case EntityEventKind:
		return json.Marshal(envelope{Kind: e.kind.String(), Entity: e.entity})
	case PropertyEventKind:
		return json.Marshal(envelope{Kind: e.kind.String(), Property: e.property})
	default:
		return nil, ErrInvalidEvent
	}
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch {
	case env.Kind == EntityEventKind.String() && env.Entity != nil:
		*e = NewEntityEvent(env.Entity)
	case env.Kind == PropertyEventKind.String() && env.Property != nil:
		*e = NewPropertyEvent(env.Property)
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidEvent, env.Kind)
	}
	return nil
}
