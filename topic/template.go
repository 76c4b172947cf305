package topic

import "strings"

type SlotKind uint8

const (
	SlotNone SlotKind = iota
	SlotPropertyName
	SlotEntityID
)

// Segment is either a literal run of topic text or a slot filled at render time.
type Segment struct {
	Literal string
	Slot    SlotKind
}

// Template renders the concrete topic an event is published on for one
// subscription. It is immutable and safe for concurrent use.
type Template struct {
	filter     string
	kind       Kind
	segments   []Segment
	literalLen int
	slots      int
}

// NewTemplate builds the render template for an accepted subscribe topic.
// A single level wildcard in the property name position becomes a property
// name slot; a trailing wildcard becomes an entity id slot.
func NewTemplate(t Topic) Template {
	tmpl := Template{filter: t.raw, kind: t.kind}
	last := len(t.tokens) - 1

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			tmpl.segments = append(tmpl.segments, Segment{Literal: lit.String()})
			tmpl.literalLen += lit.Len()
			lit.Reset()
		}
	}

	for i, token := range t.tokens {
		if i > 0 {
			lit.WriteString(Separator)
		}
		slot := SlotNone
		switch {
		case i == last && i > KindIndex && IsWildcard(token):
			slot = SlotEntityID
		case i == 3 && t.kind.IsProperty() && token == SingleLevelWildcard:
			slot = SlotPropertyName
		}
		if slot == SlotNone {
			lit.WriteString(token)
			continue
		}
		flush()
		tmpl.segments = append(tmpl.segments, Segment{Slot: slot})
		tmpl.slots++
	}
	flush()
	return tmpl
}

func (t Template) String() string {
	return t.filter
}

func (t Template) Kind() Kind {
	return t.kind
}

// Segments returns a copy of the template segments.
func (t Template) Segments() []Segment {
	return append([]Segment(nil), t.segments...)
}

func (t Template) HasSlot(kind SlotKind) bool {
	for _, seg := range t.segments {
		if seg.Slot == kind {
			return true
		}
	}
	return false
}

// Expand renders the template for the given event identifiers. Slot values
// are inserted verbatim, so identifiers may contain any character.
func (t Template) Expand(entityID, propertyName string) string {
	if t.slots == 0 {
		return t.filter
	}
	var b strings.Builder
	b.Grow(t.literalLen + len(entityID) + len(propertyName))
	for _, seg := range t.segments {
		switch seg.Slot {
		case SlotEntityID:
			b.WriteString(entityID)
		case SlotPropertyName:
			b.WriteString(propertyName)
		default:
			b.WriteString(seg.Literal)
		}
	}
	return b.String()
}
