package bridge

import (
	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/topic"
)

// BuildFilter converts a subscribe topic that passed topic.CanSubscribe into
// an asset filter scoped to realm. It returns false when the topic shape has
// no filter representation.
//
//	{realm}/{clientId}/entity/#                    all entities
//	{realm}/{clientId}/entity/+                    top-level entities
//	{realm}/{clientId}/entity/{id}                 one entity
//	{realm}/{clientId}/entity/{id}/#               subtree below id
//	{realm}/{clientId}/entity/{id}/+               direct children of id
//	{realm}/{clientId}/property/{name|+}/...       same shapes, shifted by one
func BuildFilter(t topic.Topic, realm string) (event.AssetFilter, bool) {
	spec := event.FilterSpec{Realm: realm}
	offset := 3

	switch {
	case t.Kind() == topic.KindEntity:
	case t.Kind().IsProperty():
		if name := t.Token(3); name != topic.SingleLevelWildcard {
			spec.PropertyNames = []string{name}
		}
		offset = 4
	default:
		return event.AssetFilter{}, false
	}

	switch t.Len() - offset {
	case 1:
		switch token := t.Token(offset); token {
		case topic.MultiLevelWildcard:
		case topic.SingleLevelWildcard:
			spec.ParentIDs = []string{event.NoParent}
		default:
			spec.EntityIDs = []string{token}
		}
	case 2:
		anchor := t.Token(offset)
		switch t.Token(offset + 1) {
		case topic.MultiLevelWildcard:
			spec.Paths = []string{anchor}
		case topic.SingleLevelWildcard:
			spec.ParentIDs = []string{anchor}
		default:
			return event.AssetFilter{}, false
		}
	default:
		return event.AssetFilter{}, false
	}

	f, err := event.NewAssetFilter(spec)
	if err != nil {
		return event.AssetFilter{}, false
	}
	return f, true
}

// EventKindOf maps a subscribe topic kind to the event kind it receives.
func EventKindOf(k topic.Kind) (event.EventKind, bool) {
	switch {
	case k == topic.KindEntity:
		return event.EntityEventKind, true
	case k.IsProperty():
		return event.PropertyEventKind, true
	default:
		return 0, false
	}
}
