package eventbus

import (
	"slices"
	"sync"

	"github.com/bronystylecrazy/assetbridge/event"
)

type entityKey struct {
	realm string
	id    string
}

type entityNode struct {
	parentID string
	path     []string
}

// hierarchy remembers where entities sit in their tree, as learned from
// entity events, so that property events produced from write commands can be
// matched against parent and path filters.
type hierarchy struct {
	mu    sync.RWMutex
	nodes map[entityKey]entityNode
}

func newHierarchy() *hierarchy {
	return &hierarchy{nodes: map[entityKey]entityNode{}}
}

func (h *hierarchy) observe(e *event.EntityEvent) {
	key := entityKey{realm: e.Realm, id: e.EntityID}

	h.mu.Lock()
	defer h.mu.Unlock()
	if e.Cause == event.CauseDelete {
		delete(h.nodes, key)
		return
	}

	path := slices.Clone(e.Path)
	if len(path) == 0 {
		if parent, ok := h.nodes[entityKey{realm: e.Realm, id: e.ParentID}]; ok && e.ParentID != event.NoParent {
			path = append(slices.Clone(parent.path), e.EntityID)
		} else if e.ParentID == event.NoParent {
			path = []string{e.EntityID}
		}
	}
	h.nodes[key] = entityNode{parentID: e.ParentID, path: path}
}

func (h *hierarchy) lookup(realm, id string) (entityNode, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[entityKey{realm: realm, id: id}]
	if !ok {
		return entityNode{}, false
	}
	return entityNode{parentID: n.parentID, path: slices.Clone(n.path)}, true
}

// enrich returns a copy of p with parent and path filled from the cache. It
// reports false when p already carries them or the entity is unknown.
func (h *hierarchy) enrich(p *event.PropertyEvent) (*event.PropertyEvent, bool) {
	if p.ParentID != "" || len(p.Path) > 0 {
		return nil, false
	}
	n, ok := h.lookup(p.Realm, p.EntityID)
	if !ok {
		return nil, false
	}
	out := *p
	out.ParentID = n.parentID
	out.Path = n.path
	return &out, true
}

func (h *hierarchy) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}
