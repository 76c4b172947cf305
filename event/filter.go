package event

import (
	"errors"
	"slices"
)

// NoParent is the parent id of top-level entities. A filter whose parent ids
// contain NoParent matches entities without a parent.
const NoParent = ""

var ErrFilterRestrictionConflict = errors.New("event: filter may restrict by only one of entity ids, parent ids or paths")

// FilterSpec holds the inputs for NewAssetFilter.
type FilterSpec struct {
	Realm         string
	EntityIDs     []string
	ParentIDs     []string
	Paths         []string
	PropertyNames []string
}

// AssetFilter restricts which events a subscription receives. It is an
// immutable value: all accessors return copies.
type AssetFilter struct {
	realm         string
	entityIDs     []string
	parentIDs     []string
	paths         []string
	propertyNames []string
}

func NewAssetFilter(spec FilterSpec) (AssetFilter, error) {
	restrictions := 0
	for _, set := range [][]string{spec.EntityIDs, spec.ParentIDs, spec.Paths} {
		if len(set) > 0 {
			restrictions++
		}
	}
	if restrictions > 1 {
		return AssetFilter{}, ErrFilterRestrictionConflict
	}
	return AssetFilter{
		realm:         spec.Realm,
		entityIDs:     slices.Clone(spec.EntityIDs),
		parentIDs:     slices.Clone(spec.ParentIDs),
		paths:         slices.Clone(spec.Paths),
		propertyNames: slices.Clone(spec.PropertyNames),
	}, nil
}

func (f AssetFilter) Realm() string {
	return f.realm
}

func (f AssetFilter) EntityIDs() []string {
	return slices.Clone(f.entityIDs)
}

func (f AssetFilter) ParentIDs() []string {
	return slices.Clone(f.parentIDs)
}

func (f AssetFilter) Paths() []string {
	return slices.Clone(f.paths)
}

func (f AssetFilter) PropertyNames() []string {
	return slices.Clone(f.propertyNames)
}

// Unrestricted reports whether the filter only scopes by realm.
func (f AssetFilter) Unrestricted() bool {
	return len(f.entityIDs) == 0 && len(f.parentIDs) == 0 && len(f.paths) == 0 && len(f.propertyNames) == 0
}

// MatchesEntity reports whether an entity with the given identity passes the
// filter. path lists the entity's ancestors from the root down to the entity.
func (f AssetFilter) MatchesEntity(realm, entityID, parentID string, path []string) bool {
	if f.realm != "" && f.realm != realm {
		return false
	}
	if len(f.entityIDs) > 0 && !slices.Contains(f.entityIDs, entityID) {
		return false
	}
	if len(f.parentIDs) > 0 && !slices.Contains(f.parentIDs, parentID) {
		return false
	}
	if len(f.paths) > 0 {
		for _, p := range f.paths {
			if !slices.Contains(path, p) {
				return false
			}
		}
	}
	return true
}

// Matches evaluates the filter against a delivered event.
func (f AssetFilter) Matches(ev Event) bool {
	switch ev.Kind() {
	case EntityEventKind:
		e := ev.entity
		return f.MatchesEntity(e.Realm, e.EntityID, e.ParentID, e.Path)
	case PropertyEventKind:
		p := ev.property
		if len(f.propertyNames) > 0 && !slices.Contains(f.propertyNames, p.Name) {
			return false
		}
		return f.MatchesEntity(p.Realm, p.EntityID, p.ParentID, p.Path)
	default:
		return false
	}
}
