package security

import (
	"context"

	"github.com/bronystylecrazy/assetbridge/event"
	"go.uber.org/zap"
)

// Policy is the role based subscription and write policy.
type Policy struct {
	log *zap.Logger
}

var (
	_ event.SubscriptionPolicy = (*Policy)(nil)
	_ event.WritePolicy        = (*Policy)(nil)
)

func NewPolicy(log *zap.Logger) *Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return &Policy{log: log.Named("policy")}
}

func (p *Policy) AuthorizeSubscription(_ context.Context, auth *event.AuthContext, sub event.SubscriptionDescriptor) bool {
	if auth == nil {
		return false
	}
	if !auth.CanAccessRealm(sub.Filter.Realm()) {
		p.log.Debug("subscription realm not accessible", zap.String("realm", sub.Filter.Realm()), zap.String("username", auth.Username))
		return false
	}
	if auth.Superuser {
		return true
	}

	var ok bool
	switch sub.Kind {
	case event.EntityEventKind:
		ok = auth.HasAnyRole(event.RoleRead, event.RoleReadAssets)
	case event.PropertyEventKind:
		ok = auth.HasAnyRole(event.RoleRead, event.RoleReadAttributes)
	}
	if !ok {
		p.log.Debug("missing read role", zap.Stringer("kind", sub.Kind), zap.String("username", auth.Username))
		return false
	}

	if auth.Restricted {
		ids := sub.Filter.EntityIDs()
		if len(ids) == 0 {
			return false
		}
		for _, id := range ids {
			if !auth.IsLinked(id) {
				return false
			}
		}
	}
	return true
}

func (p *Policy) AuthorizeWrite(_ context.Context, auth *event.AuthContext, realm string, cmd event.WriteCommand) bool {
	if auth == nil {
		return false
	}
	if !auth.CanAccessRealm(realm) {
		return false
	}
	if auth.Superuser {
		return true
	}
	if !auth.HasRole(event.RoleWriteAttributes) {
		p.log.Debug("missing write role", zap.String("username", auth.Username), zap.String("entity_id", cmd.EntityID))
		return false
	}
	if auth.Restricted && !auth.IsLinked(cmd.EntityID) {
		return false
	}
	return true
}
