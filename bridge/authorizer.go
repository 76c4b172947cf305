package bridge

import (
	"context"

	"github.com/bronystylecrazy/assetbridge/event"
	"go.uber.org/zap"
)

// Authorizer gates subscriptions on the external policy. It fails closed.
type Authorizer struct {
	policy event.SubscriptionPolicy
	log    *zap.Logger
}

func NewAuthorizer(policy event.SubscriptionPolicy, log *zap.Logger) *Authorizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authorizer{policy: policy, log: log}
}

func (a *Authorizer) Authorize(ctx context.Context, auth *event.AuthContext, kind event.EventKind, filter event.AssetFilter) error {
	if auth == nil {
		return ErrAnonymous
	}
	if a == nil || a.policy == nil {
		return ErrAuthorizationDenied
	}
	if !a.policy.AuthorizeSubscription(ctx, auth, event.SubscriptionDescriptor{Kind: kind, Filter: filter}) {
		return ErrAuthorizationDenied
	}
	return nil
}
