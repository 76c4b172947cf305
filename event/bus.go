package event

import "context"

// DeliveryFunc receives events matching a subscription. It may be invoked
// concurrently from several goroutines.
type DeliveryFunc func(Event)

type Subscription struct {
	// ID is the literal subscribe filter; the bus deduplicates by it per session.
	ID      string
	Kind    EventKind
	Filter  AssetFilter
	Deliver DeliveryFunc
}

// SubscriptionDescriptor is what authorization decides on.
type SubscriptionDescriptor struct {
	Kind   EventKind
	Filter AssetFilter
}

// Bus is the event bus side of the bridge.
type Bus interface {
	RegisterSubscription(sub Subscription, headers Headers) error
	CancelSubscription(kind EventKind, id string, headers Headers) error
	SendWriteCommand(ctx context.Context, cmd WriteCommand, headers Headers) error
	NotifyLifecycle(headers Headers) error
}

// SubscriptionPolicy decides whether an identity may hold a subscription.
type SubscriptionPolicy interface {
	AuthorizeSubscription(ctx context.Context, auth *AuthContext, sub SubscriptionDescriptor) bool
}

// WritePolicy decides whether an identity may apply a write command in realm.
type WritePolicy interface {
	AuthorizeWrite(ctx context.Context, auth *AuthContext, realm string, cmd WriteCommand) bool
}
