package security

import (
	"context"
	"testing"

	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptor(t *testing.T, kind event.EventKind, spec event.FilterSpec) event.SubscriptionDescriptor {
	t.Helper()
	f, err := event.NewAssetFilter(spec)
	require.NoError(t, err)
	return event.SubscriptionDescriptor{Kind: kind, Filter: f}
}

func TestPolicySubscriptionRoles(t *testing.T) {
	p := NewPolicy(nil)
	ctx := context.Background()
	entity := descriptor(t, event.EntityEventKind, event.FilterSpec{Realm: "realmA"})
	property := descriptor(t, event.PropertyEventKind, event.FilterSpec{Realm: "realmA"})

	reader := &event.AuthContext{Realm: "realmA", Roles: []string{event.RoleRead}}
	assert.True(t, p.AuthorizeSubscription(ctx, reader, entity))
	assert.True(t, p.AuthorizeSubscription(ctx, reader, property))

	assets := &event.AuthContext{Realm: "realmA", Roles: []string{event.RoleReadAssets}}
	assert.True(t, p.AuthorizeSubscription(ctx, assets, entity))
	assert.False(t, p.AuthorizeSubscription(ctx, assets, property))

	attrs := &event.AuthContext{Realm: "realmA", Roles: []string{event.RoleReadAttributes}}
	assert.False(t, p.AuthorizeSubscription(ctx, attrs, entity))
	assert.True(t, p.AuthorizeSubscription(ctx, attrs, property))

	assert.False(t, p.AuthorizeSubscription(ctx, &event.AuthContext{Realm: "realmA"}, entity))
	assert.False(t, p.AuthorizeSubscription(ctx, nil, entity))
}

func TestPolicySubscriptionRealm(t *testing.T) {
	p := NewPolicy(nil)
	ctx := context.Background()
	other := descriptor(t, event.EntityEventKind, event.FilterSpec{Realm: "realmB"})

	assert.False(t, p.AuthorizeSubscription(ctx, &event.AuthContext{Realm: "realmA", Roles: []string{event.RoleRead}}, other))
	assert.True(t, p.AuthorizeSubscription(ctx, &event.AuthContext{Realm: "master", Superuser: true}, other))
}

func TestPolicyRestrictedSubscription(t *testing.T) {
	p := NewPolicy(nil)
	ctx := context.Background()
	auth := &event.AuthContext{
		Realm:      "realmA",
		Roles:      []string{event.RoleRead},
		Restricted: true,
		EntityIDs:  []string{"ast-1", "ast-2"},
	}

	assert.True(t, p.AuthorizeSubscription(ctx, auth, descriptor(t, event.PropertyEventKind, event.FilterSpec{Realm: "realmA", EntityIDs: []string{"ast-1"}})))
	assert.False(t, p.AuthorizeSubscription(ctx, auth, descriptor(t, event.PropertyEventKind, event.FilterSpec{Realm: "realmA", EntityIDs: []string{"ast-3"}})))
	assert.False(t, p.AuthorizeSubscription(ctx, auth, descriptor(t, event.EntityEventKind, event.FilterSpec{Realm: "realmA"})))
	assert.False(t, p.AuthorizeSubscription(ctx, auth, descriptor(t, event.EntityEventKind, event.FilterSpec{Realm: "realmA", Paths: []string{"ast-1"}})))
}

func TestPolicyWrite(t *testing.T) {
	p := NewPolicy(nil)
	ctx := context.Background()
	cmd := event.WriteCommand{EntityID: "ast-1", PropertyName: "power"}

	writer := &event.AuthContext{Realm: "realmA", Roles: []string{event.RoleWriteAttributes}}
	assert.True(t, p.AuthorizeWrite(ctx, writer, "realmA", cmd))
	assert.False(t, p.AuthorizeWrite(ctx, writer, "realmB", cmd))
	assert.False(t, p.AuthorizeWrite(ctx, &event.AuthContext{Realm: "realmA", Roles: []string{event.RoleRead}}, "realmA", cmd))
	assert.False(t, p.AuthorizeWrite(ctx, nil, "realmA", cmd))

	restricted := &event.AuthContext{Realm: "realmA", Roles: []string{event.RoleWriteAttributes}, Restricted: true, EntityIDs: []string{"ast-2"}}
	assert.False(t, p.AuthorizeWrite(ctx, restricted, "realmA", cmd))
	cmd.EntityID = "ast-2"
	assert.True(t, p.AuthorizeWrite(ctx, restricted, "realmA", cmd))

	assert.True(t, p.AuthorizeWrite(ctx, &event.AuthContext{Superuser: true}, "realmB", cmd))
}
