package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/topic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanSubscribeAnonymousRejected(t *testing.T) {
	f := newFixture(t, allowAll())
	conn := Connection{ClientID: "c1", Realm: "realmA"}

	assert.False(t, f.handler.CanSubscribe(context.Background(), conn, "realmA/c1/entity/#"))
	assert.Equal(t, 1, f.logs.FilterMessage("anonymous subscribe not supported").Len())
	assert.EqualValues(t, 1, f.counter(t, "assetbridge.subscriptions.rejected", ReasonAnonymous))
}

func TestCanSubscribeGrammarRejected(t *testing.T) {
	called := false
	f := newFixture(t, policyFunc(func(*event.AuthContext, event.SubscriptionDescriptor) bool {
		called = true
		return true
	}))

	assert.False(t, f.handler.CanSubscribe(context.Background(), userConn(), "realmA/c1/entity/bad$id"))
	assert.False(t, f.handler.CanSubscribe(context.Background(), userConn(), "realmA/c1/writeproperty"))
	assert.False(t, called)
	assert.EqualValues(t, 2, f.counter(t, "assetbridge.subscriptions.rejected", ReasonGrammar))
}

func TestCanSubscribePassesFilterToPolicy(t *testing.T) {
	var got event.SubscriptionDescriptor
	f := newFixture(t, policyFunc(func(_ *event.AuthContext, sub event.SubscriptionDescriptor) bool {
		got = sub
		return true
	}))

	require.True(t, f.handler.CanSubscribe(context.Background(), userConn(), "realmA/c1/property/power/ast-1/#"))
	assert.Equal(t, event.PropertyEventKind, got.Kind)
	assert.Equal(t, "realmA", got.Filter.Realm())
	assert.Equal(t, []string{"ast-1"}, got.Filter.Paths())
	assert.Equal(t, []string{"power"}, got.Filter.PropertyNames())
}

func TestCanSubscribePolicyDenied(t *testing.T) {
	f := newFixture(t, policyFunc(func(*event.AuthContext, event.SubscriptionDescriptor) bool { return false }))

	assert.False(t, f.handler.CanSubscribe(context.Background(), userConn(), "realmA/c1/entity/#"))
	assert.Equal(t, 1, f.logs.FilterMessage("subscription was not authorised for this user and topic").Len())
	assert.EqualValues(t, 1, f.counter(t, "assetbridge.subscriptions.rejected", ReasonAuthorization))
}

func TestCanSubscribeWithoutPolicyFailsClosed(t *testing.T) {
	f := newFixture(t, nil)
	assert.False(t, f.handler.CanSubscribe(context.Background(), userConn(), "realmA/c1/entity/#"))
}

func TestCanPublish(t *testing.T) {
	f := newFixture(t, allowAll())
	ctx := context.Background()

	assert.True(t, f.handler.CanPublish(ctx, userConn(), "realmA/c1/writepropertyvalue/power/ast-1"))
	assert.True(t, f.handler.CanPublish(ctx, userConn(), "realmA/c1/writeproperty"))
	assert.False(t, f.handler.CanPublish(ctx, userConn(), "realmA/c1/writepropertyvalue/+/ast-1"))
	assert.False(t, f.handler.CanPublish(ctx, Connection{ClientID: "c1", Realm: "realmA"}, "realmA/c1/writeproperty"))
	assert.EqualValues(t, 1, f.counter(t, "assetbridge.publishes.dropped", ReasonGrammar))
	assert.EqualValues(t, 1, f.counter(t, "assetbridge.publishes.dropped", ReasonAnonymous))
}

func TestCanPublishRefusesReadTopics(t *testing.T) {
	f := newFixture(t, allowAll())
	ctx := context.Background()

	assert.False(t, f.handler.CanPublish(ctx, userConn(), "realmA/c1/property/power/ast-1"))
	assert.False(t, f.handler.CanPublish(ctx, userConn(), "realmA/c1/entity/ast-1"))
	assert.False(t, f.handler.CanPublish(ctx, userConn(), "realmA/c1/anything/else"))
	assert.EqualValues(t, 3, f.counter(t, "assetbridge.publishes.dropped", ReasonUnsupported))
}

func TestSubscribeRegistersAndDelivers(t *testing.T) {
	f := newFixture(t, allowAll())
	conn := userConn()
	filter := "realmA/c1/property/+/#"

	require.NoError(t, f.handler.Subscribe(context.Background(), conn, filter, 1))
	sub, ok := f.bus.subscription(filter)
	require.True(t, ok)
	assert.Equal(t, event.PropertyEventKind, sub.Kind)
	assert.Equal(t, "c1", f.bus.headers[0].SessionKey)
	assert.Equal(t, event.ConnectionTypeMQTT, f.bus.headers[0].ConnectionType)
	assert.Same(t, conn.Auth, f.bus.headers[0].Auth)

	sub.Deliver(event.NewPropertyEvent(&event.PropertyEvent{
		EntityID: "ast-9",
		Realm:    "realmA",
		Name:     "power",
		Value:    json.RawMessage(`42`),
	}))

	msgs := f.pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "realmA/c1/property/power/ast-9", msgs[0].topic)
	assert.Equal(t, byte(1), msgs[0].qos)
	assert.JSONEq(t, `{"entityId":"ast-9","realm":"realmA","name":"power","value":42}`, msgs[0].payload)
	assert.EqualValues(t, 1, f.counter(t, "assetbridge.deliveries", ""))
	assert.EqualValues(t, 1, f.counter(t, "assetbridge.subscriptions.accepted", "property"))
}

func TestSubscribeValueDeliveryPayload(t *testing.T) {
	f := newFixture(t, allowAll())
	filter := "realmA/c1/propertyvalue/+/ast-9"
	require.NoError(t, f.handler.Subscribe(context.Background(), userConn(), filter, 0))
	sub, _ := f.bus.subscription(filter)

	sub.Deliver(event.NewPropertyEvent(&event.PropertyEvent{EntityID: "ast-9", Name: "temp", Value: json.RawMessage(`{"c":21.5}`)}))
	sub.Deliver(event.NewPropertyEvent(&event.PropertyEvent{EntityID: "ast-9", Name: "temp"}))

	msgs := f.pub.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, "realmA/c1/propertyvalue/temp/ast-9", msgs[0].topic)
	assert.Equal(t, `{"c":21.5}`, msgs[0].payload)
	assert.Equal(t, "null", msgs[1].payload)
}

func TestDeliveryIgnoresMismatchedKind(t *testing.T) {
	f := newFixture(t, allowAll())
	filter := "realmA/c1/entity/#"
	require.NoError(t, f.handler.Subscribe(context.Background(), userConn(), filter, 0))
	sub, _ := f.bus.subscription(filter)

	sub.Deliver(event.NewPropertyEvent(&event.PropertyEvent{EntityID: "ast-1", Name: "power"}))
	assert.Empty(t, f.pub.all())
}

func TestDeliveryPublishFailureLogged(t *testing.T) {
	f := newFixture(t, allowAll())
	f.pub.err = errBusDown
	filter := "realmA/c1/entity/+"
	require.NoError(t, f.handler.Subscribe(context.Background(), userConn(), filter, 0))
	sub, _ := f.bus.subscription(filter)

	sub.Deliver(event.NewEntityEvent(&event.EntityEvent{EntityID: "ast-1", Realm: "realmA", Cause: event.CauseCreate}))
	assert.Equal(t, 1, f.logs.FilterMessage("failed to publish event").Len())
	assert.EqualValues(t, 0, f.counter(t, "assetbridge.deliveries", ""))
}

func TestSubscribeBusError(t *testing.T) {
	f := newFixture(t, allowAll())
	f.bus.err = errBusDown
	assert.ErrorIs(t, f.handler.Subscribe(context.Background(), userConn(), "realmA/c1/entity/#", 0), errBusDown)
}

func TestSubscribeUnsupportedTopic(t *testing.T) {
	f := newFixture(t, allowAll())
	assert.ErrorIs(t, f.handler.Subscribe(context.Background(), userConn(), "realmA/c1/writeproperty", 0), ErrFilterUnsupported)
}

func TestUnsubscribeCancelsByFilter(t *testing.T) {
	f := newFixture(t, allowAll())
	filter := "realmA/c1/entity/ast-1/+"
	require.NoError(t, f.handler.Subscribe(context.Background(), userConn(), filter, 0))
	require.NoError(t, f.handler.Unsubscribe(context.Background(), userConn(), filter))

	_, ok := f.bus.subscription(filter)
	assert.False(t, ok)
	assert.Equal(t, []string{filter}, f.bus.cancelled)
}

func TestPublishForwardsValueWrite(t *testing.T) {
	f := newFixture(t, allowAll())
	f.handler.Publish(context.Background(), userConn(), "realmA/c1/writepropertyvalue/power/ast-1", []byte(` 17 `))

	require.Len(t, f.bus.commands, 1)
	cmd := f.bus.commands[0]
	assert.Equal(t, "ast-1", cmd.EntityID)
	assert.Equal(t, "power", cmd.PropertyName)
	assert.Equal(t, json.RawMessage(`17`), cmd.Value)
	assert.EqualValues(t, 1, f.counter(t, "assetbridge.publishes.forwarded", ""))
}

func TestPublishDropsUndecodablePayload(t *testing.T) {
	f := newFixture(t, allowAll())
	f.handler.Publish(context.Background(), userConn(), "realmA/c1/writeproperty", []byte(`{not json`))

	assert.Empty(t, f.bus.commands)
	assert.Equal(t, 1, f.logs.FilterMessage("failed to parse payload for publish topic").Len())
	assert.EqualValues(t, 1, f.counter(t, "assetbridge.publishes.dropped", ReasonDecode))
}

func TestPublishBusFailureDropped(t *testing.T) {
	f := newFixture(t, allowAll())
	f.bus.err = errBusDown
	f.handler.Publish(context.Background(), userConn(), "realmA/c1/writepropertyvalue/power/ast-1", []byte(`1`))
	assert.EqualValues(t, 1, f.counter(t, "assetbridge.publishes.dropped", ReasonBus))
}

func TestLifecycleNotifications(t *testing.T) {
	f := newFixture(t, allowAll())
	disconnected := ""
	conn := userConn()
	conn.Disconnect = func(reason string) error {
		disconnected = reason
		return nil
	}

	f.handler.Connected(conn)
	f.handler.Disconnected(conn)
	f.handler.ConnectionLost(conn)

	require.Len(t, f.bus.lifecycle, 3)
	assert.Equal(t, event.LifecycleOpen, f.bus.lifecycle[0].Lifecycle)
	assert.Equal(t, event.LifecycleClose, f.bus.lifecycle[1].Lifecycle)
	assert.Equal(t, event.LifecycleCloseError, f.bus.lifecycle[2].Lifecycle)
	require.NotNil(t, f.bus.lifecycle[0].Disconnect)
	assert.Nil(t, f.bus.lifecycle[1].Disconnect)
	assert.Nil(t, f.bus.lifecycle[2].Disconnect)

	require.NoError(t, f.bus.lifecycle[0].Disconnect("kicked"))
	assert.Equal(t, "kicked", disconnected)
}

func TestRenderEntityTopic(t *testing.T) {
	tmpl := topic.NewTemplate(topic.Parse("realmA/c1/entity/root/+"))
	name, payload, err := Render(tmpl, event.NewEntityEvent(&event.EntityEvent{
		Cause:    event.CauseUpdate,
		EntityID: "child-1",
		Realm:    "realmA",
		ParentID: "root",
	}))
	require.NoError(t, err)
	assert.Equal(t, "realmA/c1/entity/root/child-1", name)
	assert.JSONEq(t, `{"cause":"UPDATE","entityId":"child-1","realm":"realmA","parentId":"root","timestamp":0}`, string(payload))

	_, _, err = Render(tmpl, event.Event{})
	assert.ErrorIs(t, err, ErrEventKindMismatch)
}
