package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bronystylecrazy/assetbridge/event"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelayNode(t *testing.T, addr string) (*Bus, *RedisRelay, *recorder) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	bus := NewBus(BusParams{})
	relay := NewRedisRelay(client, bus, RelayConfig{Enabled: true, ChannelPrefix: "test:events:"}, nil)
	require.NoError(t, relay.Start(context.Background()))
	t.Cleanup(func() { _ = relay.Stop(context.Background()) })

	rec := &recorder{}
	filter, err := event.NewAssetFilter(event.FilterSpec{Realm: "realmA"})
	require.NoError(t, err)
	require.NoError(t, bus.RegisterSubscription(event.Subscription{
		ID:      "realmA/c1/property/+/#",
		Kind:    event.PropertyEventKind,
		Filter:  filter,
		Deliver: rec.deliver,
	}, headers("c1")))
	return bus, relay, rec
}

func TestRedisRelayRoundTrip(t *testing.T) {
	server := miniredis.RunT(t)
	busA, relayA, recA := newRelayNode(t, server.Addr())
	_, relayB, recB := newRelayNode(t, server.Addr())
	assert.NotEqual(t, relayA.NodeID(), relayB.NodeID())
	assert.Equal(t, "test:events:realmA", relayA.Channel("realmA"))

	busA.Publish(context.Background(), propertyEvent("ast-1", "power", `{"kw":3}`))

	require.Eventually(t, func() bool { return len(recB.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	p, ok := recB.all()[0].Property()
	require.True(t, ok)
	assert.Equal(t, "ast-1", p.EntityID)
	assert.JSONEq(t, `{"kw":3}`, string(p.Value))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, recA.all(), 1)
}

func TestRedisRelayDropsMalformedMessages(t *testing.T) {
	server := miniredis.RunT(t)
	_, relay, rec := newRelayNode(t, server.Addr())

	server.Publish(relay.Channel("realmA"), "not json")
	server.Publish(relay.Channel("realmB"), `{"node":"other","id":"1","event":{"kind":"property","property":{"entityId":"a","realm":"realmA","name":"n","value":1}}}`)
	server.Publish(relay.Channel("realmA"), `{"node":"other","id":"2","event":{"kind":"property","property":{"entityId":"a","realm":"realmA","name":"n","value":2}}}`)

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	p, _ := rec.all()[0].Property()
	assert.JSONEq(t, `2`, string(p.Value))
}

func TestRedisRelayStopDetaches(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	bus := NewBus(BusParams{})
	relay := NewRedisRelay(client, bus, RelayConfig{}, nil)
	assert.Equal(t, defaultChannelPrefix+":realmA", relay.Channel("realmA"))
	require.NoError(t, relay.Start(context.Background()))
	require.NoError(t, relay.Start(context.Background()))
	require.NoError(t, relay.Stop(context.Background()))
	require.NoError(t, relay.Stop(context.Background()))

	bus.mu.RLock()
	defer bus.mu.RUnlock()
	assert.Nil(t, bus.forwarder)
}

func TestNewRedisClientInMemory(t *testing.T) {
	client, err := NewRedisClient(RedisConfig{InMemory: true})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := client.Get(context.Background(), "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
