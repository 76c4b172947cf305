package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bronystylecrazy/assetbridge/bridge"
	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/eventbus"
	"github.com/bronystylecrazy/assetbridge/security"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	topic   string
	payload string
	qos     byte
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []publishedMessage
}

func (p *capturePublisher) Publish(topic string, payload []byte, _ bool, qos byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, publishedMessage{topic: topic, payload: string(payload), qos: qos})
	return nil
}

func (p *capturePublisher) all() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.msgs...)
}

type recordingDisconnector struct {
	clientID string
	reason   string
}

func (d *recordingDisconnector) DisconnectClient(_ context.Context, clientID, reason string) error {
	d.clientID, d.reason = clientID, reason
	return nil
}

type hookFixture struct {
	hook   *Hook
	bus    *eventbus.Bus
	pub    *capturePublisher
	store  *ConnectionStore
	authn  *security.Authenticator
	kicker *recordingDisconnector
}

func newHookFixture(t *testing.T) *hookFixture {
	t.Helper()
	authn, err := security.NewAuthenticator(security.Config{Secret: "hook-secret"})
	require.NoError(t, err)

	policy := security.NewPolicy(nil)
	f := &hookFixture{
		bus:    eventbus.NewBus(eventbus.BusParams{WritePolicy: policy}),
		pub:    &capturePublisher{},
		store:  NewConnectionStore(),
		authn:  authn,
		kicker: &recordingDisconnector{},
	}
	handler := bridge.NewHandler(bridge.HandlerParams{Bus: f.bus, Publisher: f.pub, Policy: policy})
	f.hook = NewHook(HookParams{
		Handler:       handler,
		Authenticator: authn,
		Store:         f.store,
		Disconnector:  f.kicker,
	})
	return f
}

func (f *hookFixture) token(t *testing.T, roles ...string) []byte {
	t.Helper()
	tok, _, err := f.authn.Issue(event.AuthContext{Realm: "realmA", Username: "alice", Roles: roles}, time.Minute)
	require.NoError(t, err)
	return []byte(tok)
}

func connectPacket(username string, password []byte) packets.Packet {
	return packets.Packet{Connect: packets.ConnectParams{
		Username:     []byte(username),
		UsernameFlag: true,
		Password:     password,
		PasswordFlag: len(password) > 0,
	}}
}

func (f *hookFixture) connect(t *testing.T, clientID string, roles ...string) *mqtt.Client {
	t.Helper()
	cl := &mqtt.Client{ID: clientID}
	require.True(t, f.hook.OnConnectAuthenticate(cl, connectPacket("realmA:alice", f.token(t, roles...))))
	f.hook.OnSessionEstablished(cl, packets.Packet{})
	return cl
}

func subscribePacket(filters ...string) packets.Packet {
	pk := packets.Packet{}
	for _, filter := range filters {
		pk.Filters = append(pk.Filters, packets.Subscription{Filter: filter})
	}
	return pk
}

func TestHookProvides(t *testing.T) {
	f := newHookFixture(t)
	assert.Equal(t, HookID, f.hook.ID())
	assert.True(t, f.hook.Provides(mqtt.OnACLCheck))
	assert.True(t, f.hook.Provides(mqtt.OnConnectAuthenticate))
	assert.True(t, f.hook.Provides(mqtt.OnPublish))
	assert.False(t, f.hook.Provides(mqtt.OnPacketRead))
}

func TestHookAuthenticate(t *testing.T) {
	f := newHookFixture(t)

	anon := &mqtt.Client{ID: "anon"}
	require.True(t, f.hook.OnConnectAuthenticate(anon, connectPacket("realmA", nil)))
	conn, ok := f.store.Get("anon")
	require.True(t, ok)
	assert.True(t, conn.Anonymous())
	assert.Equal(t, "realmA", conn.Realm)

	assert.False(t, f.hook.OnConnectAuthenticate(&mqtt.Client{ID: "bad"}, connectPacket("realmA:alice", []byte("garbage"))))
	assert.False(t, f.hook.OnConnectAuthenticate(&mqtt.Client{ID: "other"}, connectPacket("realmB:alice", f.token(t))))
	assert.False(t, f.hook.OnConnectAuthenticate(&mqtt.Client{ID: "norealm"}, connectPacket("", nil)))
	_, ok = f.store.Get("bad")
	assert.False(t, ok)
}

func TestHookACLScopesTopics(t *testing.T) {
	f := newHookFixture(t)
	cl := f.connect(t, "c1", event.RoleRead, event.RoleWriteAttributes)

	assert.True(t, f.hook.OnACLCheck(cl, "realmA/c1/entity/#", false))
	assert.False(t, f.hook.OnACLCheck(cl, "realmB/c1/entity/#", false))
	assert.False(t, f.hook.OnACLCheck(cl, "realmA/c2/entity/#", false))
	assert.False(t, f.hook.OnACLCheck(cl, "realmA/c1/entity/bad$id", false))

	assert.True(t, f.hook.OnACLCheck(cl, "realmA/c1/writepropertyvalue/power/ast-1", true))
	assert.False(t, f.hook.OnACLCheck(cl, "realmA/c1/writepropertyvalue/power", true))
	assert.False(t, f.hook.OnACLCheck(cl, "realmA/c1/entity/ast-1", true))

	assert.False(t, f.hook.OnACLCheck(&mqtt.Client{ID: "unknown"}, "realmA/unknown/entity/#", false))

	inline := &mqtt.Client{ID: "inline"}
	inline.Net.Inline = true
	assert.True(t, f.hook.OnACLCheck(inline, "anything/at/all", true))
}

func TestHookACLRejectsAnonymous(t *testing.T) {
	f := newHookFixture(t)
	cl := &mqtt.Client{ID: "anon"}
	require.True(t, f.hook.OnConnectAuthenticate(cl, connectPacket("realmA", nil)))

	assert.False(t, f.hook.OnACLCheck(cl, "realmA/anon/entity/#", false))
	assert.False(t, f.hook.OnACLCheck(cl, "realmA/anon/writeproperty", true))
}

func TestHookSubscribeDeliverAndWrite(t *testing.T) {
	f := newHookFixture(t)
	cl := f.connect(t, "c1", event.RoleRead, event.RoleWriteAttributes)

	f.hook.OnSubscribed(cl, subscribePacket(
		"realmA/c1/propertyvalue/power/ast-1",
		"realmA/c1/entity/other-realm-refused",
	), []byte{1, packets.ErrNotAuthorized.Code})
	assert.Equal(t, 1, f.bus.Stats().Subscriptions)

	_, err := f.hook.OnPublish(cl, packets.Packet{
		TopicName: "realmA/c1/writepropertyvalue/power/ast-1",
		Payload:   []byte(`42`),
	})
	require.NoError(t, err)

	msgs := f.pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "realmA/c1/propertyvalue/power/ast-1", msgs[0].topic)
	assert.Equal(t, "42", msgs[0].payload)
	assert.Equal(t, byte(1), msgs[0].qos)

	f.hook.OnUnsubscribed(cl, subscribePacket("realmA/c1/propertyvalue/power/ast-1"))
	assert.Equal(t, 0, f.bus.Stats().Subscriptions)
}

func TestHookWriteWithoutRoleDropped(t *testing.T) {
	f := newHookFixture(t)
	cl := f.connect(t, "c1", event.RoleRead)
	f.hook.OnSubscribed(cl, subscribePacket("realmA/c1/propertyvalue/+/#"), []byte{0})

	_, err := f.hook.OnPublish(cl, packets.Packet{TopicName: "realmA/c1/writepropertyvalue/power/ast-1", Payload: []byte(`1`)})
	require.NoError(t, err)
	assert.Empty(t, f.pub.all())
	assert.EqualValues(t, 1, f.bus.Stats().WritesDenied)
}

func TestHookInlinePublishIgnored(t *testing.T) {
	f := newHookFixture(t)
	inline := &mqtt.Client{ID: "inline"}
	inline.Net.Inline = true

	pk := packets.Packet{TopicName: "realmA/inline/writepropertyvalue/power/ast-1", Payload: []byte(`1`)}
	out, err := f.hook.OnPublish(inline, pk)
	require.NoError(t, err)
	assert.Equal(t, pk.TopicName, out.TopicName)
	assert.EqualValues(t, 0, f.bus.Stats().Writes)
}

func TestHookLifecycle(t *testing.T) {
	f := newHookFixture(t)
	cl := f.connect(t, "c1", event.RoleRead)
	f.hook.OnSubscribed(cl, subscribePacket("realmA/c1/entity/#"), []byte{0})
	assert.Equal(t, 1, f.bus.Stats().Sessions)

	require.NoError(t, f.bus.Disconnect("c1", "admin request"))
	assert.Equal(t, "c1", f.kicker.clientID)
	assert.Equal(t, "admin request", f.kicker.reason)

	f.hook.OnDisconnect(cl, errors.New("read: connection reset"), false)
	assert.Equal(t, 0, f.bus.Stats().Sessions)
	assert.Equal(t, 0, f.store.Len())
}

func TestHookSessionTakeover(t *testing.T) {
	f := newHookFixture(t)
	old := f.connect(t, "c1", event.RoleRead)
	f.hook.OnSubscribed(old, subscribePacket("realmA/c1/entity/#"), []byte{0})

	replacement := f.connect(t, "c1", event.RoleRead)
	f.hook.OnDisconnect(old, packets.ErrSessionTakenOver, false)

	_, ok := f.store.Get("c1")
	assert.True(t, ok)
	assert.Equal(t, 1, f.bus.Stats().Subscriptions)

	f.hook.OnDisconnect(replacement, nil, false)
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.bus.Stats().Subscriptions)
}

func TestHookCleanSessionTakeoverDropsOldSubscriptions(t *testing.T) {
	f := newHookFixture(t)
	old := f.connect(t, "c1", event.RoleRead)
	f.hook.OnSubscribed(old, subscribePacket("realmA/c1/entity/#"), []byte{0})
	require.Equal(t, 1, f.bus.Stats().Subscriptions)

	replacement := &mqtt.Client{ID: "c1"}
	pk := connectPacket("realmA:alice", f.token(t, event.RoleRead))
	pk.Connect.Clean = true
	require.True(t, f.hook.OnConnectAuthenticate(replacement, pk))
	f.hook.OnSessionEstablished(replacement, pk)
	f.hook.OnDisconnect(old, packets.ErrSessionTakenOver, false)

	assert.Equal(t, 0, f.bus.Stats().Subscriptions)
	f.bus.Publish(context.Background(), event.NewEntityEvent(&event.EntityEvent{EntityID: "ast-1", Realm: "realmA"}))
	assert.Empty(t, f.pub.all())

	_, ok := f.store.Get("c1")
	assert.True(t, ok)
}

func TestCleanDisconnect(t *testing.T) {
	assert.True(t, cleanDisconnect(nil))
	assert.True(t, cleanDisconnect(packets.CodeDisconnect))
	assert.False(t, cleanDisconnect(errors.New("eof")))
	assert.False(t, cleanDisconnect(packets.ErrKeepAliveTimeout))
}
