package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeBus struct {
	mu        sync.Mutex
	subs      map[string]event.Subscription
	cancelled []string
	commands  []event.WriteCommand
	headers   []event.Headers
	lifecycle []event.Headers
	err       error
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: map[string]event.Subscription{}}
}

func (b *fakeBus) RegisterSubscription(sub event.Subscription, headers event.Headers) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.subs[sub.ID] = sub
	b.headers = append(b.headers, headers)
	return nil
}

func (b *fakeBus) CancelSubscription(_ event.EventKind, id string, _ event.Headers) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
	b.cancelled = append(b.cancelled, id)
	return nil
}

func (b *fakeBus) SendWriteCommand(_ context.Context, cmd event.WriteCommand, headers event.Headers) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.commands = append(b.commands, cmd)
	b.headers = append(b.headers, headers)
	return nil
}

func (b *fakeBus) NotifyLifecycle(headers event.Headers) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lifecycle = append(b.lifecycle, headers)
	return b.err
}

func (b *fakeBus) subscription(id string) (event.Subscription, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	return sub, ok
}

type published struct {
	topic   string
	payload string
	qos     byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, payload []byte, _ bool, qos byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, payload: string(payload), qos: qos})
	return nil
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

type policyFunc func(auth *event.AuthContext, sub event.SubscriptionDescriptor) bool

func (f policyFunc) AuthorizeSubscription(_ context.Context, auth *event.AuthContext, sub event.SubscriptionDescriptor) bool {
	return f(auth, sub)
}

func allowAll() event.SubscriptionPolicy {
	return policyFunc(func(*event.AuthContext, event.SubscriptionDescriptor) bool { return true })
}

type fixture struct {
	handler *Handler
	bus     *fakeBus
	pub     *fakePublisher
	logs    *observer.ObservedLogs
	reader  *sdkmetric.ManualReader
}

func newFixture(t *testing.T, policy event.SubscriptionPolicy) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	reader := sdkmetric.NewManualReader()
	metrics, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	f := &fixture{bus: newFakeBus(), pub: &fakePublisher{}, logs: logs, reader: reader}
	f.handler = NewHandler(HandlerParams{
		Bus:       f.bus,
		Publisher: f.pub,
		Policy:    policy,
		Metrics:   metrics,
		Logger:    zap.New(core),
	})
	return f
}

// counter sums the data points of an int64 counter that carry attribute
// value attr, or all of them when attr is empty.
func (f *fixture) counter(t *testing.T, name, attr string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, name)
			for _, dp := range sum.DataPoints {
				if attr == "" {
					total += dp.Value
					continue
				}
				for _, kv := range dp.Attributes.ToSlice() {
					if kv.Value.AsString() == attr {
						total += dp.Value
					}
				}
			}
		}
	}
	return total
}

func userConn(roles ...string) Connection {
	return Connection{
		ClientID: "c1",
		Realm:    "realmA",
		Auth:     &event.AuthContext{Realm: "realmA", Username: "alice", Roles: roles},
	}
}

var errBusDown = errors.New("bus down")
