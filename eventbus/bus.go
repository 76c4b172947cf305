// Package eventbus is the in-process, realm scoped event bus the MQTT bridge
// subscribes to and sends write commands through. A RedisRelay can fan
// events out to other nodes.
package eventbus

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bronystylecrazy/assetbridge/event"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Forwarder receives every event published on the bus so it can be shared
// with other nodes.
type Forwarder interface {
	Forward(ctx context.Context, ev event.Event) error
}

type session struct {
	headers event.Headers
	subs    map[string]event.Subscription
}

type Stats struct {
	Sessions      int    `json:"sessions"`
	Subscriptions int    `json:"subscriptions"`
	Entities      int    `json:"entities"`
	Published     uint64 `json:"published"`
	Delivered     uint64 `json:"delivered"`
	Writes        uint64 `json:"writes"`
	WritesDenied  uint64 `json:"writes_denied"`
}

type Bus struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	forwarder Forwarder
	closed    bool

	entities *hierarchy
	writes   event.WritePolicy
	now      func() time.Time
	log      *zap.Logger

	published    atomic.Uint64
	delivered    atomic.Uint64
	writeCount   atomic.Uint64
	writesDenied atomic.Uint64
}

var _ event.Bus = (*Bus)(nil)

type BusParams struct {
	fx.In
	WritePolicy event.WritePolicy `optional:"true"`
	Logger      *zap.Logger       `optional:"true"`
}

func NewBus(p BusParams) *Bus {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		sessions: map[string]*session{},
		entities: newHierarchy(),
		writes:   p.WritePolicy,
		now:      time.Now,
		log:      log.Named("eventbus"),
	}
}

// SetForwarder installs f as the receiver of every event published with
// Publish. A nil f detaches the current forwarder.
func (b *Bus) SetForwarder(f Forwarder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarder = f
}

func (b *Bus) sessionLocked(headers event.Headers) *session {
	s, ok := b.sessions[headers.SessionKey]
	if !ok {
		s = &session{headers: headers, subs: map[string]event.Subscription{}}
		b.sessions[headers.SessionKey] = s
	}
	return s
}

// RegisterSubscription adds sub for the session in headers. A subscription
// with the same id replaces the previous one.
func (b *Bus) RegisterSubscription(sub event.Subscription, headers event.Headers) error {
	if sub.Deliver == nil {
		return fmt.Errorf("eventbus: subscription %q has no delivery function", sub.ID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.sessionLocked(headers).subs[sub.ID] = sub
	return nil
}

func (b *Bus) CancelSubscription(kind event.EventKind, id string, headers event.Headers) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	s, ok := b.sessions[headers.SessionKey]
	if !ok {
		return nil
	}
	if sub, ok := s.subs[id]; ok && sub.Kind == kind {
		delete(s.subs, id)
	}
	return nil
}

// CancelSession drops every subscription held by sessionKey.
func (b *Bus) CancelSession(sessionKey string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionKey]
	if !ok {
		return 0
	}
	delete(b.sessions, sessionKey)
	return len(s.subs)
}

func (b *Bus) SendWriteCommand(ctx context.Context, cmd event.WriteCommand, headers event.Headers) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cmd.EntityID == "" || cmd.PropertyName == "" {
		return ErrInvalidCommand
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if headers.Auth == nil || b.writes == nil || !b.writes.AuthorizeWrite(ctx, headers.Auth, headers.Realm, cmd) {
		b.writesDenied.Add(1)
		return fmt.Errorf("%w: %s/%s", ErrWriteDenied, cmd.EntityID, cmd.PropertyName)
	}

	b.writeCount.Add(1)
	ev := cmd.ToEvent(headers.Realm, headers.SessionKey, b.now())
	b.Publish(ctx, event.NewPropertyEvent(ev))
	return nil
}

// NotifyLifecycle tracks session open and close transitions. Closing a
// session, or opening it with a clean start, drops its subscriptions.
func (b *Bus) NotifyLifecycle(headers event.Headers) error {
	switch headers.Lifecycle {
	case event.LifecycleOpen:
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed {
			return ErrClosed
		}
		s := b.sessionLocked(headers)
		s.headers = headers
		dropped := 0
		if headers.CleanStart {
			dropped = len(s.subs)
			s.subs = map[string]event.Subscription{}
		}
		b.log.Debug("session opened",
			zap.String("session", headers.SessionKey),
			zap.String("realm", headers.Realm),
			zap.Bool("clean_start", headers.CleanStart),
			zap.Int("dropped_subscriptions", dropped))
	case event.LifecycleClose, event.LifecycleCloseError:
		n := b.CancelSession(headers.SessionKey)
		b.log.Debug("session closed",
			zap.String("session", headers.SessionKey),
			zap.Stringer("lifecycle", headers.Lifecycle),
			zap.Int("subscriptions", n))
	}
	return nil
}

// Disconnect forces sessionKey off its transport with the handle it
// registered when it opened.
func (b *Bus) Disconnect(sessionKey, reason string) error {
	b.mu.RLock()
	s, ok := b.sessions[sessionKey]
	var fn event.DisconnectFunc
	if ok {
		fn = s.headers.Disconnect
	}
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionKey)
	}
	if fn == nil {
		return ErrNoDisconnect
	}
	return fn(reason)
}

// Publish delivers ev to every matching local subscription and hands it to
// the forwarder.
func (b *Bus) Publish(ctx context.Context, ev event.Event) {
	b.mu.RLock()
	fwd := b.forwarder
	b.mu.RUnlock()

	b.PublishLocal(ev)
	if fwd == nil {
		return
	}
	if err := fwd.Forward(ctx, ev); err != nil {
		b.log.Warn("failed to forward event", zap.Error(err), zap.String("entity_id", ev.EntityID()))
	}
}

// PublishLocal delivers ev to local subscriptions only.
func (b *Bus) PublishLocal(ev event.Event) {
	switch ev.Kind() {
	case event.EntityEventKind:
		e, ok := ev.Entity()
		if !ok {
			return
		}
		b.entities.observe(e)
	case event.PropertyEventKind:
		p, ok := ev.Property()
		if !ok {
			return
		}
		if enriched, ok := b.entities.enrich(p); ok {
			ev = event.NewPropertyEvent(enriched)
		}
	default:
		return
	}
	b.published.Add(1)

	for _, deliver := range b.matching(ev) {
		b.deliver(deliver, ev)
	}
}

func (b *Bus) matching(ev event.Event) []event.DeliveryFunc {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	var out []event.DeliveryFunc
	for _, s := range b.sessions {
		for _, sub := range s.subs {
			if sub.Kind == ev.Kind() && sub.Filter.Matches(ev) {
				out = append(out, sub.Deliver)
			}
		}
	}
	return out
}

func (b *Bus) deliver(fn event.DeliveryFunc, ev event.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error("panic in event delivery", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
		}
	}()
	fn(ev)
	b.delivered.Add(1)
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	st := Stats{Sessions: len(b.sessions)}
	for _, s := range b.sessions {
		st.Subscriptions += len(s.subs)
	}
	b.mu.RUnlock()

	st.Entities = b.entities.len()
	st.Published = b.published.Load()
	st.Delivered = b.delivered.Load()
	st.Writes = b.writeCount.Load()
	st.WritesDenied = b.writesDenied.Load()
	return st
}

// Close drops every session. Later calls fail with ErrClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.sessions = map[string]*session{}
	b.forwarder = nil
	return nil
}
