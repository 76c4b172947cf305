package eventbus

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultChannelPrefix = "assetbridge:events"

type envelope struct {
	Node  string      `json:"node"`
	ID    string      `json:"id"`
	Event event.Event `json:"event"`
}

// RedisRelay shares bus events between nodes over redis pub/sub. Each realm
// has its own channel; a node ignores the envelopes it published itself.
type RedisRelay struct {
	client redis.UniversalClient
	bus    *Bus
	prefix string
	nodeID string
	log    *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

var _ Forwarder = (*RedisRelay)(nil)

func NewRedisRelay(client redis.UniversalClient, bus *Bus, cfg RelayConfig, log *zap.Logger) *RedisRelay {
	if log == nil {
		log = zap.NewNop()
	}
	prefix := strings.TrimSuffix(strings.TrimSpace(cfg.ChannelPrefix), ":")
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	nodeID := uuid.NewString()
	return &RedisRelay{
		client: client,
		bus:    bus,
		prefix: prefix,
		nodeID: nodeID,
		log:    log.Named("relay").With(zap.String("node", nodeID)),
	}
}

func (r *RedisRelay) NodeID() string {
	return r.nodeID
}

func (r *RedisRelay) Channel(realm string) string {
	return r.prefix + ":" + realm
}

func (r *RedisRelay) Forward(ctx context.Context, ev event.Event) error {
	if ev.Realm() == "" {
		return nil
	}
	body, err := json.Marshal(envelope{Node: r.nodeID, ID: uuid.NewString(), Event: ev})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.Channel(ev.Realm()), body).Err()
}

// Start subscribes to every realm channel and attaches the relay to the bus.
func (r *RedisRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub != nil {
		return nil
	}

	pubsub := r.client.PSubscribe(ctx, r.prefix+":*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	r.pubsub = pubsub
	r.done = make(chan struct{})
	go r.loop(pubsub.Channel(), r.done)

	r.bus.SetForwarder(r)
	r.log.Info("event relay started", zap.String("pattern", r.prefix+":*"))
	return nil
}

func (r *RedisRelay) loop(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range ch {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			r.log.Warn("dropping malformed relay message", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		if env.Node == r.nodeID {
			continue
		}
		if want := r.Channel(env.Event.Realm()); want != msg.Channel {
			r.log.Warn("dropping relay message published on foreign realm channel", zap.String("channel", msg.Channel))
			continue
		}
		r.bus.PublishLocal(env.Event)
	}
}

func (r *RedisRelay) Stop(context.Context) error {
	r.mu.Lock()
	pubsub, done := r.pubsub, r.done
	r.pubsub, r.done = nil, nil
	r.mu.Unlock()
	if pubsub == nil {
		return nil
	}

	r.bus.SetForwarder(nil)
	err := pubsub.Close()
	<-done
	return err
}
