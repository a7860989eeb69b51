package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisFeed implements Feed using Redis pub/sub. One underlying pubsub is
// held per channel and fanned out to every subscription on it, so sessions
// watching the same conversation never share or steal a connection.
type RedisFeed struct {
	client     *redis.Client
	ownsClient bool
	hubs       map[string]*redisHub
	mu         sync.Mutex
}

// redisHub is the shared pubsub for one channel plus its attached
// subscriptions. The last subscription to detach closes the pubsub.
type redisHub struct {
	channel string
	pubsub  *redis.PubSub
	subs    map[*redisSubscription]struct{}
}

// redisSubscription is one consumer's handle on a channel.
type redisSubscription struct {
	feed    *RedisFeed
	channel string
	events  chan *Event
	once    sync.Once
}

// Events returns the subscription's event stream. It closes when the
// subscription or the feed is closed.
func (s *redisSubscription) Events() <-chan *Event {
	return s.events
}

// Close detaches this subscription only. Other subscriptions on the same
// channel keep receiving; the underlying pubsub is closed when the last one
// detaches.
func (s *redisSubscription) Close() error {
	f := s.feed

	f.mu.Lock()
	defer f.mu.Unlock()

	s.closeEvents()

	hub, ok := f.hubs[s.channel]
	if !ok {
		return nil
	}
	delete(hub.subs, s)
	if len(hub.subs) == 0 {
		delete(f.hubs, s.channel)
		return hub.pubsub.Close()
	}
	return nil
}

// closeEvents closes the event channel exactly once. Caller holds the feed
// mutex, which also serializes against fan-out delivery.
func (s *redisSubscription) closeEvents() {
	s.once.Do(func() { close(s.events) })
}

// NewRedisFeed creates a Redis-backed change feed.
func NewRedisFeed(cfg RedisConfig) (*RedisFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisFeed{
		client:     client,
		ownsClient: true,
		hubs:       make(map[string]*redisHub),
	}, nil
}

// NewRedisFeedFromClient wraps an existing client, sharing its connection pool.
func NewRedisFeedFromClient(client *redis.Client) *RedisFeed {
	return &RedisFeed{
		client: client,
		hubs:   make(map[string]*redisHub),
	}
}

// Publish publishes an event to the specified channel.
func (r *RedisFeed) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe attaches a new subscription to the channel, creating the
// underlying pubsub on first use.
func (r *RedisFeed) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hub, ok := r.hubs[channel]
	if !ok {
		hub = &redisHub{
			channel: channel,
			pubsub:  r.client.Subscribe(ctx, channel),
			subs:    make(map[*redisSubscription]struct{}),
		}
		r.hubs[channel] = hub
		go r.fanOut(hub)
	}

	sub := &redisSubscription{
		feed:    r,
		channel: channel,
		events:  make(chan *Event, 100),
	}
	hub.subs[sub] = struct{}{}

	return sub, nil
}

// Close closes all subscriptions. The underlying client is left open when the
// feed was built from a shared client.
func (r *RedisFeed) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, hub := range r.hubs {
		hub.pubsub.Close()
		for sub := range hub.subs {
			sub.closeEvents()
		}
	}
	r.hubs = make(map[string]*redisHub)

	if r.ownsClient {
		return r.client.Close()
	}
	return nil
}

// fanOut reads the channel's pubsub and delivers each event to every
// attached subscription. It exits when the pubsub is closed, closing any
// event channels still attached.
func (r *RedisFeed) fanOut(hub *redisHub) {
	for msg := range hub.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			continue
		}

		r.mu.Lock()
		for sub := range hub.subs {
			select {
			case sub.events <- &event:
			default:
				// Subscriber full, skip message
			}
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	for sub := range hub.subs {
		sub.closeEvents()
	}
	if current, ok := r.hubs[hub.channel]; ok && current == hub {
		delete(r.hubs, hub.channel)
	}
	r.mu.Unlock()
}
