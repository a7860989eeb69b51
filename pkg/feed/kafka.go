package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// kafkaTopic maps a feed table to its Kafka topic. All conversations share a
// topic; the filter id rides on the message key.
func kafkaTopic(table string) string {
	return "feed-" + table
}

// kafkaHub is the shared consumer for one channel plus its attached
// subscriptions. The last subscription to detach stops the consumer.
type kafkaHub struct {
	channel  string
	consumer *kafka.Consumer
	cancel   context.CancelFunc
	subs     map[*kafkaSubscription]struct{}
}

// kafkaSubscription is one consumer's handle on a channel.
type kafkaSubscription struct {
	feed    *KafkaFeed
	channel string
	events  chan *Event
	once    sync.Once
}

// Events returns the subscription's event stream. It closes when the
// subscription or the feed is closed.
func (s *kafkaSubscription) Events() <-chan *Event {
	return s.events
}

// Close detaches this subscription only. The underlying consumer keeps
// polling for other subscriptions on the same channel and is closed when the
// last one detaches.
func (s *kafkaSubscription) Close() error {
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
		hub.cancel()
		if err := hub.consumer.Close(); err != nil {
			return fmt.Errorf("failed to close consumer: %w", err)
		}
	}
	return nil
}

// closeEvents closes the event channel exactly once. Caller holds the feed
// mutex, which also serializes against fan-out delivery.
func (s *kafkaSubscription) closeEvents() {
	s.once.Do(func() { close(s.events) })
}

// KafkaFeed implements Feed using Apache Kafka. It exists for deployments
// that already run a broker; the Redis backend is the default.
type KafkaFeed struct {
	producer *kafka.Producer
	hubs     map[string]*kafkaHub
	config   KafkaConfig
	mu       sync.Mutex
	doneCh   chan struct{}
}

// NewKafkaFeed creates a Kafka-backed change feed.
func NewKafkaFeed(cfg KafkaConfig) (*KafkaFeed, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kf := &KafkaFeed{
		producer: p,
		hubs:     make(map[string]*kafkaHub),
		config:   cfg,
		doneCh:   make(chan struct{}),
	}

	go kf.deliveryReportHandler()

	if err := kf.ensureTopics(); err != nil {
		log.Printf("Warning: failed to ensure Kafka topics: %v (may already exist)", err)
	}

	return kf, nil
}

// ensureTopics creates the feed topics if they don't exist.
func (k *KafkaFeed) ensureTopics() error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": k.config.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             kafkaTopic(TableMessages),
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	for _, r := range results {
		if r.Error.Code() != kafka.ErrNoError && r.Error.Code() != kafka.ErrTopicAlreadyExists {
			log.Printf("Warning: failed to create topic %s: %v", r.Topic, r.Error)
		}
	}

	return nil
}

// deliveryReportHandler processes delivery reports from the producer.
func (k *KafkaFeed) deliveryReportHandler() {
	for e := range k.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				log.Printf("Kafka feed delivery failed: %v", ev.TopicPartition.Error)
			}
		}
	}
	close(k.doneCh)
}

// Publish publishes an event to the channel's topic, keyed by the filter id.
func (k *KafkaFeed) Publish(ctx context.Context, channel string, event *Event) error {
	table, filterID, err := parseChannel(channel)
	if err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := kafkaTopic(table)
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(filterID),
		Value: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}

	return nil
}

// Subscribe attaches a new subscription to the channel. The first
// subscription on a channel starts its consumer; later ones share it.
func (k *KafkaFeed) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	table, filterID, err := parseChannel(channel)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	hub, ok := k.hubs[channel]
	if !ok {
		groupID := k.config.GroupID
		if groupID == "" {
			groupID = "feed-default"
		}
		// Unique group per channel so every channel sees every event.
		consumerGroupID := fmt.Sprintf("%s-%s", groupID, sanitizeGroupID(channel))

		c, err := kafka.NewConsumer(&kafka.ConfigMap{
			"bootstrap.servers":       k.config.Brokers,
			"group.id":                consumerGroupID,
			"auto.offset.reset":       "latest",
			"enable.auto.commit":      true,
			"auto.commit.interval.ms": 5000,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
		}

		if err := c.Subscribe(kafkaTopic(table), nil); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to subscribe to topic %s: %w", kafkaTopic(table), err)
		}

		hubCtx, cancel := context.WithCancel(context.Background())
		hub = &kafkaHub{
			channel:  channel,
			consumer: c,
			cancel:   cancel,
			subs:     make(map[*kafkaSubscription]struct{}),
		}
		k.hubs[channel] = hub

		go k.consumeMessages(hubCtx, hub, filterID)
	}

	sub := &kafkaSubscription{
		feed:    k,
		channel: channel,
		events:  make(chan *Event, 100),
	}
	hub.subs[sub] = struct{}{}

	return sub, nil
}

// consumeMessages polls Kafka and fans events matching the filter key out to
// every subscription on the channel.
func (k *KafkaFeed) consumeMessages(ctx context.Context, hub *kafkaHub, filterID string) {
	defer func() {
		k.mu.Lock()
		for sub := range hub.subs {
			sub.closeEvents()
		}
		if current, ok := k.hubs[hub.channel]; ok && current == hub {
			delete(k.hubs, hub.channel)
		}
		k.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := hub.consumer.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if filterID != "" && string(e.Key) != filterID {
				continue
			}

			var event Event
			if err := json.Unmarshal(e.Value, &event); err != nil {
				log.Printf("Kafka feed: failed to unmarshal event: %v", err)
				continue
			}

			k.mu.Lock()
			for sub := range hub.subs {
				select {
				case sub.events <- &event:
				default:
					// Subscriber full, skip message
				}
			}
			k.mu.Unlock()

		case kafka.Error:
			log.Printf("Kafka feed error: %v (code=%d fatal=%v)", e, e.Code(), e.IsFatal())
			if e.IsFatal() {
				return
			}

		default:
			// Ignore other events
		}
	}
}

// Close closes all subscriptions and the producer.
func (k *KafkaFeed) Close() error {
	k.mu.Lock()
	for key, hub := range k.hubs {
		hub.cancel()
		hub.consumer.Close()
		for sub := range hub.subs {
			sub.closeEvents()
		}
		delete(k.hubs, key)
	}
	k.mu.Unlock()

	k.producer.Flush(5000)
	k.producer.Close()
	<-k.doneCh

	return nil
}

// sanitizeGroupID replaces characters not suitable for Kafka group IDs.
var groupIDRegexp = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeGroupID(s string) string {
	return groupIDRegexp.ReplaceAllString(s, "-")
}
