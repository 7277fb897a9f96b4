package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"search-indexer/utils/otel"
)

// Event represents one domain event as read from a stream.
type Event struct {
	// MessageID is the Redis Stream message ID.
	MessageID string
	// Stream is the stream key the message was read from.
	Stream string
	// EventID is the unique event identifier.
	EventID string
	// RoutingKey is the dot-delimited event name, e.g. work_item.updated.
	RoutingKey string
	// Source is the service that produced the event.
	Source string
	// TenantID scopes the event to one tenant when present.
	TenantID string
	// OccurredAt is the event's own timestamp, not the delivery time.
	OccurredAt time.Time
	// Payload is the event-specific JSON body.
	Payload json.RawMessage
}

// EventHandler processes events from the streams.
//
// A nil return means the event's effect is durable (or the message was
// deliberately dropped as poison) and the consumer acknowledges it. An error
// return leaves the message pending for redelivery.
type EventHandler interface {
	HandleEvent(ctx context.Context, event Event) error
}

// Consumer consumes events from Redis Streams, one worker per stream.
// Messages are acknowledged only after the handler succeeds; a crash between
// processing and acknowledgment causes redelivery, which the handler side
// absorbs through idempotent index operations.
type Consumer struct {
	client       *redis.Client
	config       Config
	handler      EventHandler
	logger       *slog.Logger
	wg           sync.WaitGroup
	shutdownChan chan struct{}
	stopOnce     sync.Once
}

// NewConsumer creates a new Redis Streams consumer.
func NewConsumer(config Config, handler EventHandler, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !config.Enabled {
		return &Consumer{config: config, logger: logger}, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		client:       redis.NewClient(opts),
		config:       config,
		handler:      handler,
		logger:       logger,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start creates the consumer groups and launches one worker per stream.
func (c *Consumer) Start(ctx context.Context) error {
	if !c.config.Enabled {
		c.logger.Info("consumer disabled, not starting")
		return nil
	}

	for _, stream := range c.config.Streams {
		if err := c.ensureConsumerGroup(ctx, stream); err != nil {
			return err
		}
	}

	c.logger.Info("starting consumer",
		"streams", c.config.Streams,
		"group", c.config.GroupName,
		"consumer", c.config.ConsumerName,
	)

	for _, stream := range c.config.Streams {
		c.wg.Add(1)
		go c.consumeStream(ctx, stream)
	}
	return nil
}

// Stop drains the workers and closes the connection. In-flight messages
// finish processing before the workers exit.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		if c.shutdownChan != nil {
			close(c.shutdownChan)
		}
		c.wg.Wait()
		if c.client != nil {
			c.client.Close()
		}
	})
}

// IsEnabled returns true if the consumer is enabled.
func (c *Consumer) IsEnabled() bool {
	return c.config.Enabled
}

// ensureConsumerGroup creates the consumer group if it doesn't exist.
func (c *Consumer) ensureConsumerGroup(ctx context.Context, stream string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, c.config.GroupName, "0").Err()
	if err != nil {
		// Ignore BUSYGROUP, it means the group already exists
		if err.Error() == "BUSYGROUP Consumer Group name already exists" {
			return nil
		}
		return err
	}
	return nil
}

// consumeStream is the per-stream worker loop. Each stream has exactly one
// worker in this replica, so messages for one document id are processed
// serially and read-compare-write against the index is safe.
func (c *Consumer) consumeStream(ctx context.Context, stream string) {
	defer c.wg.Done()

	reclaimTicker := time.NewTicker(c.config.ClaimIdleTime)
	defer reclaimTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer context cancelled, stopping", "stream", stream)
			return
		case <-c.shutdownChan:
			c.logger.Info("consumer shutdown requested, stopping", "stream", stream)
			return
		case <-reclaimTicker.C:
			if err := c.reclaimPending(ctx, stream); err != nil {
				c.logger.Error("error reclaiming pending messages", "stream", stream, "error", err)
			}
		default:
			if err := c.readAndProcess(ctx, stream); err != nil {
				c.logger.Error("error processing events", "stream", stream, "error", err)
				select {
				case <-time.After(time.Second):
				case <-c.shutdownChan:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// readAndProcess reads a batch of new messages and processes them in order.
func (c *Consumer) readAndProcess(ctx context.Context, stream string) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.GroupName,
		Consumer: c.config.ConsumerName,
		Streams:  []string{stream, ">"},
		Count:    c.config.BatchSize,
		Block:    c.config.BlockTimeout,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	for _, s := range streams {
		for _, message := range s.Messages {
			c.processMessage(ctx, stream, message)
		}
	}
	return nil
}

// processMessage runs the handler and acknowledges only on success. A failed
// message stays pending until reclaimPending redelivers or dead-letters it.
func (c *Consumer) processMessage(ctx context.Context, stream string, message redis.XMessage) {
	event := c.parseEvent(stream, message)

	if otel.Metrics != nil {
		otel.Metrics.EventsConsumedTotal.Add(ctx, 1)
	}

	if err := c.handler.HandleEvent(ctx, event); err != nil {
		c.logger.Error("failed to process event",
			"stream", stream,
			"message_id", message.ID,
			"routing_key", event.RoutingKey,
			"error", err,
		)
		if otel.Metrics != nil {
			otel.Metrics.ErrorsTotal.Add(ctx, 1)
		}
		return
	}

	if err := c.client.XAck(ctx, stream, c.config.GroupName, message.ID).Err(); err != nil {
		c.logger.Error("failed to acknowledge message",
			"stream", stream,
			"message_id", message.ID,
			"error", err,
		)
	}
}

// reclaimPending claims messages left pending past ClaimIdleTime, either
// redelivering them through the handler or, once MaxDeliveries is exhausted,
// moving them to the stream's dead-letter stream.
func (c *Consumer) reclaimPending(ctx context.Context, stream string) error {
	messages, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    c.config.GroupName,
		Consumer: c.config.ConsumerName,
		MinIdle:  c.config.ClaimIdleTime,
		Start:    "0-0",
		Count:    c.config.BatchSize,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	deliveries, err := c.deliveryCounts(ctx, stream, messages)
	if err != nil {
		return err
	}

	for _, message := range messages {
		if deliveries[message.ID] > c.config.MaxDeliveries {
			c.deadLetter(ctx, stream, message, deliveries[message.ID])
			continue
		}
		c.processMessage(ctx, stream, message)
	}
	return nil
}

// deliveryCounts looks up how many times each claimed message has been
// delivered, via the pending entries list.
func (c *Consumer) deliveryCounts(ctx context.Context, stream string, messages []redis.XMessage) (map[string]int64, error) {
	first, last := messages[0].ID, messages[len(messages)-1].ID
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  c.config.GroupName,
		Start:  first,
		End:    last,
		Count:  int64(len(messages)),
	}).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(pending))
	for _, p := range pending {
		counts[p.ID] = p.RetryCount
	}
	return counts, nil
}

// deadLetter copies the message to <stream>:dlq with failure context, then
// acknowledges the original so it stops being redelivered.
func (c *Consumer) deadLetter(ctx context.Context, stream string, message redis.XMessage, deliveries int64) {
	values := make(map[string]any, len(message.Values)+3)
	for k, v := range message.Values {
		values[k] = v
	}
	values["original_stream"] = stream
	values["original_message_id"] = message.ID
	values["deliveries"] = deliveries

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStream(stream),
		Values: values,
	}).Err(); err != nil {
		// Leave the message pending so the next reclaim retries the move.
		c.logger.Error("failed to dead-letter message",
			"stream", stream,
			"message_id", message.ID,
			"error", err,
		)
		return
	}

	c.logger.Error("message exceeded max deliveries, dead-lettered",
		"stream", stream,
		"message_id", message.ID,
		"deliveries", deliveries,
	)
	if otel.Metrics != nil {
		otel.Metrics.DeadLetteredTotal.Add(ctx, 1)
	}

	if err := c.client.XAck(ctx, stream, c.config.GroupName, message.ID).Err(); err != nil {
		c.logger.Error("failed to acknowledge dead-lettered message",
			"stream", stream,
			"message_id", message.ID,
			"error", err,
		)
	}
}

// parseEvent converts a Redis Stream message to an Event.
func (c *Consumer) parseEvent(stream string, message redis.XMessage) Event {
	event := Event{
		MessageID: message.ID,
		Stream:    stream,
	}

	if v, ok := message.Values["event_id"].(string); ok {
		event.EventID = v
	}
	if v, ok := message.Values["routing_key"].(string); ok {
		event.RoutingKey = v
	}
	if v, ok := message.Values["source"].(string); ok {
		event.Source = v
	}
	if v, ok := message.Values["tenant_id"].(string); ok {
		event.TenantID = v
	}
	if v, ok := message.Values["occurred_at"].(string); ok {
		event.OccurredAt, _ = time.Parse(time.RFC3339, v)
	}
	if v, ok := message.Values["payload"].(string); ok {
		event.Payload = json.RawMessage(v)
	}

	return event
}
