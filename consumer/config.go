// Package consumer reads domain events from Redis Streams and applies them
// to the search index through the usecase layer.
package consumer

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default stream keys, one per upstream event family. Each stream gets its
// own worker so a slow reindex never blocks work-item updates.
const (
	StreamWorkItems = "hive:events:work_items"
	StreamUsers     = "hive:events:users"
	StreamReindex   = "hive:events:reindex"

	deadLetterSuffix = ":dlq"
)

// Config holds consumer configuration.
type Config struct {
	// RedisURL is the Redis connection URL.
	RedisURL string
	// GroupName is the consumer group name, shared by all replicas.
	GroupName string
	// ConsumerName is this replica's name within the group.
	ConsumerName string
	// Streams are the stream keys to consume, one worker each.
	Streams []string
	// BatchSize is the number of messages to read at once.
	BatchSize int64
	// BlockTimeout is how long to block waiting for messages.
	BlockTimeout time.Duration
	// ClaimIdleTime is how long a pending message may sit unacknowledged
	// before another consumer claims it.
	ClaimIdleTime time.Duration
	// MaxDeliveries bounds redelivery. A message claimed with this many
	// prior deliveries is moved to the stream's dead-letter stream.
	MaxDeliveries int64
	// Enabled determines if the consumer is active.
	Enabled bool
}

// DefaultConfig returns a default consumer configuration.
func DefaultConfig() Config {
	return Config{
		RedisURL:      "redis://localhost:6379",
		GroupName:     "search-indexer-group",
		ConsumerName:  "search-indexer-" + uuid.NewString(),
		Streams:       []string{StreamWorkItems, StreamUsers, StreamReindex},
		BatchSize:     10,
		BlockTimeout:  5 * time.Second,
		ClaimIdleTime: 30 * time.Second,
		MaxDeliveries: 5,
		Enabled:       true,
	}
}

// ConfigFromEnv loads consumer configuration from environment variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("REDIS_STREAMS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("CONSUMER_GROUP"); v != "" {
		cfg.GroupName = v
	}
	if v := os.Getenv("CONSUMER_NAME"); v != "" {
		cfg.ConsumerName = v
	}
	if v := os.Getenv("CONSUMER_STREAMS"); v != "" {
		streams := make([]string, 0, 3)
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				streams = append(streams, s)
			}
		}
		if len(streams) > 0 {
			cfg.Streams = streams
		}
	}
	if v := os.Getenv("CONSUMER_BATCH_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("CONSUMER_MAX_DELIVERIES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxDeliveries = n
		}
	}
	if v := os.Getenv("CONSUMER_ENABLED"); v != "" {
		cfg.Enabled = v == "true" || v == "1"
	}

	return cfg
}

// DeadLetterStream names the dead-letter stream for a source stream.
func DeadLetterStream(stream string) string {
	return stream + deadLetterSuffix
}
