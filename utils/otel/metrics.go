package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all OTel metric instruments for search-indexer.
var Metrics *SearchIndexerMetrics

// SearchIndexerMetrics contains all metric instruments.
type SearchIndexerMetrics struct {
	EventsConsumedTotal metric.Int64Counter
	IndexedTotal        metric.Int64Counter
	DeletedTotal        metric.Int64Counter
	DeadLetteredTotal   metric.Int64Counter
	PoisonTotal         metric.Int64Counter
	ErrorsTotal         metric.Int64Counter
	SyncDuration        metric.Float64Histogram
	SearchDuration      metric.Float64Histogram
}

// InitMetrics initializes all metric instruments.
func InitMetrics() error {
	meter := otel.Meter("search-indexer")

	eventsConsumed, err := meter.Int64Counter("search_indexer_events_consumed_total",
		metric.WithDescription("Total number of events consumed from the broker"),
	)
	if err != nil {
		return err
	}

	indexedTotal, err := meter.Int64Counter("search_indexer_indexed_total",
		metric.WithDescription("Total number of documents indexed"),
	)
	if err != nil {
		return err
	}

	deletedTotal, err := meter.Int64Counter("search_indexer_deleted_total",
		metric.WithDescription("Total number of documents deleted from the index"),
	)
	if err != nil {
		return err
	}

	deadLetteredTotal, err := meter.Int64Counter("search_indexer_dead_lettered_total",
		metric.WithDescription("Total number of messages moved to a dead-letter stream"),
	)
	if err != nil {
		return err
	}

	poisonTotal, err := meter.Int64Counter("search_indexer_poison_total",
		metric.WithDescription("Total number of malformed messages dropped at the boundary"),
	)
	if err != nil {
		return err
	}

	errorsTotal, err := meter.Int64Counter("search_indexer_errors_total",
		metric.WithDescription("Total number of errors"),
	)
	if err != nil {
		return err
	}

	syncDuration, err := meter.Float64Histogram("search_indexer_sync_duration_seconds",
		metric.WithDescription("Event processing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	searchDuration, err := meter.Float64Histogram("search_indexer_search_duration_seconds",
		metric.WithDescription("Search request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	Metrics = &SearchIndexerMetrics{
		EventsConsumedTotal: eventsConsumed,
		IndexedTotal:        indexedTotal,
		DeletedTotal:        deletedTotal,
		DeadLetteredTotal:   deadLetteredTotal,
		PoisonTotal:         poisonTotal,
		ErrorsTotal:         errorsTotal,
		SyncDuration:        syncDuration,
		SearchDuration:      searchDuration,
	}

	return nil
}
