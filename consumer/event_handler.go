package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"search-indexer/domain"
	"search-indexer/usecase"
	"search-indexer/utils/otel"
)

// SyncEventHandler validates incoming events and dispatches them to the
// synchronizer or the bulk reindexer. Malformed messages are dropped here,
// at the boundary, so they never poison the pipeline behind it.
type SyncEventHandler struct {
	syncUsecase    *usecase.SyncDocumentsUsecase
	reindexUsecase *usecase.ReindexUsecase
	logger         *slog.Logger
}

// NewSyncEventHandler creates a new SyncEventHandler.
func NewSyncEventHandler(syncUsecase *usecase.SyncDocumentsUsecase, reindexUsecase *usecase.ReindexUsecase, logger *slog.Logger) *SyncEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncEventHandler{
		syncUsecase:    syncUsecase,
		reindexUsecase: reindexUsecase,
		logger:         logger,
	}
}

// HandleEvent processes a single event. A nil return tells the consumer to
// acknowledge the message; that covers both success and deliberate drops of
// poison messages. Transient failures return an error so the message stays
// pending and is redelivered.
func (h *SyncEventHandler) HandleEvent(ctx context.Context, event Event) error {
	start := time.Now()

	domainEvent := domain.DomainEvent{
		EventID:    event.EventID,
		RoutingKey: event.RoutingKey,
		Source:     event.Source,
		TenantID:   event.TenantID,
		OccurredAt: event.OccurredAt,
		Payload:    event.Payload,
	}

	if err := domain.ValidateEvent(domainEvent); err != nil {
		h.dropPoison(ctx, event, err)
		return nil
	}

	var err error
	switch domainEvent.Kind() {
	case domain.EventReindexAll, domain.EventReindexTenant, domain.EventReindexType:
		err = h.handleReindex(ctx, domainEvent)
	default:
		err = h.syncUsecase.Apply(ctx, domainEvent)
	}

	if err != nil {
		var poison *domain.PoisonMessageError
		if errors.As(err, &poison) {
			// Validation passed but the payload still cannot be applied,
			// e.g. a cross-tenant overwrite. Retrying cannot fix it.
			h.dropPoison(ctx, event, err)
			return nil
		}
		return err
	}

	if otel.Metrics != nil {
		otel.Metrics.SyncDuration.Record(ctx, time.Since(start).Seconds())
	}
	return nil
}

func (h *SyncEventHandler) handleReindex(ctx context.Context, event domain.DomainEvent) error {
	var scope domain.ReindexScope
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &scope); err != nil {
			return &domain.PoisonMessageError{RoutingKey: event.RoutingKey, Reason: err.Error()}
		}
	}
	if event.Kind() == domain.EventReindexAll {
		scope = domain.ReindexScope{}
	}

	result, err := h.reindexUsecase.Execute(ctx, scope)
	if err != nil {
		return err
	}

	h.logger.Info("reindex completed",
		"event_id", event.EventID,
		"tenant_id", scope.TenantID,
		"kind", scope.Kind,
		"indexed", result.Indexed,
	)
	return nil
}

func (h *SyncEventHandler) dropPoison(ctx context.Context, event Event, err error) {
	h.logger.Error("dropping poison message",
		"stream", event.Stream,
		"message_id", event.MessageID,
		"event_id", event.EventID,
		"routing_key", event.RoutingKey,
		"error", err,
	)
	if otel.Metrics != nil {
		otel.Metrics.PoisonTotal.Add(ctx, 1)
	}
}
