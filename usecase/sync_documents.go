package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"search-indexer/domain"
	"search-indexer/logger"
	"search-indexer/port"
	"search-indexer/tokenize"
	"search-indexer/utils/otel"

	"github.com/cenkalti/backoff/v5"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

const defaultWriteRetries = 3

// SyncDocumentsUsecase applies one domain event to the index. Every
// operation is idempotent and stale writes are rejected, so at-least-once,
// possibly reordered delivery from the broker is safe.
type SyncDocumentsUsecase struct {
	searchEngine port.SearchEngine
	tokenizer    *tokenizer.Tokenizer
	maxRetries   int
}

func NewSyncDocumentsUsecase(searchEngine port.SearchEngine, tok *tokenizer.Tokenizer) *SyncDocumentsUsecase {
	return &SyncDocumentsUsecase{
		searchEngine: searchEngine,
		tokenizer:    tok,
		maxRetries:   defaultWriteRetries,
	}
}

// Apply dispatches one validated event to the matching index operation.
// A nil return means the event's effect is durably in the index (or was
// deliberately skipped as stale); any error means the caller must not
// acknowledge the message.
func (u *SyncDocumentsUsecase) Apply(ctx context.Context, event domain.DomainEvent) error {
	switch event.Kind() {
	case domain.EventWorkItemCreated, domain.EventWorkItemUpdated:
		var snapshot domain.WorkItemSnapshot
		if err := json.Unmarshal(event.Payload, &snapshot); err != nil {
			return &domain.PoisonMessageError{RoutingKey: event.RoutingKey, Reason: err.Error()}
		}
		return u.upsert(ctx, domain.NewWorkItemDocument(snapshot), event.OccurredAt)

	case domain.EventUserCreated, domain.EventUserUpdated:
		var snapshot domain.UserSnapshot
		if err := json.Unmarshal(event.Payload, &snapshot); err != nil {
			return &domain.PoisonMessageError{RoutingKey: event.RoutingKey, Reason: err.Error()}
		}
		return u.upsert(ctx, domain.NewUserDocument(snapshot), event.OccurredAt)

	case domain.EventWorkItemDeleted:
		var payload domain.WorkItemDeleted
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return &domain.PoisonMessageError{RoutingKey: event.RoutingKey, Reason: err.Error()}
		}
		return u.delete(ctx, domain.KindWorkItem, payload.WorkItemID)

	case domain.EventUserDeleted:
		var payload domain.UserDeleted
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return &domain.PoisonMessageError{RoutingKey: event.RoutingKey, Reason: err.Error()}
		}
		return u.delete(ctx, domain.KindUser, payload.UserID)

	case domain.EventWorkItemStatusChanged:
		var payload domain.WorkItemStatusChanged
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return &domain.PoisonMessageError{RoutingKey: event.RoutingKey, Reason: err.Error()}
		}
		return u.updateStatus(ctx, payload, event.OccurredAt)
	}

	return &domain.PoisonMessageError{RoutingKey: event.RoutingKey, Reason: "no index operation for routing key"}
}

// upsert replaces the document unless the index already holds a newer
// version of it. The stale check reads the current document first; per-queue
// single-threaded processing makes read-compare-write safe for one id.
func (u *SyncDocumentsUsecase) upsert(ctx context.Context, doc domain.SearchDocument, occurredAt time.Time) error {
	writeTime := doc.UpdatedAt
	if writeTime.IsZero() {
		writeTime = occurredAt
		doc.UpdatedAt = occurredAt
	}

	current, err := u.currentDocument(ctx, doc.Kind, doc.ID)
	if err != nil {
		return err
	}
	if current != nil {
		if current.TenantID != doc.TenantID {
			// tenantId is immutable; a mismatched snapshot is never applied.
			logger.Logger.Error("rejecting cross-tenant overwrite",
				"kind", doc.Kind, "id", doc.ID,
				"indexed_tenant", current.TenantID, "event_tenant", doc.TenantID,
			)
			return &domain.PoisonMessageError{RoutingKey: string(doc.Kind), Reason: "tenant mismatch for document " + doc.ID}
		}
		if current.UpdatedAt.After(writeTime) {
			logger.Logger.Info("skipping stale upsert",
				"kind", doc.Kind, "id", doc.ID,
				"indexed_at", current.UpdatedAt, "event_at", writeTime,
			)
			return nil
		}
	}

	if err := u.withRetry(ctx, func() error {
		return u.searchEngine.Upsert(ctx, doc)
	}); err != nil {
		return err
	}
	if otel.Metrics != nil {
		otel.Metrics.IndexedTotal.Add(ctx, 1)
	}

	u.registerTagSynonyms(ctx, doc)
	return nil
}

func (u *SyncDocumentsUsecase) delete(ctx context.Context, kind domain.DocumentKind, id string) error {
	if err := u.withRetry(ctx, func() error {
		return u.searchEngine.Delete(ctx, kind, id)
	}); err != nil {
		return err
	}
	if otel.Metrics != nil {
		otel.Metrics.DeletedTotal.Add(ctx, 1)
	}
	return nil
}

// updateStatus merges only the status field, stamping updatedAt with the
// event's own timestamp. Stale events are no-ops.
func (u *SyncDocumentsUsecase) updateStatus(ctx context.Context, payload domain.WorkItemStatusChanged, occurredAt time.Time) error {
	current, err := u.currentDocument(ctx, domain.KindWorkItem, payload.WorkItemID)
	if err != nil {
		return err
	}
	if current == nil {
		return &domain.NotFoundError{Collection: string(domain.KindWorkItem), ID: payload.WorkItemID}
	}
	if current.UpdatedAt.After(occurredAt) {
		logger.Logger.Info("skipping stale status change",
			"id", payload.WorkItemID,
			"indexed_at", current.UpdatedAt, "event_at", occurredAt,
		)
		return nil
	}

	delta := map[string]any{
		"status":    payload.NewStatus,
		"updatedAt": occurredAt.UnixMilli(),
	}
	return u.withRetry(ctx, func() error {
		return u.searchEngine.PartialUpdate(ctx, domain.KindWorkItem, payload.WorkItemID, delta)
	})
}

// currentDocument reads the indexed version of a document, mapping absence
// to nil rather than an error.
func (u *SyncDocumentsUsecase) currentDocument(ctx context.Context, kind domain.DocumentKind, id string) (*domain.SearchDocument, error) {
	doc, err := u.searchEngine.GetDocument(ctx, kind, id)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// withRetry retries transient engine failures a bounded number of times with
// exponential backoff. Terminal failures surface immediately.
func (u *SyncDocumentsUsecase) withRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	var err error
	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !domain.IsRetryable(err) {
			return err
		}
		if attempt == u.maxRetries {
			break
		}
		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// registerTagSynonyms installs segmentation synonyms for CJK tags.
// Best-effort: a failure degrades search quality, not correctness.
func (u *SyncDocumentsUsecase) registerTagSynonyms(ctx context.Context, doc domain.SearchDocument) {
	synonyms := tokenize.SynonymsForTags(u.tokenizer, doc.Tags)
	if len(synonyms) == 0 {
		return
	}
	if err := u.searchEngine.RegisterSynonyms(ctx, doc.Kind, synonyms); err != nil {
		logger.Logger.Warn("synonym registration failed", "kind", doc.Kind, "id", doc.ID, "err", err)
	}
}
