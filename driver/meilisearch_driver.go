package driver

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"search-indexer/domain"

	"github.com/meilisearch/meilisearch-go"
)

const taskTimeout = 15 * time.Second

// indexSettings are applied to every collection at startup. Searchable
// attribute order is the relevance weighting: title > body > tags.
var indexSettings = meilisearch.Settings{
	SearchableAttributes: []string{"title", "body", "tags"},
	// sort leads so an explicit caller sort overrides relevance ordering.
	RankingRules: []string{"sort", "words", "typo", "proximity", "attribute", "exactness"},
	FilterableAttributes: []string{
		"tenantId", "permissions", "kind",
		"workItemType", "status", "priority", "assignedTo", "tags",
		"createdAt", "updatedAt", "dueDate",
	},
	SortableAttributes: []string{
		"updatedAt", "createdAt", "dueDate", "title", "priority", "status",
	},
}

// MeilisearchDriver wraps the engine client. Every write waits for its task
// so a caller that upserts then queries observes the write.
type MeilisearchDriver struct {
	client  meilisearch.ServiceManager
	indexes map[domain.DocumentKind]meilisearch.IndexManager
}

func NewMeilisearchDriver(client meilisearch.ServiceManager) *MeilisearchDriver {
	indexes := make(map[domain.DocumentKind]meilisearch.IndexManager, len(domain.Kinds()))
	for _, kind := range domain.Kinds() {
		indexes[kind] = client.Index(IndexName(kind))
	}
	return &MeilisearchDriver{client: client, indexes: indexes}
}

// EnsureIndexes creates missing collections and applies index settings.
func (d *MeilisearchDriver) EnsureIndexes(ctx context.Context) error {
	for _, kind := range domain.Kinds() {
		idx := d.indexes[kind]
		if _, err := idx.FetchInfo(); err != nil {
			task, err := d.client.CreateIndex(&meilisearch.IndexConfig{
				Uid:        IndexName(kind),
				PrimaryKey: "id",
			})
			if err != nil {
				return d.wrap("EnsureIndexes", err)
			}
			if _, err := idx.WaitForTask(task.TaskUID, taskTimeout); err != nil {
				return d.wrap("EnsureIndexes", err)
			}
		}

		task, err := idx.UpdateSettings(&indexSettings)
		if err != nil {
			return d.wrap("EnsureIndexes", err)
		}
		if _, err := idx.WaitForTask(task.TaskUID, taskTimeout); err != nil {
			return d.wrap("EnsureIndexes", err)
		}
	}
	return nil
}

// IndexDocuments create-or-replaces documents in one collection and blocks
// until the engine acknowledges them.
func (d *MeilisearchDriver) IndexDocuments(ctx context.Context, kind domain.DocumentKind, docs []SearchDocumentDriver) error {
	if len(docs) == 0 {
		return nil
	}
	idx := d.indexes[kind]
	task, err := idx.AddDocuments(docs, nil)
	if err != nil {
		return d.wrap("IndexDocuments", err)
	}
	if _, err := idx.WaitForTask(task.TaskUID, taskTimeout); err != nil {
		return d.wrap("IndexDocuments", err)
	}
	return nil
}

// UpdateDocumentFields merges named fields into an existing document.
// Returns NotFoundDriverError when the id is not indexed.
func (d *MeilisearchDriver) UpdateDocumentFields(ctx context.Context, kind domain.DocumentKind, id string, delta map[string]any) error {
	idx := d.indexes[kind]

	var existing map[string]any
	if err := idx.GetDocument(id, nil, &existing); err != nil {
		if isEngineNotFound(err) {
			return &NotFoundDriverError{Index: IndexName(kind), ID: id}
		}
		return d.wrap("UpdateDocumentFields", err)
	}

	partial := make(map[string]any, len(delta)+1)
	for k, v := range delta {
		partial[k] = v
	}
	partial["id"] = id

	task, err := idx.UpdateDocuments([]map[string]any{partial}, nil)
	if err != nil {
		return d.wrap("UpdateDocumentFields", err)
	}
	if _, err := idx.WaitForTask(task.TaskUID, taskTimeout); err != nil {
		return d.wrap("UpdateDocumentFields", err)
	}
	return nil
}

// DeleteDocument removes one document. The engine treats deleting an absent
// id as a successful no-op, so deletion is idempotent.
func (d *MeilisearchDriver) DeleteDocument(ctx context.Context, kind domain.DocumentKind, id string) error {
	idx := d.indexes[kind]
	task, err := idx.DeleteDocument(id, nil)
	if err != nil {
		return d.wrap("DeleteDocument", err)
	}
	if _, err := idx.WaitForTask(task.TaskUID, taskTimeout); err != nil {
		return d.wrap("DeleteDocument", err)
	}
	return nil
}

// GetDocument fetches one indexed document.
func (d *MeilisearchDriver) GetDocument(ctx context.Context, kind domain.DocumentKind, id string) (*SearchDocumentDriver, error) {
	var doc SearchDocumentDriver
	if err := d.indexes[kind].GetDocument(id, nil, &doc); err != nil {
		if isEngineNotFound(err) {
			return nil, &NotFoundDriverError{Index: IndexName(kind), ID: id}
		}
		return nil, d.wrap("GetDocument", err)
	}
	return &doc, nil
}

// Search executes a compiled request, merging hits across collections when
// more than one is targeted.
func (d *MeilisearchDriver) Search(ctx context.Context, req domain.SearchRequest) (*SearchResultDriver, error) {
	queries := CompileSearchRequests(req)

	resp, err := d.client.MultiSearch(&meilisearch.MultiSearchRequest{Queries: queries})
	if err != nil {
		return nil, d.wrap("Search", err)
	}

	result := &SearchResultDriver{Facets: make(map[string]map[string]int64)}
	for _, r := range resp.Results {
		result.Total += r.EstimatedTotalHits
		if r.ProcessingTimeMs > result.ProcessingTimeMs {
			result.ProcessingTimeMs = r.ProcessingTimeMs
		}
		mergeFacets(result.Facets, r.FacetDistribution)
		for _, raw := range r.Hits {
			hit, err := parseHit(raw)
			if err != nil {
				continue
			}
			result.Hits = append(result.Hits, hit)
		}
	}

	// Single-collection queries paginate in the engine; cross-collection
	// ones fetch from+size per collection and window here after merging.
	if len(queries) > 1 {
		sort.SliceStable(result.Hits, func(i, j int) bool {
			return result.Hits[i].Score > result.Hits[j].Score
		})
		from := req.Pagination.From
		if from > len(result.Hits) {
			from = len(result.Hits)
		}
		to := from + req.Pagination.Size
		if to > len(result.Hits) {
			to = len(result.Hits)
		}
		result.Hits = result.Hits[from:to]
	}

	return result, nil
}

// SuggestTitles returns tenant-scoped prefix completions over titles.
func (d *MeilisearchDriver) SuggestTitles(ctx context.Context, prefix, tenantID string, limit int) ([]string, error) {
	queries := CompileSuggestRequests(prefix, tenantID, limit)

	resp, err := d.client.MultiSearch(&meilisearch.MultiSearchRequest{Queries: queries})
	if err != nil {
		return nil, d.wrap("SuggestTitles", err)
	}

	type scored struct {
		title string
		score float64
	}
	var all []scored
	seen := make(map[string]struct{})
	for _, r := range resp.Results {
		for _, hit := range r.Hits {
			title := decodeHitString(hit, "title")
			if title == "" {
				continue
			}
			if _, dup := seen[title]; dup {
				continue
			}
			seen[title] = struct{}{}
			all = append(all, scored{title: title, score: decodeHitScore(hit)})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	if len(all) > limit {
		all = all[:limit]
	}

	titles := make([]string, len(all))
	for i, s := range all {
		titles[i] = s.title
	}
	return titles, nil
}

// Stats reports per-collection counts plus engine-level size and health.
// The engine reports storage size at database granularity only.
func (d *MeilisearchDriver) Stats(ctx context.Context) ([]CollectionStatsDriver, error) {
	engineStats, err := d.client.GetStats()
	if err != nil {
		return nil, d.wrap("Stats", err)
	}
	healthy := d.client.IsHealthy()

	out := make([]CollectionStatsDriver, 0, len(domain.Kinds()))
	for _, kind := range domain.Kinds() {
		name := IndexName(kind)
		var count int64
		if s, ok := engineStats.Indexes[name]; ok {
			count = s.NumberOfDocuments
		}
		out = append(out, CollectionStatsDriver{
			Name:          name,
			DocumentCount: count,
			Size:          engineStats.DatabaseSize,
			Healthy:       healthy,
		})
	}
	return out, nil
}

// RegisterSynonyms installs synonym groups on one collection.
func (d *MeilisearchDriver) RegisterSynonyms(ctx context.Context, kind domain.DocumentKind, synonyms map[string][]string) error {
	if len(synonyms) == 0 {
		return nil
	}
	idx := d.indexes[kind]
	task, err := idx.UpdateSynonyms(&synonyms)
	if err != nil {
		return d.wrap("RegisterSynonyms", err)
	}
	if _, err := idx.WaitForTask(task.TaskUID, taskTimeout); err != nil {
		return d.wrap("RegisterSynonyms", err)
	}
	return nil
}

// CollectionStatsDriver mirrors the engine's per-collection stats.
type CollectionStatsDriver struct {
	Name          string
	DocumentCount int64
	Size          int64
	Healthy       bool
}

// parseHit decodes one engine hit, including ranking score and formatted
// snippets. Hits arrive as raw JSON fields keyed by attribute name.
func parseHit(hit meilisearch.Hit) (SearchHitDriver, error) {
	var doc SearchDocumentDriver
	if err := hit.DecodeInto(&doc); err != nil {
		return SearchHitDriver{}, err
	}

	out := SearchHitDriver{Document: doc, Score: decodeHitScore(hit)}
	if raw, ok := hit["_formatted"]; ok {
		var formatted map[string]json.RawMessage
		if err := json.Unmarshal(raw, &formatted); err == nil {
			for _, field := range []string{"title", "body"} {
				var v string
				if fr, ok := formatted[field]; ok && json.Unmarshal(fr, &v) == nil && v != "" {
					if out.Highlights == nil {
						out.Highlights = make(map[string]string)
					}
					out.Highlights[field] = v
				}
			}
		}
	}
	return out, nil
}

func decodeHitString(hit meilisearch.Hit, field string) string {
	raw, ok := hit[field]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

func decodeHitScore(hit meilisearch.Hit) float64 {
	raw, ok := hit["_rankingScore"]
	if !ok {
		return 0
	}
	var score float64
	if err := json.Unmarshal(raw, &score); err != nil {
		return 0
	}
	return score
}

// mergeFacets accumulates one response's facet distribution. The engine
// facets on the document field kind; the public aggregation name is type.
func mergeFacets(into map[string]map[string]int64, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var dist map[string]map[string]int64
	if err := json.Unmarshal(raw, &dist); err != nil {
		return
	}
	for facet, counts := range dist {
		name := facet
		if name == "kind" {
			name = "type"
		}
		if into[name] == nil {
			into[name] = make(map[string]int64)
		}
		for value, n := range counts {
			into[name][value] += n
		}
	}
}

// isEngineNotFound reports whether err is the engine's 404.
func isEngineNotFound(err error) bool {
	var meiliErr *meilisearch.Error
	if errors.As(err, &meiliErr) {
		return meiliErr.StatusCode == 404
	}
	return false
}

// wrap classifies an engine error. Server-side and transport failures are
// retryable; request rejections are not.
func (d *MeilisearchDriver) wrap(op string, err error) error {
	retryable := true
	var meiliErr *meilisearch.Error
	if errors.As(err, &meiliErr) && meiliErr.StatusCode >= 400 && meiliErr.StatusCode < 500 {
		retryable = false
	}
	return &DriverError{Op: op, Err: err.Error(), Retryable: retryable}
}
