package driver

import (
	"search-indexer/domain"

	"github.com/meilisearch/meilisearch-go"
)

const (
	highlightPreTag  = "<em>"
	highlightPostTag = "</em>"
)

// facetFields are requested as facet distributions on every query so one
// round trip is enough to render facet widgets.
var facetFields = []string{"kind", "status", "priority"}

// IndexName maps a document kind to its engine collection.
func IndexName(kind domain.DocumentKind) string {
	switch kind {
	case domain.KindWorkItem:
		return "work_items"
	case domain.KindUser:
		return "users"
	case domain.KindTemplate:
		return "templates"
	}
	return string(kind)
}

// IndexNames lists every collection this service owns.
func IndexNames() []string {
	names := make([]string, 0, len(domain.Kinds()))
	for _, k := range domain.Kinds() {
		names = append(names, IndexName(k))
	}
	return names
}

// CompileSearchRequests turns a validated, normalized search request into
// one engine query per target collection. The tenant clause is always the
// first filter; documents outside the caller's tenant can never match.
//
// When more than one collection is searched, each per-collection query
// fetches from+size hits from offset zero; the driver merges by score and
// applies the window afterwards, since the engine cannot paginate across
// collections.
func CompileSearchRequests(req domain.SearchRequest) []*meilisearch.SearchRequest {
	kinds := req.TargetKinds()
	filter := CompileFilter(req)
	sort := CompileSort(req.Sort)

	limit := int64(req.Pagination.From + req.Pagination.Size)
	offset := int64(0)
	if len(kinds) == 1 {
		limit = int64(req.Pagination.Size)
		offset = int64(req.Pagination.From)
	}

	queries := make([]*meilisearch.SearchRequest, 0, len(kinds))
	for _, kind := range kinds {
		queries = append(queries, &meilisearch.SearchRequest{
			IndexUID:              IndexName(kind),
			Query:                 req.Query,
			Filter:                filter,
			Sort:                  sort,
			Limit:                 limit,
			Offset:                offset,
			Facets:                facetFields,
			AttributesToHighlight: []string{"title", "body"},
			HighlightPreTag:       highlightPreTag,
			HighlightPostTag:      highlightPostTag,
			ShowRankingScore:      true,
		})
	}
	return queries
}

// CompileFilter builds the engine filter expression: mandatory tenant and
// permission scoping, then every present facet as an any-of constraint,
// then the optional date range. Facets that name fields a collection does
// not carry simply match nothing there, which is the intended semantics.
func CompileFilter(req domain.SearchRequest) string {
	clauses := []string{
		TenantFilter(req.TenantID),
		inClause("permissions", req.PermissionTokens()),
		inClause("workItemType", req.Filters.WorkItemType),
		inClause("status", req.Filters.Status),
		inClause("priority", req.Filters.Priority),
		inClause("assignedTo", req.Filters.AssignedTo),
	}
	for _, tag := range req.Filters.Tags {
		clauses = append(clauses, eqClause("tags", tag))
	}
	if dr := req.Filters.DateRange; dr != nil {
		var from, to *int64
		if dr.From != nil {
			v := dr.From.UnixMilli()
			from = &v
		}
		if dr.To != nil {
			v := dr.To.UnixMilli()
			to = &v
		}
		clauses = append(clauses, rangeClauses(dr.Field, from, to)...)
	}
	return andJoin(clauses)
}

// CompileSort renders the caller's sort spec for the engine. The default is
// relevance first, then most recently updated.
func CompileSort(sort []domain.SortField) []string {
	if len(sort) == 0 {
		return []string{"updatedAt:desc"}
	}
	out := make([]string, len(sort))
	for i, s := range sort {
		out[i] = s.Field + ":" + string(s.Direction)
	}
	return out
}

// CompileSuggestRequests builds the tenant-scoped prefix completion queries.
func CompileSuggestRequests(prefix, tenantID string, limit int) []*meilisearch.SearchRequest {
	queries := make([]*meilisearch.SearchRequest, 0, len(domain.Kinds()))
	for _, kind := range domain.Kinds() {
		queries = append(queries, &meilisearch.SearchRequest{
			IndexUID:             IndexName(kind),
			Query:                prefix,
			Filter:               TenantFilter(tenantID),
			Limit:                int64(limit),
			AttributesToRetrieve: []string{"title"},
			ShowRankingScore:     true,
		})
	}
	return queries
}
