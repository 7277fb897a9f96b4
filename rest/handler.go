// Package rest exposes the query surface: search, suggestions and index
// statistics. Identity is read from the verified request context, never from
// the request body.
package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"search-indexer/domain"
	"search-indexer/internal/auth/middleware"
	"search-indexer/logger"
	"search-indexer/usecase"
	"search-indexer/utils/otel"
)

// Handler contains all HTTP handlers for the search indexer
type Handler struct {
	searchUsecase  *usecase.SearchDocumentsUsecase
	suggestUsecase *usecase.SuggestUsecase
	statsUsecase   *usecase.StatsUsecase
}

// NewHandler creates a new Handler
func NewHandler(searchUsecase *usecase.SearchDocumentsUsecase, suggestUsecase *usecase.SuggestUsecase, statsUsecase *usecase.StatsUsecase) *Handler {
	return &Handler{
		searchUsecase:  searchUsecase,
		suggestUsecase: suggestUsecase,
		statsUsecase:   statsUsecase,
	}
}

type SearchRequestBody struct {
	Query      string       `json:"query"`
	Filters    *FiltersBody `json:"filters"`
	Sort       []SortBody   `json:"sort"`
	Pagination *PageBody    `json:"pagination"`
}

type FiltersBody struct {
	Type         []string       `json:"type"`
	WorkItemType []string       `json:"workItemType"`
	Status       []string       `json:"status"`
	Priority     []string       `json:"priority"`
	AssignedTo   []string       `json:"assignedTo"`
	Tags         []string       `json:"tags"`
	DateRange    *DateRangeBody `json:"dateRange"`
}

type DateRangeBody struct {
	Field string     `json:"field"`
	From  *time.Time `json:"from"`
	To    *time.Time `json:"to"`
}

type SortBody struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

type PageBody struct {
	From int `json:"from"`
	Size int `json:"size"`
}

type SearchHit struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Title      string            `json:"title"`
	Body       string            `json:"body,omitempty"`
	Tags       []string          `json:"tags"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
	CreatedBy  string            `json:"createdBy,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`

	WorkItemType string     `json:"workItemType,omitempty"`
	Status       string     `json:"status,omitempty"`
	Priority     string     `json:"priority,omitempty"`
	AssignedTo   string     `json:"assignedTo,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
}

type SearchResponse struct {
	Documents       []SearchHit                 `json:"documents"`
	Total           int64                       `json:"total"`
	Aggregations    map[string]map[string]int64 `json:"aggregations,omitempty"`
	ExecutionTimeMs int64                       `json:"executionTimeMs"`
}

type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

type CollectionStatsBody struct {
	Name          string `json:"name"`
	DocumentCount int64  `json:"documentCount"`
	Size          int64  `json:"size"`
	Healthy       bool   `json:"healthy"`
}

type StatsResponse struct {
	Collections []CollectionStatsBody `json:"collections"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Search handles POST /v1/search.
func (h *Handler) Search(c echo.Context) error {
	user := middleware.UserFromContext(c.Request().Context())
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}

	var body SearchRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
	}

	req := toDomainRequest(body, user.TenantID.String(), user.UserID.String(), user.Role)

	start := time.Now()
	result, err := h.searchUsecase.Execute(c.Request().Context(), req)
	if err != nil {
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: validation.Reason, Field: validation.Field})
		}
		// Engine details stay in the logs; callers get a generic failure.
		logger.Logger.Error("search failed", "tenant_id", user.TenantID, "err", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "search failed"})
	}

	if otel.Metrics != nil {
		otel.Metrics.SearchDuration.Record(c.Request().Context(), time.Since(start).Seconds())
	}

	logger.Logger.Info("search ok",
		"tenant_id", user.TenantID,
		"query", req.Query,
		"total", result.Total,
		"returned", len(result.Documents),
	)
	return c.JSON(http.StatusOK, toSearchResponse(result))
}

// Suggest handles GET /v1/suggest.
func (h *Handler) Suggest(c echo.Context) error {
	user := middleware.UserFromContext(c.Request().Context())
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}

	prefix := c.QueryParam("q")
	suggestions := h.suggestUsecase.Execute(c.Request().Context(), prefix, user.TenantID.String())
	return c.JSON(http.StatusOK, SuggestResponse{Suggestions: suggestions})
}

// Stats handles GET /v1/stats.
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.statsUsecase.Execute(c.Request().Context())
	if err != nil {
		logger.Logger.Error("stats failed", "err", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "stats unavailable"})
	}

	collections := make([]CollectionStatsBody, len(stats))
	for i, s := range stats {
		collections[i] = CollectionStatsBody{
			Name:          s.Name,
			DocumentCount: s.DocumentCount,
			Size:          s.Size,
			Healthy:       s.Healthy,
		}
	}
	return c.JSON(http.StatusOK, StatsResponse{Collections: collections})
}

func toDomainRequest(body SearchRequestBody, tenantID, userID, role string) domain.SearchRequest {
	req := domain.SearchRequest{
		Query:    body.Query,
		TenantID: tenantID,
		UserID:   userID,
		UserRole: role,
	}

	if body.Filters != nil {
		kinds := make([]domain.DocumentKind, len(body.Filters.Type))
		for i, t := range body.Filters.Type {
			kinds[i] = domain.DocumentKind(t)
		}
		req.Filters = domain.SearchFilters{
			Type:         kinds,
			WorkItemType: body.Filters.WorkItemType,
			Status:       body.Filters.Status,
			Priority:     body.Filters.Priority,
			AssignedTo:   body.Filters.AssignedTo,
			Tags:         body.Filters.Tags,
		}
		if dr := body.Filters.DateRange; dr != nil {
			req.Filters.DateRange = &domain.DateRangeFilter{
				Field: dr.Field,
				From:  dr.From,
				To:    dr.To,
			}
		}
	}

	for _, s := range body.Sort {
		req.Sort = append(req.Sort, domain.SortField{
			Field:     s.Field,
			Direction: domain.SortDirection(s.Order),
		})
	}

	if body.Pagination != nil {
		req.Pagination = domain.Pagination{From: body.Pagination.From, Size: body.Pagination.Size}
	}
	return req
}

func toSearchResponse(result *domain.SearchResult) SearchResponse {
	hits := make([]SearchHit, len(result.Documents))
	for i, d := range result.Documents {
		hit := SearchHit{
			ID:         d.Document.ID,
			Kind:       string(d.Document.Kind),
			Title:      d.Document.Title,
			Body:       d.Document.Body,
			Tags:       d.Document.Tags,
			Score:      d.Score,
			Highlights: d.Highlights,
			CreatedBy:  d.Document.CreatedBy,
			CreatedAt:  d.Document.CreatedAt,
			UpdatedAt:  d.Document.UpdatedAt,
		}
		if wi := d.Document.WorkItem; wi != nil {
			hit.WorkItemType = wi.WorkItemType
			hit.Status = wi.Status
			hit.Priority = wi.Priority
			hit.AssignedTo = wi.AssignedTo
			hit.DueDate = wi.DueDate
		}
		hits[i] = hit
	}

	return SearchResponse{
		Documents:       hits,
		Total:           result.Total,
		Aggregations:    result.Aggregations,
		ExecutionTimeMs: result.ExecutionTime.Milliseconds(),
	}
}
