package http

import (
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/service"
	"github.com/utafrali/catalog-search/pkg/httputil"
	"github.com/utafrali/catalog-search/pkg/pagination"
	"github.com/utafrali/catalog-search/pkg/validator"
)

// SearchHandler handles HTTP requests for the product search endpoint.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// searchFilters are the structural filters of a search request, as sent.
type searchFilters struct {
	Category    string   `query:"category" validate:"omitempty,max=255,slug"`
	Brand       string   `query:"brand" validate:"omitempty,max=255,slug"`
	MinCalories *float64 `query:"min_calories" validate:"omitempty,gte=0"`
	MaxCalories *float64 `query:"max_calories" validate:"omitempty,gte=0"`
}

// SearchResponse is the body of GET /products.
type SearchResponse struct {
	Count    int                   `json:"count"`
	Next     *string               `json:"next"`
	Previous *string               `json:"previous"`
	Results  []domain.SearchResult `json:"results"`
}

// Search handles GET /products
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters, fields := parseFilters(q)
	if len(fields) > 0 {
		httputil.WriteFieldErrors(w, r, fields)
		return
	}

	params := pagination.FromQuery(q)
	req := &domain.SearchRequest{
		Query:       q.Get("search"),
		Category:    filters.Category,
		Brand:       filters.Brand,
		MinCalories: filters.MinCalories,
		MaxCalories: filters.MaxCalories,
		Page:        params.Page,
		PageSize:    params.PageSize,
	}

	page, err := h.service.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	next, previous := pagination.Links(r, page.Count, params)
	httputil.WriteJSON(w, http.StatusOK, SearchResponse{
		Count:    page.Count,
		Next:     next,
		Previous: previous,
		Results:  page.Results,
	})
}

// parseFilters reads and validates the structural filters. The returned map
// holds one message per rejected parameter.
func parseFilters(q url.Values) (searchFilters, map[string]string) {
	fields := make(map[string]string)
	f := searchFilters{
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
	}

	parseBound := func(name string) *float64 {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			fields[name] = "must be a number"
			return nil
		}
		return &v
	}
	f.MinCalories = parseBound("min_calories")
	f.MaxCalories = parseBound("max_calories")

	if err := validator.Validate(f); err != nil {
		if valErr, ok := err.(*validator.ValidationError); ok {
			for name, msg := range valErr.Fields() {
				fields[name] = msg
			}
		} else {
			fields["filters"] = err.Error()
		}
	}

	if f.MinCalories != nil && f.MaxCalories != nil && *f.MinCalories > *f.MaxCalories {
		if _, taken := fields["min_calories"]; !taken {
			fields["min_calories"] = "must be less than or equal to max_calories"
		}
	}

	return f, fields
}
