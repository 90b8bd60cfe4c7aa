package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/catalog-search/internal/service"
	"github.com/utafrali/catalog-search/pkg/httputil"
)

// CacheHandler exposes maintenance of the search result cache.
type CacheHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewCacheHandler creates a new cache HTTP handler.
func NewCacheHandler(svc *service.SearchService, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{service: svc, logger: logger}
}

// PurgeCache handles DELETE /api/v1/search/cache
func (h *CacheHandler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.PurgeCache(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
