package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/service"
	"github.com/utafrali/catalog-search/pkg/httputil"
	"github.com/utafrali/catalog-search/pkg/validator"
)

// BrandHandler handles HTTP requests for brand endpoints.
type BrandHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewBrandHandler creates a new brand HTTP handler.
func NewBrandHandler(svc *service.CatalogService, logger *slog.Logger) *BrandHandler {
	return &BrandHandler{
		service: svc,
		logger:  logger,
	}
}

// ListBrands handles GET /api/v1/brands
func (h *BrandHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.ListBrands(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: brands})
}

// GetOrCreateBrand handles POST /api/v1/brands. It answers 201 when the
// brand was created and 200 when one with the same slug already existed.
func (h *BrandHandler) GetOrCreateBrand(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req domain.TaxonomyInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	brand, created, err := h.service.GetOrCreateBrand(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, createdStatus(created), httputil.Response{Data: brand})
}

// DeleteBrand handles DELETE /api/v1/brands/{id}
func (h *BrandHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteBrand(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
