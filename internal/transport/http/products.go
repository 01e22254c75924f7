package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ProductCatalog is the minimal interface needed for product endpoints.
type ProductCatalog interface {
	FindProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GenerateProducts(ctx context.Context) ([]domain.Product, error)
}

func HandleListProducts(svc ProductCatalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListProducts(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "list products", "error", err)
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, toProductResponses(products))
	}
}

func HandleGetProduct(svc ProductCatalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := svc.FindProduct(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrProductNotFound):
				writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				logger.ErrorContext(r.Context(), "get product", "error", err)
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}
		writeJSON(w, http.StatusOK, toProductResponse(product))
	}
}

// HandleGenerateProducts seeds a fresh batch of demo products.
func HandleGenerateProducts(svc ProductCatalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.GenerateProducts(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "generate products", "error", err)
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, toProductResponses(products))
	}
}
