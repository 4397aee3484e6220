package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/htmmed/qctrack/internal/models"
	"github.com/htmmed/qctrack/internal/services/cascade"
	"github.com/htmmed/qctrack/internal/services/exporter"
)

// handleProducts handles /api/products — GET list, POST upsert (admin).
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := s.app.Storage.Products().List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing products: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"products": products})
	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}
		var product models.Product
		if !DecodeJSON(w, r, &product) {
			return
		}
		if strings.TrimSpace(product.ProductCode) == "" {
			WriteError(w, http.StatusBadRequest, "product_code is required")
			return
		}
		if err := s.app.Storage.Products().Upsert(r.Context(), &product); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving product: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, &product)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleProductByCode handles /api/products/{code} — GET, DELETE (admin).
func (s *Server) handleProductByCode(w http.ResponseWriter, r *http.Request) {
	code := PathParam(r, "/api/products/", "")
	if code == "" {
		WriteError(w, http.StatusBadRequest, "product code is required in path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := s.app.Storage.Products().Get(r.Context(), code)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading product: %v", err))
			return
		}
		if product == nil {
			WriteError(w, http.StatusNotFound, "product not found")
			return
		}
		WriteJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		if !s.requireAdmin(w, r) {
			return
		}
		if err := s.app.Storage.Products().Delete(r.Context(), code); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error deleting product: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "product_code": code})
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleCascade handles POST /api/products/cascade — run one cascade action
// against the catalog and return the updated selection plus the candidate
// sets for every level.
func (s *Server) handleCascade(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Selection cascade.Selection `json:"selection"`
		Action    string            `json:"action"` // select | trade_name | product_code | clear | choices
		Level     string            `json:"level,omitempty"`
		Value     string            `json:"value,omitempty"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	resolver, err := s.catalogResolver(r)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading catalog: %v", err))
		return
	}

	sel := req.Selection
	switch req.Action {
	case "select":
		sel = resolver.Select(sel, req.Level, req.Value)
	case "trade_name":
		sel = resolver.EnterTradeName(sel, req.Value)
	case "product_code":
		sel = resolver.EnterProductCode(sel, req.Value)
	case "clear":
		sel = resolver.Clear(sel, req.Level)
	case "choices", "":
		// No mutation, just the candidate sets.
	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown cascade action %q", req.Action))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"selection": sel,
		"choices":   resolver.Choices(sel),
	})
}

// handleProductImport handles POST /api/products/import — ingest a catalog
// spreadsheet (admin). The request body is the xlsx file.
func (s *Server) handleProductImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "spreadsheet body is required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 32<<20) // 32MB limit

	products, err := exporter.ImportCatalog(r.Body)
	if err != nil {
		if errors.Is(err, exporter.ErrNoValidRows) {
			WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Error reading spreadsheet: %v", err))
		return
	}

	refs := make([]*models.Product, len(products))
	for i := range products {
		refs[i] = &products[i]
	}
	count, err := s.app.Storage.Products().BulkUpsert(r.Context(), refs)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving catalog: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "imported": count})
}
