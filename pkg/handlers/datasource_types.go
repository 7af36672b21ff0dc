package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
)

// TypeLister reports the registered datasource engines.
type TypeLister interface {
	ListTypes() []datasource.DatasourceAdapterInfo
}

// DatasourceTypesHandler serves the engine list used for datasource forms.
type DatasourceTypesHandler struct {
	lister TypeLister
	logger *zap.Logger
}

// NewDatasourceTypesHandler creates a DatasourceTypesHandler.
func NewDatasourceTypesHandler(lister TypeLister, logger *zap.Logger) *DatasourceTypesHandler {
	return &DatasourceTypesHandler{lister: lister, logger: logger}
}

// RegisterRoutes registers GET /api/datasource-types.
func (h *DatasourceTypesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasource-types", h.List)
}

// List writes the registered engines in display order.
func (h *DatasourceTypesHandler) List(w http.ResponseWriter, r *http.Request) {
	types := h.lister.ListTypes()
	if types == nil {
		types = []datasource.DatasourceAdapterInfo{}
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"types": types}); err != nil {
		h.logger.Error("Failed to encode datasource types", zap.Error(err))
	}
}
