package handlers

import (
	"encoding/json"
	"net/http"

	"schemaplane/internal/controller/middleware"
	"schemaplane/internal/rawquery"
	"schemaplane/pkg/api"
)

// RawQuery handles POST /queries.
// Runs an ad hoc read-only SELECT against the tenant's target database
// after the statement passes the static guard.
func (h *Handlers) RawQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.RawQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := rawquery.Validate(req.SQL); err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}
	query := rawquery.EnsureLimit(req.SQL, rawquery.DefaultLimit)

	columns, rows, err := h.db.Query(ctx, tenant, query)
	if err != nil {
		h.log(ctx).Warn("raw query failed", "tenant_id", tenant.ID, "error", err)
		h.httpError(w, "Query failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.respondJson(w, http.StatusOK, api.RawQueryResponse{
		Columns:     columns,
		Rows:        rows,
		ExecutedSQL: query,
	})
}
