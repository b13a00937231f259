package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"schemaplane/internal/controller/middleware"
	"schemaplane/internal/sqlgen"
	"schemaplane/internal/store"
	"schemaplane/pkg/api"
)

// CreateOperation handles POST /operations.
// DDL kinds attach to the tenant's open draft group for the case and
// wait for approval; DML kinds execute immediately in instant mode.
func (h *Handlers) CreateOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CreateOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	kind := store.OperationKind(req.Kind)
	if !kind.Valid() {
		h.httpError(w, "Unknown operation kind", http.StatusBadRequest)
		return
	}
	if req.TableName == "" {
		h.httpError(w, "TableName is required", http.StatusBadRequest)
		return
	}

	caseID := req.CaseID
	if caseID == "" {
		caseID = "default"
	}
	if _, err := h.store.GetCase(ctx, caseID); err != nil {
		if errors.Is(err, store.ErrCaseNotFound) {
			h.httpError(w, "Unknown case", http.StatusBadRequest)
			return
		}
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	schemaName := req.SchemaName
	if schemaName == "" {
		schemaName = tenant.SchemaName
	}

	// One canonical unwrap of the historical double-wrapped shape;
	// everything downstream sees the flat payload.
	payload := sqlgen.Normalize(req.Payload)

	// Render once up front so a malformed payload is rejected at
	// submission instead of surfacing at execution time.
	preview, err := sqlgen.Emit(kind, payload, req.TableName, schemaName)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if kind.DDL() {
		h.createBatchOperation(w, r, tenant, caseID, kind, schemaName, req.TableName, payload, preview)
		return
	}
	h.runInstantOperation(w, r, tenant, caseID, kind, schemaName, req.TableName, payload)
}

func (h *Handlers) createBatchOperation(w http.ResponseWriter, r *http.Request, tenant *store.Tenant, caseID string, kind store.OperationKind, schemaName, tableName string, payload json.RawMessage, preview string) {
	ctx := r.Context()

	name, err := h.names.BatchName(ctx, tenant.ID, kind, tableName)
	if err != nil {
		h.httpError(w, "Failed to allocate operation name", http.StatusInternalServerError)
		return
	}

	group, err := h.store.GetOrCreateDraftGroup(ctx, tenant.ID, caseID, tableName, kind)
	if err != nil {
		h.httpError(w, "Failed to resolve draft group", http.StatusInternalServerError)
		return
	}

	op := &store.Operation{
		ID:         uuid.New(),
		TenantID:   tenant.ID,
		CaseID:     caseID,
		Kind:       kind,
		Name:       name,
		SchemaName: schemaName,
		TableName:  tableName,
		Payload:    payload,
		SQLPreview: preview,
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.store.AddOperationToGroup(ctx, group.ID, op); err != nil {
		h.log(ctx).Error("failed to add operation to group",
			"group_id", group.ID, "tenant_id", tenant.ID, "error", err)
		h.httpError(w, "Failed to add operation to group", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, api.CreateOperationResponse{
		OperationID: op.ID.String(),
		GroupID:     group.ID.String(),
		Name:        op.Name,
		Status:      string(op.Status),
		SQLPreview:  preview,
	})
}

func (h *Handlers) runInstantOperation(w http.ResponseWriter, r *http.Request, tenant *store.Tenant, caseID string, kind store.OperationKind, schemaName, tableName string, payload json.RawMessage) {
	ctx := r.Context()

	recordID, err := h.store.NextSequence(ctx, tenant.ID, store.CounterScopeInstant)
	if err != nil {
		h.httpError(w, "Failed to allocate record id", http.StatusInternalServerError)
		return
	}

	op := &store.Operation{
		ID:         uuid.New(),
		TenantID:   tenant.ID,
		CaseID:     caseID,
		Kind:       kind,
		Name:       h.names.InstantName(kind, tableName, recordID, sqlgen.HasFilter(payload)),
		SchemaName: schemaName,
		TableName:  tableName,
		Payload:    payload,
		Status:     store.OperationStatusQueued,
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.runner.ExecuteInstant(ctx, tenant, op); err != nil {
		h.log(ctx).Error("failed to persist instant operation",
			"operation_id", op.ID, "tenant_id", tenant.ID, "error", err)
		h.httpError(w, "Failed to record operation", http.StatusInternalServerError)
		return
	}

	resp := api.CreateOperationResponse{
		OperationID: op.ID.String(),
		Name:        op.Name,
		Status:      string(op.Status),
		SQLPreview:  op.SQLPreview,
	}
	switch {
	case op.ErrorMessage != nil:
		resp.Result = mustJSON(map[string]string{"error": *op.ErrorMessage})
	case op.Result != nil && op.Kind == store.KindSelect:
		resp.Result = json.RawMessage(*op.Result)
	case op.Result != nil:
		resp.Result = mustJSON(*op.Result)
	}
	h.respondJson(w, http.StatusOK, resp)
}

func mustJSON(v interface{}) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
