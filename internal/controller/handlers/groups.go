package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"schemaplane/internal/controller/middleware"
	"schemaplane/internal/store"
	"schemaplane/pkg/api"
)

// RequestApproval handles POST /groups/{id}/request-approval.
// Moves the tenant's draft group into the admin review queue.
func (h *Handlers) RequestApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid group id", http.StatusBadRequest)
		return
	}

	var req api.RequestApprovalRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	group, err := h.store.GetGroup(ctx, groupID)
	if err != nil || group.TenantID != tenant.ID {
		h.httpError(w, "Group not found", http.StatusNotFound)
		return
	}

	if err := h.store.RequestApproval(ctx, groupID, req.Description); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			h.httpError(w, "Group is not in draft status", http.StatusConflict)
			return
		}
		h.log(ctx).Error("failed to request approval", "group_id", groupID, "error", err)
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.ReviewGroupResponse{
		GroupID: groupID.String(),
		Status:  string(store.GroupStatusPendingApproval),
		Applied: true,
	})
}

// GetGroup handles GET /groups/{id}.
// Returns the group, its operations and a computed status summary.
func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid group id", http.StatusBadRequest)
		return
	}

	group, err := h.store.GetGroupWithOperations(ctx, groupID)
	if err != nil || group.TenantID != tenant.ID {
		h.httpError(w, "Group not found", http.StatusNotFound)
		return
	}

	resp := groupResponse(group)
	resp.Summary = summarize(group.Operations)
	h.respondJson(w, http.StatusOK, resp)
}

func groupResponse(g *store.OperationGroup) api.GroupResponse {
	resp := api.GroupResponse{
		ID:                  g.ID.String(),
		TenantID:            g.TenantID.String(),
		CaseID:              g.CaseID,
		Name:                g.Name,
		Description:         g.Description,
		AdminNotes:          g.AdminNotes,
		Status:              string(g.Status),
		ApprovedBy:          g.ApprovedBy,
		CreatedAt:           g.CreatedAt,
		ApprovalRequestedAt: g.ApprovalRequestedAt,
		ApprovedAt:          g.ApprovedAt,
		StartedAt:           g.StartedAt,
		CompletedAt:         g.CompletedAt,
	}
	for _, op := range g.Operations {
		resp.Operations = append(resp.Operations, operationResponse(op))
	}
	return resp
}

func operationResponse(op store.Operation) api.OperationResponse {
	groupID := ""
	if op.GroupID != uuid.Nil {
		groupID = op.GroupID.String()
	}
	return api.OperationResponse{
		ID:             op.ID.String(),
		GroupID:        groupID,
		Kind:           string(op.Kind),
		Name:           op.Name,
		SchemaName:     op.SchemaName,
		TableName:      op.TableName,
		Status:         string(op.Status),
		ExecutionOrder: op.ExecutionOrder,
		SQLPreview:     op.SQLPreview,
		Result:         op.Result,
		Error:          op.ErrorMessage,
		CreatedAt:      op.CreatedAt,
		StartedAt:      op.StartedAt,
		CompletedAt:    op.CompletedAt,
	}
}

func summarize(ops []store.Operation) *api.GroupSummary {
	s := &api.GroupSummary{Total: len(ops)}
	for _, op := range ops {
		switch op.Status {
		case store.OperationStatusDraft, store.OperationStatusQueued:
			s.Draft++
		case store.OperationStatusRunning:
			s.Running++
		case store.OperationStatusSuccess:
			s.Success++
		case store.OperationStatusFailed:
			s.Failed++
		case store.OperationStatusCancelled:
			s.Cancelled++
		}
	}
	return s
}
