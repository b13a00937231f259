package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"schemaplane/internal/controller/middleware"
	"schemaplane/internal/executor"
	"schemaplane/internal/store"
	"schemaplane/pkg/api"
)

// reviewAction applies one admin transition and maps store errors to
// HTTP responses. A blocked transition returns 409 with applied=false.
func (h *Handlers) reviewAction(w http.ResponseWriter, r *http.Request, apply func(groupID uuid.UUID, admin, notes string) error, resulting store.GroupStatus) {
	ctx := r.Context()

	admin, ok := middleware.AdminFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid group id", http.StatusBadRequest)
		return
	}

	var req api.ReviewGroupRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := apply(groupID, admin, req.Notes); err != nil {
		switch {
		case errors.Is(err, store.ErrGroupNotFound):
			h.httpError(w, "Group not found", http.StatusNotFound)
		case errors.Is(err, store.ErrInvalidTransition):
			h.respondJson(w, http.StatusConflict, api.ReviewGroupResponse{
				GroupID: groupID.String(),
				Applied: false,
			})
		default:
			h.log(ctx).Error("admin transition failed", "group_id", groupID, "admin", admin, "error", err)
			h.httpError(w, "Internal database error", http.StatusInternalServerError)
		}
		return
	}

	h.respondJson(w, http.StatusOK, api.ReviewGroupResponse{
		GroupID: groupID.String(),
		Status:  string(resulting),
		Applied: true,
	})
}

// ApproveGroup handles POST /admin/groups/{id}/approve.
func (h *Handlers) ApproveGroup(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, func(groupID uuid.UUID, admin, notes string) error {
		return h.store.ApproveGroup(r.Context(), groupID, admin, notes)
	}, store.GroupStatusApproved)
}

// RejectGroup handles POST /admin/groups/{id}/reject.
func (h *Handlers) RejectGroup(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, func(groupID uuid.UUID, admin, notes string) error {
		return h.store.RejectGroup(r.Context(), groupID, admin, notes)
	}, store.GroupStatusRejected)
}

// CancelGroup handles POST /admin/groups/{id}/cancel.
func (h *Handlers) CancelGroup(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, func(groupID uuid.UUID, admin, notes string) error {
		return h.store.CancelGroup(r.Context(), groupID, admin, notes)
	}, store.GroupStatusCancelled)
}

// GetPendingGroups handles GET /admin/groups/pending.
// Returns the review queue: pending_approval plus rejected and failed
// groups, oldest approval request first.
func (h *Handlers) GetPendingGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	groups, err := h.store.GetPendingGroups(ctx, limit, offset)
	if err != nil {
		h.log(ctx).Error("failed to list pending groups", "error", err)
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	resp := api.PendingGroupsResponse{Limit: limit, Offset: offset}
	for i := range groups {
		resp.Groups = append(resp.Groups, groupResponse(&groups[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// ExecuteGroup handles POST /admin/groups/{id}/execute.
// Runs the approved batch synchronously and returns the per-operation
// outcomes. A partially failed batch is still a 200.
func (h *Handlers) ExecuteGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid group id", http.StatusBadRequest)
		return
	}

	result, err := h.runner.ExecuteBatch(ctx, groupID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrGroupNotFound):
			h.httpError(w, "Group not found", http.StatusNotFound)
		case errors.Is(err, executor.ErrGroupNotApproved):
			h.httpError(w, "Group is not approved", http.StatusConflict)
		case errors.Is(err, store.ErrAlreadyExecuting):
			h.httpError(w, "Group is already executing", http.StatusConflict)
		default:
			h.log(ctx).Error("batch execution failed", "group_id", groupID, "error", err)
			h.httpError(w, "Batch execution failed", http.StatusInternalServerError)
		}
		return
	}

	resp := api.BatchResultResponse{
		GroupID:              result.GroupID.String(),
		Status:               string(result.Status),
		TotalOperations:      result.TotalOperations,
		SuccessfulOperations: result.SuccessfulOperations,
		FailedOperations:     result.FailedOperations,
	}
	for _, opResult := range result.Results {
		resp.Results = append(resp.Results, api.OperationResult{
			OperationID: opResult.OperationID.String(),
			Name:        opResult.Name,
			Status:      string(opResult.Status),
			SQL:         opResult.SQL,
			Message:     opResult.Message,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}
