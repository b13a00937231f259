// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import (
	"encoding/json"
	"time"
)

// CreateTenantRequest is the request body for creating a new tenant.
type CreateTenantRequest struct {
	Name       string `json:"name"`
	SchemaName string `json:"schema_name"`
	// DatabaseDSN is the connection string for the tenant's target database.
	// Optional; when empty the controller builds one from its DSN template.
	DatabaseDSN string `json:"database_dsn,omitempty"`
}

// CreateTenantResponse is the response body after creating a tenant.
// The API key is returned exactly once.
type CreateTenantResponse struct {
	ID     string `json:"tenant_id"`
	Name   string `json:"name"`
	ApiKey string `json:"api_key"`
}

// CreateOperationRequest is the request body for submitting a single
// DDL/DML intent. Batch-mode kinds attach to the tenant's open draft
// group for the case; instant-mode kinds execute immediately.
type CreateOperationRequest struct {
	CaseID     string          `json:"case_id"`
	Kind       string          `json:"kind"`
	SchemaName string          `json:"schema_name,omitempty"`
	TableName  string          `json:"table_name"`
	Payload    json.RawMessage `json:"payload"`
}

// CreateOperationResponse is the response body after submitting an operation.
type CreateOperationResponse struct {
	OperationID string `json:"operation_id"`
	GroupID     string `json:"group_id,omitempty"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	SQLPreview  string `json:"sql_preview,omitempty"`
	// Result carries instant-mode output (rows for SELECT, affected
	// counts for INSERT/UPDATE/DELETE). Empty for batch-mode kinds.
	Result json.RawMessage `json:"result,omitempty"`
}

// RequestApprovalRequest is the request body for moving a draft group
// into the admin review queue.
type RequestApprovalRequest struct {
	Description string `json:"description,omitempty"`
}

// ReviewGroupRequest is the request body for admin approve/reject/cancel.
// The acting admin is taken from the authenticated principal, never from
// the body.
type ReviewGroupRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ReviewGroupResponse reports whether the transition was applied.
type ReviewGroupResponse struct {
	GroupID string `json:"group_id"`
	Status  string `json:"status"`
	Applied bool   `json:"applied"`
}

// OperationResponse represents an operation in API responses.
type OperationResponse struct {
	ID             string     `json:"id"`
	GroupID        string     `json:"group_id"`
	Kind           string     `json:"kind"`
	Name           string     `json:"name"`
	SchemaName     string     `json:"schema_name,omitempty"`
	TableName      string     `json:"table_name"`
	Status         string     `json:"status"`
	ExecutionOrder int        `json:"execution_order"`
	SQLPreview     string     `json:"sql_preview,omitempty"`
	Result         *string    `json:"result,omitempty"`
	Error          *string    `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// GroupResponse represents an operation group in API responses.
type GroupResponse struct {
	ID                  string              `json:"id"`
	TenantID            string              `json:"tenant_id"`
	CaseID              string              `json:"case_id"`
	Name                string              `json:"name"`
	Description         string              `json:"description,omitempty"`
	AdminNotes          string              `json:"admin_notes,omitempty"`
	Status              string              `json:"status"`
	ApprovedBy          *string             `json:"approved_by,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	ApprovalRequestedAt *time.Time          `json:"approval_requested_at,omitempty"`
	ApprovedAt          *time.Time          `json:"approved_at,omitempty"`
	StartedAt           *time.Time          `json:"started_at,omitempty"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"`
	Operations          []OperationResponse `json:"operations,omitempty"`
	Summary             *GroupSummary       `json:"summary,omitempty"`
}

// GroupSummary is the computed execution summary for a group.
type GroupSummary struct {
	Total     int `json:"total"`
	Draft     int `json:"draft"`
	Running   int `json:"running"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// PendingGroupsResponse is the paginated admin review queue.
type PendingGroupsResponse struct {
	Groups []GroupResponse `json:"groups"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// OperationResult is the per-operation outcome of a batch execution.
type OperationResult struct {
	OperationID string `json:"operation_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	SQL         string `json:"sql,omitempty"`
	Message     string `json:"message,omitempty"`
}

// BatchResultResponse is returned by POST /admin/groups/{id}/execute.
// A partially failed batch still returns 200 with the per-operation
// outcomes; only structural errors (bad id, wrong status) are 4xx.
type BatchResultResponse struct {
	GroupID              string            `json:"group_id"`
	Status               string            `json:"status"`
	TotalOperations      int               `json:"total_operations"`
	SuccessfulOperations int               `json:"successful_operations"`
	FailedOperations     int               `json:"failed_operations"`
	Results              []OperationResult `json:"results"`
}

// RawQueryRequest is the request body for the read-only query endpoint.
type RawQueryRequest struct {
	SQL string `json:"sql"`
}

// RawQueryResponse carries the rows returned by a validated SELECT.
type RawQueryResponse struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
	// ExecutedSQL is the statement as actually run, after the guard
	// applied its LIMIT cap.
	ExecutedSQL string `json:"executed_sql,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
