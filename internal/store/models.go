// Package store contains the database layer for schemaplane.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tenant represents a tenant in the multi-tenant system.
// All operations must be scoped by TenantID.
type Tenant struct {
	ID         uuid.UUID
	Name       string
	SchemaName string
	// DatabaseDSN is the connection string for the tenant's target
	// database. DDL emitted for this tenant runs over this connection.
	DatabaseDSN    string
	RateLimit      int
	RateLimitBurst int
	CreatedAt      time.Time
}

// GroupStatus represents the state of an operation group.
type GroupStatus string

const (
	GroupStatusDraft           GroupStatus = "draft"
	GroupStatusPendingApproval GroupStatus = "pending_approval"
	GroupStatusApproved        GroupStatus = "approved"
	GroupStatusRejected        GroupStatus = "rejected"
	GroupStatusRunning         GroupStatus = "running"
	GroupStatusCompleted       GroupStatus = "completed"
	GroupStatusFailed          GroupStatus = "failed"
	GroupStatusCancelled       GroupStatus = "cancelled"
)

// Terminal reports whether the group can never change state again.
// Failed and rejected groups are recoverable via re-approval.
func (s GroupStatus) Terminal() bool {
	return s == GroupStatusCompleted || s == GroupStatusCancelled
}

// OperationStatus represents the state of a single operation.
type OperationStatus string

const (
	OperationStatusDraft     OperationStatus = "draft"
	OperationStatusQueued    OperationStatus = "queued"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusSuccess   OperationStatus = "success"
	OperationStatusFailed    OperationStatus = "failed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// OperationKind is the fixed catalogue of operations the engine emits
// and runs. DDL kinds go through the batch approval workflow; the DML
// kinds execute in instant mode and bypass approval.
type OperationKind string

const (
	KindCreateTable    OperationKind = "CREATE_TABLE"
	KindAlterTable     OperationKind = "ALTER_TABLE"
	KindDropTable      OperationKind = "DROP_TABLE"
	KindCreateIndex    OperationKind = "CREATE_INDEX"
	KindDropIndex      OperationKind = "DROP_INDEX"
	KindAddForeignKey  OperationKind = "ADD_FOREIGN_KEY"
	KindDropForeignKey OperationKind = "DROP_FOREIGN_KEY"

	KindSelect OperationKind = "SELECT"
	KindInsert OperationKind = "INSERT"
	KindUpdate OperationKind = "UPDATE"
	KindDelete OperationKind = "DELETE"
)

// Valid reports whether the kind is part of the catalogue.
func (k OperationKind) Valid() bool {
	switch k {
	case KindCreateTable, KindAlterTable, KindDropTable,
		KindCreateIndex, KindDropIndex,
		KindAddForeignKey, KindDropForeignKey,
		KindSelect, KindInsert, KindUpdate, KindDelete:
		return true
	}
	return false
}

// DDL reports whether the kind is a schema mutation (batch mode).
func (k OperationKind) DDL() bool {
	switch k {
	case KindSelect, KindInsert, KindUpdate, KindDelete:
		return false
	}
	return k.Valid()
}

// ExecutionMode selects the workflow an operation goes through.
type ExecutionMode string

const (
	ModeBatch   ExecutionMode = "batch"
	ModeInstant ExecutionMode = "instant"
)

// OperationGroup is a batch of operations approved and executed together.
type OperationGroup struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CaseID      string
	Name        string
	Description string
	AdminNotes  string
	Status      GroupStatus
	ApprovedBy  *string
	RejectedBy  *string

	CreatedAt           time.Time
	ApprovalRequestedAt *time.Time
	ApprovedAt          *time.Time
	StartedAt           *time.Time
	CompletedAt         *time.Time

	// Operations is populated by GetGroupWithOperations, ordered by
	// ExecutionOrder ascending.
	Operations []Operation
}

// Operation is a single DDL/DML intent. Batch-mode operations belong
// to exactly one group and never move between groups; instant-mode
// operations are standalone and carry GroupID == uuid.Nil.
type Operation struct {
	ID         uuid.UUID
	GroupID    uuid.UUID
	TenantID   uuid.UUID
	CaseID     string
	Kind       OperationKind
	Name       string
	SchemaName string
	TableName  string
	// Payload is the structured input the emitter renders into DDL.
	// Its shape depends on Kind; see internal/sqlgen.
	Payload    json.RawMessage
	SQLPreview string
	Status     OperationStatus
	// ExecutionOrder is unique within a group and strictly increasing;
	// the executor processes operations ascending.
	ExecutionOrder int
	Result         *string
	ErrorMessage   *string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// OperationCase is a catalogue entry providing the default execution
// mode and display name for a logical grouping context.
type OperationCase struct {
	CaseID        string
	DisplayName   string
	ExecutionMode ExecutionMode
	CreatedAt     time.Time
}

// OperationResult is the per-operation outcome recorded by the executor.
type OperationResult struct {
	OperationID uuid.UUID
	Name        string
	Status      OperationStatus
	SQL         string
	Message     string
}

// BatchResult aggregates the outcome of executing one approved group.
type BatchResult struct {
	GroupID              uuid.UUID
	Status               GroupStatus
	TotalOperations      int
	SuccessfulOperations int
	FailedOperations     int
	Results              []OperationResult
}
