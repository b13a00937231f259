package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors returned by store implementations. Persistence-level
// failures are wrapped driver errors; these cover the structural cases
// the API layer maps to 4xx responses.
var (
	ErrGroupNotFound     = errors.New("operation group not found")
	ErrOperationNotFound = errors.New("operation not found")
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrCaseNotFound      = errors.New("operation case not found")

	// ErrInvalidTransition is returned when a status-conditioned update
	// matched no row because the group was not in a permitted state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAlreadyExecuting is returned when the approved->running flip
	// loses to a concurrent executor.
	ErrAlreadyExecuting = errors.New("group is already executing")
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// This allows us to pass either a connection pool or an active
// transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// TenantStore handles tenant records for authentication and schema
// resolution.
type TenantStore interface {
	// CreateTenant inserts a new tenant to the database.
	CreateTenant(ctx context.Context, tenant *Tenant, hashedKey string) error

	// GetTenantByID returns a tenant by its ID.
	GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// GetTenantByAPIKeyHash returns a tenant by its API key hash.
	GetTenantByAPIKeyHash(ctx context.Context, hash string) (*Tenant, error)
}

// CaseStore looks up operation-case catalogue entries.
type CaseStore interface {
	// GetCase returns the catalogue entry for a case id.
	GetCase(ctx context.Context, caseID string) (*OperationCase, error)
}

// GroupStore owns the OperationGroup/Operation lifecycle.
type GroupStore interface {
	// CreateGroup always inserts a new group in draft status. It does
	// not enforce the one-draft-per-tenant-per-case invariant; callers
	// that need it use GetOrCreateDraftGroup.
	CreateGroup(ctx context.Context, group *OperationGroup) error

	// GetOrCreateDraftGroup returns the existing draft group for
	// (tenant, case), creating one when none exists. Serialized per
	// tenant+case so concurrent submissions share a single draft.
	GetOrCreateDraftGroup(ctx context.Context, tenantID uuid.UUID, caseID, tableName string, kind OperationKind) (*OperationGroup, error)

	// AddOperationToGroup assigns the next execution_order within the
	// group and inserts the operation in draft status.
	AddOperationToGroup(ctx context.Context, groupID uuid.UUID, op *Operation) error

	// RequestApproval moves a draft group into pending_approval.
	// Returns ErrInvalidTransition when the group is not in draft.
	RequestApproval(ctx context.Context, groupID uuid.UUID, description string) error

	// ApproveGroup sets the group approved. Valid from
	// pending_approval, failed, or rejected (re-approval after failure
	// is allowed). The acting admin is threaded explicitly.
	ApproveGroup(ctx context.Context, groupID uuid.UUID, approvedBy, notes string) error

	// RejectGroup sets the group rejected. Valid from pending_approval
	// or failed. Rejected groups stay in the admin review queue and
	// remain re-approvable.
	RejectGroup(ctx context.Context, groupID uuid.UUID, rejectedBy, notes string) error

	// CancelGroup sets the group cancelled and cascades cancellation
	// to its non-terminal operations. Valid from draft,
	// pending_approval, approved, or rejected.
	CancelGroup(ctx context.Context, groupID uuid.UUID, cancelledBy, notes string) error

	// GetGroup returns the group row only.
	GetGroup(ctx context.Context, groupID uuid.UUID) (*OperationGroup, error)

	// GetGroupWithOperations returns the group with its operations
	// ordered by execution_order ascending.
	GetGroupWithOperations(ctx context.Context, groupID uuid.UUID) (*OperationGroup, error)

	// GetPendingGroups returns groups awaiting admin review
	// (pending_approval, rejected, failed), oldest approval request
	// first.
	GetPendingGroups(ctx context.Context, limit, offset int) ([]OperationGroup, error)

	// ListApprovedGroups returns ids of groups ready for execution,
	// oldest approval first. Used by the runner's poll loop.
	ListApprovedGroups(ctx context.Context, limit int) ([]uuid.UUID, error)

	// CountPendingGroups returns the size of the admin review queue.
	CountPendingGroups(ctx context.Context) (int64, error)

	// MarkGroupRunning flips approved->running and stamps the start
	// time. Exactly one concurrent caller wins; losers get
	// ErrAlreadyExecuting (or ErrInvalidTransition when the group was
	// never approved).
	MarkGroupRunning(ctx context.Context, groupID uuid.UUID) error

	// FinishGroup records the terminal outcome of a batch run:
	// completed when no operation failed, failed otherwise.
	FinishGroup(ctx context.Context, groupID uuid.UUID, status GroupStatus) error

	// MarkOperationRunning stamps an operation as running.
	MarkOperationRunning(ctx context.Context, opID uuid.UUID) error

	// FinishOperation records an operation outcome: the rendered SQL,
	// a result or error message, and the terminal status.
	FinishOperation(ctx context.Context, opID uuid.UUID, status OperationStatus, renderedSQL string, result, errMsg *string) error

	// RecordInstantOperation persists an instant-mode operation and
	// its outcome in one step; instant operations have no group.
	RecordInstantOperation(ctx context.Context, op *Operation) error

	// NextSequence atomically increments and returns the tenant's
	// counter for the given scope, starting at 1. The batch scope
	// feeds BATCH<seq> names; the instant scope feeds the zero-padded
	// record id embedded in INSTANT names.
	NextSequence(ctx context.Context, tenantID uuid.UUID, scope CounterScope) (int64, error)
}

// CounterScope selects which per-tenant counter NextSequence bumps.
type CounterScope string

const (
	CounterScopeBatch   CounterScope = "batch"
	CounterScopeInstant CounterScope = "instant"
)
