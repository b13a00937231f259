// Package executor runs approved operation groups and instant-mode
// operations against tenant databases.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"schemaplane/internal/rawquery"
	"schemaplane/internal/sqlgen"
	"schemaplane/internal/store"
)

// ErrGroupNotApproved is returned when execution is requested for a
// group that has not been approved.
var ErrGroupNotApproved = errors.New("group is not approved")

const successMessage = "Operation executed successfully"

// timeNow is swapped in tests.
var timeNow = func() time.Time { return time.Now().UTC() }

// Store is the persistence surface the executor needs.
type Store interface {
	GetGroupWithOperations(ctx context.Context, groupID uuid.UUID) (*store.OperationGroup, error)
	GetTenantByID(ctx context.Context, id uuid.UUID) (*store.Tenant, error)
	MarkGroupRunning(ctx context.Context, groupID uuid.UUID) error
	FinishGroup(ctx context.Context, groupID uuid.UUID, status store.GroupStatus) error
	MarkOperationRunning(ctx context.Context, opID uuid.UUID) error
	FinishOperation(ctx context.Context, opID uuid.UUID, status store.OperationStatus, renderedSQL string, result, errMsg *string) error
	RecordInstantOperation(ctx context.Context, op *store.Operation) error
}

// Database is the tenant execution port. Statements run scoped to one
// tenant's target database; there is no cross-tenant sharing.
type Database interface {
	Exec(ctx context.Context, tenant *store.Tenant, query string) (int64, error)
	Query(ctx context.Context, tenant *store.Tenant, query string) ([]string, [][]*string, error)
}

// Executor runs batches and instant operations.
type Executor struct {
	store  Store
	db     Database
	logger *slog.Logger

	opsExecuted metric.Int64Counter
}

// New creates an executor.
func New(st Store, db Database, logger *slog.Logger) *Executor {
	meter := otel.Meter("executor")
	opsExecuted, err := meter.Int64Counter("schemaplane.operations.executed",
		metric.WithDescription("Operations executed, by kind and outcome"))
	if err != nil {
		logger.Warn("failed to create operations counter", "error", err)
	}

	return &Executor{
		store:       st,
		db:          db,
		logger:      logger,
		opsExecuted: opsExecuted,
	}
}

// ExecuteBatch runs one approved group end to end. Operations execute
// strictly sequentially in execution_order; a failing operation is
// recorded and execution continues with the next one. The group ends
// completed only when every operation succeeded.
//
// The approved->running transition is the single-acquirer lock: a
// concurrent call on the same group gets ErrAlreadyExecuting.
func (e *Executor) ExecuteBatch(ctx context.Context, groupID uuid.UUID) (result *store.BatchResult, err error) {
	group, err := e.store.GetGroupWithOperations(ctx, groupID)
	if err != nil {
		return nil, err
	}
	switch group.Status {
	case store.GroupStatusApproved:
	case store.GroupStatusRunning:
		return nil, store.ErrAlreadyExecuting
	default:
		return nil, fmt.Errorf("%w: group %s is %s", ErrGroupNotApproved, groupID, group.Status)
	}

	tenant, err := e.store.GetTenantByID(ctx, group.TenantID)
	if err != nil {
		return nil, err
	}

	if err := e.store.MarkGroupRunning(ctx, groupID); err != nil {
		return nil, err
	}

	tracer := otel.Tracer("executor")
	ctx, span := tracer.Start(ctx, "execute_batch",
		trace.WithAttributes(
			attribute.String("group.id", groupID.String()),
			attribute.String("tenant.id", group.TenantID.String()),
			attribute.Int("group.operations", len(group.Operations)),
		))
	defer span.End()

	// Whatever escapes the per-operation loop must not leave the group
	// stuck in running.
	defer func() {
		if r := recover(); r != nil {
			e.forceFailed(groupID)
			panic(r)
		}
		if err != nil {
			e.forceFailed(groupID)
		}
	}()

	log := e.logger.With("group_id", groupID, "tenant_id", group.TenantID)
	log.Info("executing batch", "operations", len(group.Operations))

	result = &store.BatchResult{
		GroupID:         groupID,
		TotalOperations: len(group.Operations),
	}

	for i := range group.Operations {
		op := &group.Operations[i]
		opResult, opErr := e.runOperation(ctx, tenant, op)
		if opErr != nil {
			span.RecordError(opErr)
			return nil, opErr
		}
		result.Results = append(result.Results, *opResult)
		if opResult.Status == store.OperationStatusSuccess {
			result.SuccessfulOperations++
		} else {
			result.FailedOperations++
		}
	}

	result.Status = store.GroupStatusCompleted
	if result.FailedOperations > 0 {
		result.Status = store.GroupStatusFailed
	}
	if err := e.store.FinishGroup(ctx, groupID, result.Status); err != nil {
		return nil, err
	}

	log.Info("batch finished",
		"status", result.Status,
		"succeeded", result.SuccessfulOperations,
		"failed", result.FailedOperations)
	return result, nil
}

// runOperation executes a single batch operation. Emitter and database
// failures are recorded as the operation's outcome, not returned; only
// persistence failures propagate.
func (e *Executor) runOperation(ctx context.Context, tenant *store.Tenant, op *store.Operation) (*store.OperationResult, error) {
	tracer := otel.Tracer("executor")
	ctx, span := tracer.Start(ctx, "execute_operation",
		trace.WithAttributes(
			attribute.String("operation.id", op.ID.String()),
			attribute.String("operation.kind", string(op.Kind)),
			attribute.Int("operation.order", op.ExecutionOrder),
		))
	defer span.End()

	if err := e.store.MarkOperationRunning(ctx, op.ID); err != nil {
		return nil, fmt.Errorf("failed to mark operation %s running: %w", op.ID, err)
	}

	log := e.logger.With("operation_id", op.ID, "kind", op.Kind, "order", op.ExecutionOrder)

	ddl, emitErr := sqlgen.Emit(op.Kind, op.Payload, op.TableName, op.SchemaName)
	if emitErr != nil {
		return e.failOperation(ctx, op, "", emitErr, log, span)
	}

	if _, execErr := e.db.Exec(ctx, tenant, ddl); execErr != nil {
		return e.failOperation(ctx, op, ddl, execErr, log, span)
	}

	msg := successMessage
	if err := e.store.FinishOperation(ctx, op.ID, store.OperationStatusSuccess, ddl, &msg, nil); err != nil {
		return nil, fmt.Errorf("failed to record success of operation %s: %w", op.ID, err)
	}
	e.countOperation(ctx, op.Kind, store.OperationStatusSuccess)
	log.Info("operation succeeded")

	return &store.OperationResult{
		OperationID: op.ID,
		Name:        op.Name,
		Status:      store.OperationStatusSuccess,
		SQL:         ddl,
		Message:     msg,
	}, nil
}

func (e *Executor) failOperation(ctx context.Context, op *store.Operation, ddl string, cause error, log *slog.Logger, span trace.Span) (*store.OperationResult, error) {
	span.RecordError(cause)
	msg := cause.Error()
	if err := e.store.FinishOperation(ctx, op.ID, store.OperationStatusFailed, ddl, nil, &msg); err != nil {
		return nil, fmt.Errorf("failed to record failure of operation %s: %w", op.ID, err)
	}
	e.countOperation(ctx, op.Kind, store.OperationStatusFailed)
	log.Warn("operation failed", "error", cause)

	return &store.OperationResult{
		OperationID: op.ID,
		Name:        op.Name,
		Status:      store.OperationStatusFailed,
		SQL:         ddl,
		Message:     msg,
	}, nil
}

func (e *Executor) countOperation(ctx context.Context, kind store.OperationKind, status store.OperationStatus) {
	if e.opsExecuted == nil {
		return
	}
	e.opsExecuted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("status", string(status)),
	))
}

// forceFailed stamps the group failed with a fresh context so the
// status is persisted even when the request context is gone.
func (e *Executor) forceFailed(groupID uuid.UUID) {
	if err := e.store.FinishGroup(context.Background(), groupID, store.GroupStatusFailed); err != nil {
		e.logger.Error("failed to force group into failed state", "group_id", groupID, "error", err)
	}
}

// instantResult is the JSON payload stored as an instant SELECT result.
type instantResult struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

// ExecuteInstant runs an instant-mode operation immediately, fills in
// its outcome, and persists the record. Execution failures are captured
// on the operation; only persistence failures return an error.
func (e *Executor) ExecuteInstant(ctx context.Context, tenant *store.Tenant, op *store.Operation) error {
	tracer := otel.Tracer("executor")
	ctx, span := tracer.Start(ctx, "execute_instant",
		trace.WithAttributes(
			attribute.String("operation.id", op.ID.String()),
			attribute.String("operation.kind", string(op.Kind)),
			attribute.String("tenant.id", tenant.ID.String()),
		))
	defer span.End()

	log := e.logger.With("operation_id", op.ID, "kind", op.Kind, "tenant_id", tenant.ID)

	query, err := sqlgen.Emit(op.Kind, op.Payload, op.TableName, op.SchemaName)
	if err != nil {
		return e.recordInstant(ctx, op, "", nil, err, span, log)
	}
	op.SQLPreview = query

	if op.Kind == store.KindSelect {
		if err := rawquery.Validate(query); err != nil {
			return e.recordInstant(ctx, op, query, nil, err, span, log)
		}
		query = rawquery.EnsureLimit(query, rawquery.DefaultLimit)
		op.SQLPreview = query
		columns, rows, err := e.db.Query(ctx, tenant, query)
		if err != nil {
			return e.recordInstant(ctx, op, query, nil, err, span, log)
		}
		data, err := json.Marshal(instantResult{Columns: columns, Rows: rows})
		if err != nil {
			return e.recordInstant(ctx, op, query, nil, err, span, log)
		}
		result := string(data)
		return e.recordInstant(ctx, op, query, &result, nil, span, log)
	}

	affected, err := e.db.Exec(ctx, tenant, query)
	if err != nil {
		return e.recordInstant(ctx, op, query, nil, err, span, log)
	}
	result := fmt.Sprintf("%d row(s) affected", affected)
	return e.recordInstant(ctx, op, query, &result, nil, span, log)
}

func (e *Executor) recordInstant(ctx context.Context, op *store.Operation, query string, result *string, cause error, span trace.Span, log *slog.Logger) error {
	now := timeNow()
	op.StartedAt = &now
	op.CompletedAt = &now
	if query != "" {
		op.SQLPreview = query
	}

	if cause != nil {
		span.RecordError(cause)
		msg := cause.Error()
		op.Status = store.OperationStatusFailed
		op.ErrorMessage = &msg
		log.Warn("instant operation failed", "error", cause)
	} else {
		op.Status = store.OperationStatusSuccess
		op.Result = result
		log.Info("instant operation succeeded")
	}
	e.countOperation(ctx, op.Kind, op.Status)

	if err := e.store.RecordInstantOperation(ctx, op); err != nil {
		return fmt.Errorf("failed to record instant operation %s: %w", op.ID, err)
	}
	return nil
}
