package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"schemaplane/internal/naming"
	"schemaplane/internal/store"
)

const groupColumns = `id, tenant_id, case_id, name, description, admin_notes, status,
	approved_by, rejected_by, created_at, approval_requested_at, approved_at, started_at, completed_at`

func scanGroup(row interface {
	Scan(dest ...interface{}) error
}) (*store.OperationGroup, error) {
	var g store.OperationGroup
	err := row.Scan(
		&g.ID, &g.TenantID, &g.CaseID, &g.Name, &g.Description, &g.AdminNotes, &g.Status,
		&g.ApprovedBy, &g.RejectedBy,
		&g.CreatedAt, &g.ApprovalRequestedAt, &g.ApprovedAt, &g.StartedAt, &g.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup always inserts a new group row in draft status. Use
// GetOrCreateDraftGroup when the one-draft-per-tenant-per-case
// invariant matters.
func (s *Store) CreateGroup(ctx context.Context, group *store.OperationGroup) error {
	query := `
		INSERT INTO operation_groups (id, tenant_id, case_id, name, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if group.Status == "" {
		group.Status = store.GroupStatusDraft
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		group.ID, group.TenantID, group.CaseID, group.Name, group.Description,
		group.Status, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create group %s: %w", group.ID, err)
	}
	return nil
}

// draftLockKey derives a 32-bit advisory lock key from tenant + case.
func draftLockKey(tenantID uuid.UUID, caseID string) int32 {
	h := fnv.New32a()
	h.Write(tenantID[:])
	h.Write([]byte(caseID))
	return int32(h.Sum32())
}

// GetOrCreateDraftGroup returns the open draft group for (tenant, case),
// creating one when none exists. A tenant-level advisory transaction
// lock serializes concurrent submissions so two requests cannot both
// observe "no draft group" and create two.
func (s *Store) GetOrCreateDraftGroup(ctx context.Context, tenantID uuid.UUID, caseID, tableName string, kind store.OperationKind) (*store.OperationGroup, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(1, $1)`, draftLockKey(tenantID, caseID)); err != nil {
		return nil, fmt.Errorf("failed to take draft lock for tenant %s: %w", tenantID, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM operation_groups WHERE tenant_id = $1 AND case_id = $2 AND status = $3`, groupColumns)
	group, err := scanGroup(tx.QueryRowContext(ctx, query, tenantID, caseID, store.GroupStatusDraft))
	if err == nil {
		return group, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up draft group for tenant %s: %w", tenantID, err)
	}

	now := time.Now().UTC()
	group = &store.OperationGroup{
		ID:        uuid.New(),
		TenantID:  tenantID,
		CaseID:    caseID,
		Name:      naming.DraftGroupName(kind, tableName, now.Unix()),
		Status:    store.GroupStatusDraft,
		CreatedAt: now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO operation_groups (id, tenant_id, case_id, name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, group.ID, group.TenantID, group.CaseID, group.Name, group.Status, group.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft group for tenant %s: %w", tenantID, err)
	}

	return group, tx.Commit()
}

// AddOperationToGroup assigns the next execution_order and inserts the
// operation in draft status. The group row is locked so concurrent
// appends cannot reuse an order value.
func (s *Store) AddOperationToGroup(ctx context.Context, groupID uuid.UUID, op *store.Operation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status store.GroupStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM operation_groups WHERE id = $1 FOR UPDATE`, groupID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock group %s: %w", groupID, err)
	}
	if status != store.GroupStatusDraft {
		return fmt.Errorf("%w: cannot add operations to group in status %s", store.ErrInvalidTransition, status)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(execution_order), 0) + 1 FROM operations WHERE group_id = $1`,
		groupID,
	).Scan(&op.ExecutionOrder)
	if err != nil {
		return fmt.Errorf("failed to assign execution order in group %s: %w", groupID, err)
	}

	op.GroupID = groupID
	op.Status = store.OperationStatusDraft
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO operations (id, group_id, tenant_id, case_id, kind, name, schema_name, table_name,
			payload, sql_preview, status, execution_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		op.ID, op.GroupID, op.TenantID, op.CaseID, op.Kind, op.Name, op.SchemaName, op.TableName,
		[]byte(op.Payload), op.SQLPreview, op.Status, op.ExecutionOrder, op.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation %s into group %s: %w", op.ID, groupID, err)
	}

	return tx.Commit()
}

// transition runs a status-conditioned update and maps a zero row count
// to ErrGroupNotFound or ErrInvalidTransition.
func (s *Store) transition(ctx context.Context, groupID uuid.UUID, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update group %s: %w", groupID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for group %s: %w", groupID, err)
	}
	if affected > 0 {
		return nil
	}

	var current store.GroupStatus
	err = s.db.QueryRowContext(ctx, `SELECT status FROM operation_groups WHERE id = $1`, groupID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read status of group %s: %w", groupID, err)
	}
	return fmt.Errorf("%w: group %s is %s", store.ErrInvalidTransition, groupID, current)
}

// RequestApproval moves a draft group into the admin review queue.
func (s *Store) RequestApproval(ctx context.Context, groupID uuid.UUID, description string) error {
	return s.transition(ctx, groupID, `
		UPDATE operation_groups
		SET status = $2, description = COALESCE(NULLIF($3, ''), description), approval_requested_at = NOW()
		WHERE id = $1 AND status = $4
	`, groupID, store.GroupStatusPendingApproval, description, store.GroupStatusDraft)
}

// ApproveGroup sets the group approved. Re-approval after failure or
// rejection is allowed.
func (s *Store) ApproveGroup(ctx context.Context, groupID uuid.UUID, approvedBy, notes string) error {
	return s.transition(ctx, groupID, `
		UPDATE operation_groups
		SET status = $2, approved_by = $3, admin_notes = COALESCE(NULLIF($4, ''), admin_notes), approved_at = NOW()
		WHERE id = $1 AND status = ANY($5)
	`, groupID, store.GroupStatusApproved, approvedBy, notes,
		pq.Array([]store.GroupStatus{store.GroupStatusPendingApproval, store.GroupStatusFailed, store.GroupStatusRejected}))
}

// RejectGroup marks the group rejected. Rejected groups stay in the
// review queue and remain re-approvable.
func (s *Store) RejectGroup(ctx context.Context, groupID uuid.UUID, rejectedBy, notes string) error {
	return s.transition(ctx, groupID, `
		UPDATE operation_groups
		SET status = $2, rejected_by = $3, admin_notes = COALESCE(NULLIF($4, ''), admin_notes)
		WHERE id = $1 AND status = ANY($5)
	`, groupID, store.GroupStatusRejected, rejectedBy, notes,
		pq.Array([]store.GroupStatus{store.GroupStatusPendingApproval, store.GroupStatusFailed}))
}

// CancelGroup cancels the group and cascades cancellation to its
// non-terminal operations.
func (s *Store) CancelGroup(ctx context.Context, groupID uuid.UUID, cancelledBy, notes string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE operation_groups
		SET status = $2, rejected_by = $3, admin_notes = COALESCE(NULLIF($4, ''), admin_notes), completed_at = NOW()
		WHERE id = $1 AND status = ANY($5)
	`, groupID, store.GroupStatusCancelled, cancelledBy, notes,
		pq.Array([]store.GroupStatus{
			store.GroupStatusDraft, store.GroupStatusPendingApproval,
			store.GroupStatusApproved, store.GroupStatusRejected,
		}))
	if err != nil {
		return fmt.Errorf("failed to cancel group %s: %w", groupID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var current store.GroupStatus
		err = tx.QueryRowContext(ctx, `SELECT status FROM operation_groups WHERE id = $1`, groupID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrGroupNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: group %s is %s", store.ErrInvalidTransition, groupID, current)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE operations SET status = $2, completed_at = NOW()
		WHERE group_id = $1 AND status = ANY($3)
	`, groupID, store.OperationStatusCancelled,
		pq.Array([]store.OperationStatus{store.OperationStatusDraft, store.OperationStatusQueued}))
	if err != nil {
		return fmt.Errorf("failed to cancel operations of group %s: %w", groupID, err)
	}

	return tx.Commit()
}

// GetGroup returns the group row only.
func (s *Store) GetGroup(ctx context.Context, groupID uuid.UUID) (*store.OperationGroup, error) {
	query := fmt.Sprintf(`SELECT %s FROM operation_groups WHERE id = $1`, groupColumns)
	group, err := scanGroup(s.db.QueryRowContext(ctx, query, groupID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", groupID, err)
	}
	return group, nil
}

// GetGroupWithOperations returns the group plus its operations ordered
// by execution_order ascending.
func (s *Store) GetGroupWithOperations(ctx context.Context, groupID uuid.UUID) (*store.OperationGroup, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	ops, err := s.listOperations(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load operations of group %s: %w", groupID, err)
	}
	group.Operations = ops
	return group, nil
}

// GetPendingGroups returns the admin review queue: groups pending
// approval plus rejected and failed ones, oldest approval request
// first.
func (s *Store) GetPendingGroups(ctx context.Context, limit, offset int) ([]store.OperationGroup, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT %s FROM operation_groups
		WHERE status = ANY($1)
		ORDER BY approval_requested_at ASC NULLS LAST, created_at ASC
		LIMIT $2 OFFSET $3
	`, groupColumns)

	rows, err := s.db.QueryContext(ctx, query,
		pq.Array([]store.GroupStatus{store.GroupStatusPendingApproval, store.GroupStatusRejected, store.GroupStatusFailed}),
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending groups: %w", err)
	}
	defer rows.Close()

	var groups []store.OperationGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending group: %w", err)
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

// ListApprovedGroups returns ids of groups ready for execution, oldest
// approval first.
func (s *Store) ListApprovedGroups(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM operation_groups
		WHERE status = $1
		ORDER BY approved_at ASC
		LIMIT $2
	`, store.GroupStatusApproved, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved groups: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountPendingGroups returns the size of the admin review queue.
func (s *Store) CountPendingGroups(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM operation_groups WHERE status = ANY($1)`,
		pq.Array([]store.GroupStatus{store.GroupStatusPendingApproval, store.GroupStatusRejected, store.GroupStatusFailed}),
	).Scan(&count)
	return count, err
}

// MarkGroupRunning flips approved -> running. The conditional update is
// the single-acquirer lock for batch execution: exactly one concurrent
// caller sees a row change, every other caller gets ErrAlreadyExecuting.
func (s *Store) MarkGroupRunning(ctx context.Context, groupID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE operation_groups SET status = $2, started_at = NOW()
		WHERE id = $1 AND status = $3
	`, groupID, store.GroupStatusRunning, store.GroupStatusApproved)
	if err != nil {
		return fmt.Errorf("failed to mark group %s running: %w", groupID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var current store.GroupStatus
	err = s.db.QueryRowContext(ctx, `SELECT status FROM operation_groups WHERE id = $1`, groupID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrGroupNotFound
	}
	if err != nil {
		return err
	}
	if current == store.GroupStatusRunning {
		return store.ErrAlreadyExecuting
	}
	return fmt.Errorf("%w: group %s is %s", store.ErrInvalidTransition, groupID, current)
}

// FinishGroup records the terminal outcome of a batch run.
func (s *Store) FinishGroup(ctx context.Context, groupID uuid.UUID, status store.GroupStatus) error {
	return s.transition(ctx, groupID, `
		UPDATE operation_groups SET status = $2, completed_at = NOW()
		WHERE id = $1 AND status = $3
	`, groupID, status, store.GroupStatusRunning)
}

// NextSequence atomically increments and returns the tenant's counter
// for the given scope, starting at 1.
func (s *Store) NextSequence(ctx context.Context, tenantID uuid.UUID, scope store.CounterScope) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tenant_counters (tenant_id, scope, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, scope) DO UPDATE SET value = tenant_counters.value + 1
		RETURNING value
	`, tenantID, scope).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to bump %s counter for tenant %s: %w", scope, tenantID, err)
	}
	return value, nil
}
