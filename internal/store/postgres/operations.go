package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schemaplane/internal/store"
)

const operationColumns = `id, group_id, tenant_id, case_id, kind, name, schema_name, table_name,
	payload, sql_preview, status, execution_order, result, error_message,
	created_at, started_at, completed_at`

func (s *Store) listOperations(ctx context.Context, groupID uuid.UUID) ([]store.Operation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM operations
		WHERE group_id = $1
		ORDER BY execution_order ASC
	`, operationColumns)

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []store.Operation
	for rows.Next() {
		var op store.Operation
		var payload []byte
		err := rows.Scan(
			&op.ID, &op.GroupID, &op.TenantID, &op.CaseID, &op.Kind, &op.Name,
			&op.SchemaName, &op.TableName, &payload, &op.SQLPreview, &op.Status,
			&op.ExecutionOrder, &op.Result, &op.ErrorMessage,
			&op.CreatedAt, &op.StartedAt, &op.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		op.Payload = payload
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// MarkOperationRunning stamps an operation as running.
func (s *Store) MarkOperationRunning(ctx context.Context, opID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE operations SET status = $2, started_at = NOW()
		WHERE id = $1
	`, opID, store.OperationStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark operation %s running: %w", opID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrOperationNotFound
	}
	return nil
}

// FinishOperation records an operation outcome. The rendered SQL
// replaces the preview when non-empty so the stored row reflects what
// actually ran.
func (s *Store) FinishOperation(ctx context.Context, opID uuid.UUID, status store.OperationStatus, renderedSQL string, result, errMsg *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE operations
		SET status = $2,
		    sql_preview = CASE WHEN $3 <> '' THEN $3 ELSE sql_preview END,
		    result = $4,
		    error_message = $5,
		    completed_at = NOW()
		WHERE id = $1
	`, opID, status, renderedSQL, result, errMsg)
	if err != nil {
		return fmt.Errorf("failed to finish operation %s: %w", opID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrOperationNotFound
	}
	return nil
}

// RecordInstantOperation persists an instant-mode operation together
// with its outcome. Instant operations have no group; group_id is
// stored as NULL.
func (s *Store) RecordInstantOperation(ctx context.Context, op *store.Operation) error {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	var groupID interface{}
	if op.GroupID != uuid.Nil {
		groupID = op.GroupID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (id, group_id, tenant_id, case_id, kind, name, schema_name, table_name,
			payload, sql_preview, status, execution_order, result, error_message,
			created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		op.ID, groupID, op.TenantID, op.CaseID, op.Kind, op.Name, op.SchemaName, op.TableName,
		[]byte(op.Payload), op.SQLPreview, op.Status, op.ExecutionOrder,
		op.Result, op.ErrorMessage, op.CreatedAt, op.StartedAt, op.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record instant operation %s: %w", op.ID, err)
	}
	return nil
}
