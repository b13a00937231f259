package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"schemaplane/internal/store"
)

// GetCase returns the catalogue entry for a case id.
func (s *Store) GetCase(ctx context.Context, caseID string) (*store.OperationCase, error) {
	var c store.OperationCase
	err := s.db.QueryRowContext(ctx, `
		SELECT case_id, display_name, execution_mode, created_at
		FROM operation_cases WHERE case_id = $1
	`, caseID).Scan(&c.CaseID, &c.DisplayName, &c.ExecutionMode, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load case %s: %w", caseID, err)
	}
	return &c, nil
}
