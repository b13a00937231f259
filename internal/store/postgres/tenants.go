package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schemaplane/internal/store"
)

const tenantColumns = `id, name, schema_name, database_dsn, rate_limit, rate_limit_burst, created_at`

func scanTenant(row *sql.Row) (*store.Tenant, error) {
	var t store.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.SchemaName, &t.DatabaseDSN, &t.RateLimit, &t.RateLimitBurst, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTenant inserts a tenant row. Only the sha256 hash of the API
// key is stored; the plaintext key is returned to the caller once at
// creation time and never persisted.
func (s *Store) CreateTenant(ctx context.Context, tenant *store.Tenant, hashedKey string) error {
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, schema_name, database_dsn, api_key_hash, rate_limit, rate_limit_burst, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tenant.ID, tenant.Name, tenant.SchemaName, tenant.DatabaseDSN, hashedKey,
		tenant.RateLimit, tenant.RateLimitBurst, tenant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tenant %s: %w", tenant.Name, err)
	}
	return nil
}

// GetTenantByID returns a tenant by its ID.
func (s *Store) GetTenantByID(ctx context.Context, id uuid.UUID) (*store.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE id = $1`, tenantColumns)
	tenant, err := scanTenant(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant %s: %w", id, err)
	}
	return tenant, nil
}

// GetTenantByAPIKeyHash resolves the tenant for an authenticated request.
func (s *Store) GetTenantByAPIKeyHash(ctx context.Context, hash string) (*store.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE api_key_hash = $1`, tenantColumns)
	tenant, err := scanTenant(s.db.QueryRowContext(ctx, query, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant by api key: %w", err)
	}
	return tenant, nil
}
