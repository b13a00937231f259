// Package tenantdb manages connections to tenant target databases.
// Control-plane state lives in PostgreSQL; the DDL and DML the engine
// emits runs over these MySQL connections instead.
package tenantdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"schemaplane/internal/store"
)

// Pool caches one *sql.DB per tenant DSN. Pools are small on purpose:
// statements run strictly sequentially within a batch, so a couple of
// connections per tenant is enough.
type Pool struct {
	statementTimeout time.Duration

	mu    sync.Mutex
	conns map[string]*sql.DB
}

// NewPool creates a connection pool manager. statementTimeout bounds
// every statement run through the pool; zero disables the bound.
func NewPool(statementTimeout time.Duration) *Pool {
	return &Pool{
		statementTimeout: statementTimeout,
		conns:            make(map[string]*sql.DB),
	}
}

func (p *Pool) get(tenant *store.Tenant) (*sql.DB, error) {
	if tenant.DatabaseDSN == "" {
		return nil, fmt.Errorf("tenant %s has no target database configured", tenant.ID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if db, ok := p.conns[tenant.DatabaseDSN]; ok {
		return db, nil
	}

	db, err := sql.Open("mysql", tenant.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open target database for tenant %s: %w", tenant.ID, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	p.conns[tenant.DatabaseDSN] = db
	return db, nil
}

func (p *Pool) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.statementTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.statementTimeout)
}

// Exec runs a single statement on the tenant's target database and
// returns the affected row count. DDL statements report zero rows on
// most MySQL versions; callers treat the count as informational.
func (p *Pool) Exec(ctx context.Context, tenant *store.Tenant, query string) (int64, error) {
	db, err := p.get(tenant)
	if err != nil {
		return 0, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	res, err := db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

// Query runs a read statement and materializes the result. Every cell
// comes back as a nullable string; the caller does not know column
// types ahead of time.
func (p *Pool) Query(ctx context.Context, tenant *store.Tenant, query string) ([]string, [][]*string, error) {
	db, err := p.get(tenant)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var result [][]*string
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range cells {
			scanTargets[i] = &cells[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, err
		}

		row := make([]*string, len(columns))
		for i, cell := range cells {
			if cell.Valid {
				v := cell.String
				row[i] = &v
			}
		}
		result = append(result, row)
	}
	return columns, result, rows.Err()
}

// Ping verifies the tenant's target database is reachable.
func (p *Pool) Ping(ctx context.Context, tenant *store.Tenant) error {
	db, err := p.get(tenant)
	if err != nil {
		return err
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return db.PingContext(ctx)
}

// Close releases every cached connection pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for dsn, db := range p.conns {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.conns, dsn)
	}
	return firstErr
}
