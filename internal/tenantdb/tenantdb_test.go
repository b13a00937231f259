package tenantdb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"schemaplane/internal/store"
)

func TestPool_MissingDSN(t *testing.T) {
	p := NewPool(0)
	defer p.Close()

	tenant := &store.Tenant{ID: uuid.New()}

	if _, err := p.get(tenant); err == nil {
		t.Error("expected error for tenant without a DSN")
	}
	if _, err := p.Exec(context.Background(), tenant, "SELECT 1"); err == nil {
		t.Error("expected Exec to fail for tenant without a DSN")
	}
	if _, _, err := p.Query(context.Background(), tenant, "SELECT 1"); err == nil {
		t.Error("expected Query to fail for tenant without a DSN")
	}
}

func TestPool_ReusesConnectionPerDSN(t *testing.T) {
	p := NewPool(0)
	defer p.Close()

	tenant := &store.Tenant{
		ID:          uuid.New(),
		DatabaseDSN: "user:pass@tcp(localhost:3306)/acme_prod",
	}

	// sql.Open does not dial, so cached handles can be compared without
	// a reachable server.
	first, err := p.get(tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.get(tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Error("expected the same *sql.DB for the same DSN")
	}

	other := &store.Tenant{
		ID:          uuid.New(),
		DatabaseDSN: "user:pass@tcp(localhost:3306)/other_schema",
	}
	third, err := p.get(other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third == first {
		t.Error("expected a distinct *sql.DB for a different DSN")
	}
}

func TestPool_CloseEmptiesCache(t *testing.T) {
	p := NewPool(0)

	tenant := &store.Tenant{
		ID:          uuid.New(),
		DatabaseDSN: "user:pass@tcp(localhost:3306)/acme_prod",
	}
	if _, err := p.get(tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if len(p.conns) != 0 {
		t.Errorf("expected empty cache after Close, got %d entries", len(p.conns))
	}
}

func TestPool_WithTimeout(t *testing.T) {
	p := NewPool(50 * time.Millisecond)
	defer p.Close()

	ctx, cancel := p.withTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("deadline too far in the future: %v", deadline)
	}

	unbounded := NewPool(0)
	defer unbounded.Close()
	ctx2, cancel2 := unbounded.withTimeout(context.Background())
	defer cancel2()
	if _, ok := ctx2.Deadline(); ok {
		t.Error("expected no deadline when statement timeout is zero")
	}
}
