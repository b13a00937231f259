// Package naming assigns collision-resistant names to operations.
// Batch names carry the tenant's monotonically increasing batch
// counter; instant names embed the operation's zero-padded record id.
package naming

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"schemaplane/internal/store"
)

// SequenceSource provides the per-tenant atomic counters backing batch
// and instant names. The counters replace the historical scan of
// existing BATCH<digits>_ names, which raced under concurrent
// submissions from the same tenant.
type SequenceSource interface {
	NextSequence(ctx context.Context, tenantID uuid.UUID, scope store.CounterScope) (int64, error)
}

// Allocator builds operation and group names.
type Allocator struct {
	sequences SequenceSource
	suffix    func() string
}

// New creates an Allocator backed by the given sequence source.
func New(sequences SequenceSource) *Allocator {
	return &Allocator{
		sequences: sequences,
		suffix:    randomSuffix,
	}
}

// randomSuffix returns a short hex token appended for collision
// resistance across tenants and retries.
func randomSuffix() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "000000"
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

// BatchName allocates the next BATCH<seq>_<ACTION>_<TABLE>_<SUFFIX>
// name for a tenant. The sequence starts at 1 for a tenant's first
// batch operation.
func (a *Allocator) BatchName(ctx context.Context, tenantID uuid.UUID, kind store.OperationKind, tableName string) (string, error) {
	seq, err := a.sequences.NextSequence(ctx, tenantID, store.CounterScopeBatch)
	if err != nil {
		return "", fmt.Errorf("allocate batch sequence for tenant %s: %w", tenantID, err)
	}
	return fmt.Sprintf("BATCH%d_%s_%s_%s", seq, actionToken(kind), tableToken(tableName), a.suffix()), nil
}

// InstantName builds an INSTANT_<zero-padded-id>_<ACTION>_<TABLE>_<SUFFIX>
// name. SELECT names additionally carry a filter-presence marker.
func (a *Allocator) InstantName(kind store.OperationKind, tableName string, recordID int64, hasFilter bool) string {
	parts := []string{
		"INSTANT",
		fmt.Sprintf("%015d", recordID),
		actionToken(kind),
		tableToken(tableName),
	}
	if kind == store.KindSelect {
		if hasFilter {
			parts = append(parts, "FILTERED")
		} else {
			parts = append(parts, "UNFILTERED")
		}
	}
	parts = append(parts, a.suffix())
	return strings.Join(parts, "_")
}

// DraftGroupName auto-names a draft group created implicitly by the
// first operation submitted for a tenant+case.
func DraftGroupName(kind store.OperationKind, tableName string, unixSeconds int64) string {
	return fmt.Sprintf("BATCH_%s_%s_%d", actionToken(kind), tableToken(tableName), unixSeconds)
}

func actionToken(kind store.OperationKind) string {
	return string(kind)
}

func tableToken(tableName string) string {
	token := strings.ToUpper(strings.TrimSpace(tableName))
	token = strings.ReplaceAll(token, ".", "_")
	token = strings.ReplaceAll(token, " ", "_")
	if token == "" {
		token = "UNKNOWN"
	}
	return token
}
