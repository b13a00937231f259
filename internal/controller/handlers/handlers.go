// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"schemaplane/internal/logger"
	"schemaplane/internal/naming"
	"schemaplane/internal/store"
	"schemaplane/pkg/api"
)

// Store combines the persistence interfaces the controller needs.
type Store interface {
	Ping(ctx context.Context) error
	store.TenantStore
	store.CaseStore
	store.GroupStore
}

// Runner executes batches and instant operations.
type Runner interface {
	ExecuteBatch(ctx context.Context, groupID uuid.UUID) (*store.BatchResult, error)
	ExecuteInstant(ctx context.Context, tenant *store.Tenant, op *store.Operation) error
}

// Database is the read side of the tenant execution port, used by the
// raw query endpoint.
type Database interface {
	Query(ctx context.Context, tenant *store.Tenant, query string) ([]string, [][]*string, error)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store       Store
	runner      Runner
	db          Database
	names       *naming.Allocator
	dsnTemplate string
	logger      *slog.Logger
}

// New creates a new Handlers instance. dsnTemplate is the fallback DSN
// for tenants created without one; "{schema}" in it is replaced with
// the tenant's schema name. Empty disables the fallback.
func New(s Store, runner Runner, db Database, dsnTemplate string, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:       s,
		runner:      runner,
		db:          db,
		names:       naming.New(s),
		dsnTemplate: dsnTemplate,
		logger:      logger,
	}
}

// log returns the handler logger with the request's correlation ID attached.
func (h *Handlers) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, h.logger)
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
