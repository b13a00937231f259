package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"schemaplane/internal/auth"
	"schemaplane/internal/store"
	"schemaplane/pkg/api"
)

// CreateTenant handles POST /tenants (Admin Only).
// It generates a new API Key, hashes it for storage, and returns the raw key ONCE.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.SchemaName == "" {
		h.httpError(w, "Name and SchemaName are required", http.StatusBadRequest)
		return
	}

	// Generate a secure random API key (32 bytes)
	rawKeyBytes := make([]byte, 32)
	if _, err := rand.Read(rawKeyBytes); err != nil {
		h.httpError(w, "Entropy failure", http.StatusInternalServerError)
		return
	}
	apiKey := "sp_" + hex.EncodeToString(rawKeyBytes)

	hashedKey := auth.HashKey(apiKey)

	dsn := req.DatabaseDSN
	if dsn == "" && h.dsnTemplate != "" {
		dsn = strings.ReplaceAll(h.dsnTemplate, "{schema}", req.SchemaName)
	}

	tenant := &store.Tenant{
		ID:             uuid.New(),
		Name:           req.Name,
		SchemaName:     req.SchemaName,
		DatabaseDSN:    dsn,
		RateLimit:      10,
		RateLimitBurst: 20,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.store.CreateTenant(ctx, tenant, hashedKey); err != nil {
		h.httpError(w, "Failed to create tenant", http.StatusInternalServerError)
		return
	}

	// Return the Raw Key (This is the only time the user sees it)
	resp := api.CreateTenantResponse{
		ID:     tenant.ID.String(),
		Name:   tenant.Name,
		ApiKey: apiKey,
	}
	h.respondJson(w, http.StatusCreated, resp)
}
