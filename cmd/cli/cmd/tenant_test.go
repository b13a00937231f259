package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestTenantCreateCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tenants" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		// Tenant creation is the bootstrap call; no API key yet.
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no auth header, got: %s", r.Header.Get("Authorization"))
		}

		var reqBody map[string]interface{}
		json.NewDecoder(r.Body).Decode(&reqBody)
		if reqBody["name"] != "acme" {
			t.Errorf("expected name=acme, got %v", reqBody["name"])
		}
		if reqBody["schema_name"] != "acme_prod" {
			t.Errorf("expected schema_name=acme_prod, got %v", reqBody["schema_name"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"tenant_id": "tenant-123",
			"name":      "acme",
			"api_key":   "sp_abcdef",
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"tenant", "create", "--name", "acme", "--schema", "acme_prod"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Tenant created") {
		t.Errorf("expected success message, got: %s", output)
	}
	if !strings.Contains(output, "sp_abcdef") {
		t.Errorf("expected API key in output, got: %s", output)
	}
	if !strings.Contains(output, "not be shown again") {
		t.Errorf("expected one-time key warning, got: %s", output)
	}
}

func TestTenantCreateCommand_MissingSchema(t *testing.T) {
	resetViper()

	viper.Set("url", "http://localhost:6161")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"tenant", "create", "--name", "acme", "--schema", ""})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "--schema is required") {
		t.Errorf("expected schema validation message, got: %s", stdout.String())
	}
}
