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

func TestExecuteCommand_PartialFailure(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/groups/group-123/execute" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"group_id":              "group-123",
			"status":                "failed",
			"total_operations":      2,
			"successful_operations": 1,
			"failed_operations":     1,
			"results": []map[string]string{
				{"operation_id": "op-1", "name": "BATCH1_CREATE_TABLE_USERS_a1b2", "status": "success"},
				{"operation_id": "op-2", "name": "BATCH2_CREATE_INDEX_USERS_c3d4", "status": "failed", "message": "create index payload requires a name"},
			},
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("admin_secret", "super-secret")
	viper.Set("admin_user", "alice")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"execute", "group-123"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "2 total, 1 succeeded, 1 failed") {
		t.Errorf("expected counts in output, got: %s", output)
	}
	if !strings.Contains(output, "create index payload requires a name") {
		t.Errorf("expected failure message in output, got: %s", output)
	}
}

func TestExecuteCommand_NotApproved(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "group is not approved"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("admin_secret", "super-secret")
	viper.Set("admin_user", "alice")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"execute", "group-123"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Error (409)") {
		t.Errorf("expected conflict error, got: %s", stdout.String())
	}
}
