package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestPendingCommand_ListsQueue(t *testing.T) {
	resetViper()

	now := time.Now().UTC()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/groups/pending" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "10" {
			t.Errorf("expected limit=10, got %s", r.URL.Query().Get("limit"))
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"groups": []map[string]interface{}{
				{
					"id":          "group-1",
					"tenant_id":   "tenant-1",
					"case_id":     "default",
					"name":        "DRAFT_ALTER_TABLE_orders_1756500000",
					"description": "drop legacy column",
					"status":      "pending_approval",
					"created_at":  now,
				},
				{
					"id":         "group-2",
					"tenant_id":  "tenant-2",
					"case_id":    "default",
					"name":       "DRAFT_CREATE_TABLE_users_1756500100",
					"status":     "failed",
					"created_at": now,
				},
			},
			"limit":  10,
			"offset": 0,
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("admin_secret", "super-secret")
	viper.Set("admin_user", "alice")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"pending", "--limit", "10"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "group-1") || !strings.Contains(output, "group-2") {
		t.Errorf("expected both groups in output, got: %s", output)
	}
	if !strings.Contains(output, "drop legacy column") {
		t.Errorf("expected description in output, got: %s", output)
	}
	if !strings.Contains(output, "2 group(s)") {
		t.Errorf("expected count line, got: %s", output)
	}
}

func TestPendingCommand_EmptyQueue(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"groups": []interface{}{},
			"limit":  20,
			"offset": 0,
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("admin_secret", "super-secret")
	viper.Set("admin_user", "alice")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"pending"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Review queue is empty") {
		t.Errorf("expected empty queue message, got: %s", stdout.String())
	}
}
