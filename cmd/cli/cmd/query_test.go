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

func TestQueryCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/queries" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var reqBody map[string]string
		json.NewDecoder(r.Body).Decode(&reqBody)
		if !strings.HasPrefix(reqBody["sql"], "SELECT") {
			t.Errorf("expected SELECT statement, got %q", reqBody["sql"])
		}

		email := "a@b.com"
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"columns":      []string{"id", "email"},
			"rows":         [][]*string{{ptr("1"), &email}, {ptr("2"), nil}},
			"executed_sql": "SELECT id, email FROM users LIMIT 1000",
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"query", "SELECT id, email FROM users"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "id\temail") {
		t.Errorf("expected column header, got: %s", output)
	}
	if !strings.Contains(output, "a@b.com") {
		t.Errorf("expected row value, got: %s", output)
	}
	if !strings.Contains(output, "NULL") {
		t.Errorf("expected NULL cell, got: %s", output)
	}
	if !strings.Contains(output, "2 row(s)") {
		t.Errorf("expected row count, got: %s", output)
	}
}

func ptr(s string) *string { return &s }

func TestQueryCommand_RejectedByGuard(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "only SELECT statements are allowed"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"query", "DROP TABLE users"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Error (400)") {
		t.Errorf("expected guard rejection, got: %s", stdout.String())
	}
}
