package sqlgen

import (
	"errors"
	"testing"

	"schemaplane/internal/store"
)

func TestEmitSelect(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			"all columns no filter",
			`{}`,
			"SELECT * FROM `users`",
		},
		{
			"columns with filter and limit",
			`{"columns": ["id", "email"], "filter": {"active": true}, "limit": 50}`,
			"SELECT `id`, `email` FROM `users` WHERE `active` = true LIMIT 50",
		},
		{
			"null filter becomes IS NULL",
			`{"filter": {"deleted_at": null}}`,
			"SELECT * FROM `users` WHERE `deleted_at` IS NULL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Emit(store.KindSelect, []byte(tt.payload), "users", "")
			if err != nil {
				t.Fatalf("Emit failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmitInsert(t *testing.T) {
	payload := []byte(`{"values": {"name": "ada", "age": 36}}`)
	got, err := Emit(store.KindInsert, payload, "people", "")
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	want := "INSERT INTO `people` (`age`, `name`) VALUES (36, 'ada')"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEmitUpdate_RequiresFilter(t *testing.T) {
	_, err := Emit(store.KindUpdate, []byte(`{"values": {"name": "x"}}`), "people", "")
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestEmitUpdate(t *testing.T) {
	payload := []byte(`{"values": {"name": "ada"}, "filter": {"id": 7}}`)
	got, err := Emit(store.KindUpdate, payload, "people", "")
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	want := "UPDATE `people` SET `name` = 'ada' WHERE `id` = 7"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEmitDelete_RequiresFilter(t *testing.T) {
	_, err := Emit(store.KindDelete, []byte(`{}`), "people", "")
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestHasFilter(t *testing.T) {
	if HasFilter([]byte(`{}`)) {
		t.Error("empty payload should have no filter")
	}
	if !HasFilter([]byte(`{"filter": {"id": 1}}`)) {
		t.Error("filter not detected")
	}
	if !HasFilter([]byte(`{"payload": {"filter": {"id": 1}}}`)) {
		t.Error("filter not detected through double-wrapped payload")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"flat stays flat", `{"columns": []}`, `{"columns": []}`},
		{"single wrap removed", `{"payload": {"columns": []}}`, `{"columns": []}`},
		{"payload plus siblings stays", `{"payload": {"x": 1}, "columns": []}`, `{"payload": {"x": 1}, "columns": []}`},
		{"non-object payload stays", `{"payload": "text"}`, `{"payload": "text"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Normalize([]byte(tt.in)))
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
