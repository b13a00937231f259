package sqlgen

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when a payload is missing a key the
// operation kind requires. The executor records it as the operation's
// failure message; it never aborts the batch.
var ErrMalformedPayload = errors.New("malformed operation payload")

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

// ColumnSpec describes one column in a CREATE TABLE or ALTER TABLE
// payload.
type ColumnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	// Default distinguishes "absent" (nil) from an explicit JSON null
	// (rendered as DEFAULT NULL).
	Default       json.RawMessage `json:"default"`
	AutoIncrement bool            `json:"auto_increment"`
	PrimaryKey    bool            `json:"primary_key"`
}

// CreateTablePayload is the payload shape for CREATE_TABLE.
type CreateTablePayload struct {
	Columns []ColumnSpec `json:"columns"`
	Engine  string       `json:"engine"`
}

// AlterTablePayload is the payload shape for ALTER_TABLE. Exactly one
// of the three members must be set: one ALTER operation changes one
// column.
type AlterTablePayload struct {
	AddColumn    *ColumnSpec `json:"add_column"`
	ModifyColumn *ColumnSpec `json:"modify_column"`
	DropColumn   *ColumnRef  `json:"drop_column"`
}

// ColumnRef names an existing column.
type ColumnRef struct {
	Name string `json:"name"`
}

// CreateIndexPayload is the payload shape for CREATE_INDEX.
type CreateIndexPayload struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Type    string   `json:"type"`
}

// DropIndexPayload is the payload shape for DROP_INDEX.
type DropIndexPayload struct {
	IndexName string `json:"index_name"`
}

// ForeignKeyPayload is the payload shape for ADD_FOREIGN_KEY.
type ForeignKeyPayload struct {
	ConstraintName   string `json:"constraint_name"`
	Column           string `json:"column"`
	ReferencesTable  string `json:"references_table"`
	ReferencesColumn string `json:"references_column"`
	OnDelete         string `json:"on_delete"`
	OnUpdate         string `json:"on_update"`
}

// DropForeignKeyPayload is the payload shape for DROP_FOREIGN_KEY.
type DropForeignKeyPayload struct {
	ConstraintName string `json:"constraint_name"`
}

// SelectPayload is the payload shape for instant-mode SELECT.
type SelectPayload struct {
	Columns []string                   `json:"columns"`
	Filter  map[string]json.RawMessage `json:"filter"`
	Limit   int                        `json:"limit"`
}

// ValuesPayload is the payload shape for instant-mode INSERT.
type ValuesPayload struct {
	Values map[string]json.RawMessage `json:"values"`
}

// UpdatePayload is the payload shape for instant-mode UPDATE.
type UpdatePayload struct {
	Values map[string]json.RawMessage `json:"values"`
	Filter map[string]json.RawMessage `json:"filter"`
}

// DeletePayload is the payload shape for instant-mode DELETE.
type DeletePayload struct {
	Filter map[string]json.RawMessage `json:"filter"`
}

// Normalize applies the single canonical unwrap for the historical
// double-wrapped payload shape ({"payload": {...}}). Older clients
// wrapped the payload a second time on the creation path; everything
// downstream of this function sees the flat shape only.
func Normalize(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return raw
	}
	inner, ok := outer["payload"]
	if !ok || len(outer) != 1 {
		return raw
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(inner, &probe); err != nil {
		return raw
	}
	return inner
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return malformed("empty payload")
	}
	if err := json.Unmarshal(Normalize(raw), v); err != nil {
		return malformed("decode: %v", err)
	}
	return nil
}
