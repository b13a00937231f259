package sqlgen

import (
	"encoding/json"
	"strings"
)

// Quoting is centralized here so every emitter branch goes through one
// audited choke point. DDL statements cannot be parameterized by the
// driver, so the emitter builds literal SQL text; payloads are trusted
// to have passed upstream validation and quoting is the only defense
// applied.

// QuoteIdent wraps an identifier in backticks, doubling any embedded
// backtick.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteQualified renders schema.table with both parts quoted. An empty
// schema yields the bare quoted table name.
func QuoteQualified(schema, table string) string {
	if schema == "" {
		return QuoteIdent(table)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(table)
}

// QuoteString renders a string literal, doubling single quotes and
// escaping backslashes for MySQL.
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return "'" + s + "'"
}

// renderLiteral turns a raw JSON value into a SQL literal: strings are
// quoted, null becomes NULL, numbers and booleans pass through
// unquoted.
func renderLiteral(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "NULL"
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return QuoteString(s)
		}
	}
	return trimmed
}

// quoteIdentList quotes each name and joins with ", ".
func quoteIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
