package sqlgen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Instant-mode kinds (SELECT/INSERT/UPDATE/DELETE) bypass the batch
// approval workflow but share the emitter's rendering rules so the
// recorded sql_preview always matches what ran.

// HasFilter reports whether a SELECT payload carries a filter. The
// naming allocator embeds a filter-presence marker in instant SELECT
// names.
func HasFilter(payload []byte) bool {
	var p SelectPayload
	if err := decode(payload, &p); err != nil {
		return false
	}
	return len(p.Filter) > 0
}

// renderFilter renders a conjunctive WHERE clause from a filter map.
// Keys are sorted so emission stays deterministic.
func renderFilter(filter map[string]json.RawMessage) string {
	if len(filter) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		val := renderLiteral(filter[k])
		if val == "NULL" {
			parts = append(parts, QuoteIdent(k)+" IS NULL")
		} else {
			parts = append(parts, QuoteIdent(k)+" = "+val)
		}
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func emitSelect(payload []byte, target string) (string, error) {
	var p SelectPayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	cols := "*"
	if len(p.Columns) > 0 {
		cols = quoteIdentList(p.Columns)
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s%s", cols, target, renderFilter(p.Filter))
	if p.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", p.Limit)
	}
	return stmt, nil
}

func emitInsert(payload []byte, target string) (string, error) {
	var p ValuesPayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	if len(p.Values) == 0 {
		return "", malformed("INSERT payload has no values")
	}
	keys := make([]string, 0, len(p.Values))
	for k := range p.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = renderLiteral(p.Values[k])
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		target, quoteIdentList(keys), strings.Join(vals, ", ")), nil
}

func emitUpdate(payload []byte, target string) (string, error) {
	var p UpdatePayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	if len(p.Values) == 0 {
		return "", malformed("UPDATE payload has no values")
	}
	if len(p.Filter) == 0 {
		return "", malformed("UPDATE payload requires a filter")
	}
	keys := make([]string, 0, len(p.Values))
	for k := range p.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, len(keys))
	for i, k := range keys {
		sets[i] = QuoteIdent(k) + " = " + renderLiteral(p.Values[k])
	}
	return fmt.Sprintf("UPDATE %s SET %s%s",
		target, strings.Join(sets, ", "), renderFilter(p.Filter)), nil
}

func emitDelete(payload []byte, target string) (string, error) {
	var p DeletePayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	if len(p.Filter) == 0 {
		return "", malformed("DELETE payload requires a filter")
	}
	return fmt.Sprintf("DELETE FROM %s%s", target, renderFilter(p.Filter)), nil
}
