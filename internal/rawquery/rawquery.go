// Package rawquery validates ad hoc read-only queries before they run
// against a tenant database. The guard is a static allow-list: a query
// passes only when it is a single SELECT statement with none of the
// constructs that could write, lock, or exfiltrate.
package rawquery

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotSelect      = errors.New("only SELECT statements are allowed")
	ErrMultiStatement = errors.New("multiple statements are not allowed")
	ErrForbidden      = errors.New("query uses a forbidden construct")
)

// DefaultLimit is appended to queries that carry no LIMIT clause.
const DefaultLimit = 1000

// Statement-head keywords that are never allowed. Checked after comment
// stripping so "/* */DROP" does not slip through.
var writeKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "REPLACE": true,
	"CREATE": true, "ALTER": true, "DROP": true, "TRUNCATE": true,
	"RENAME": true, "GRANT": true, "REVOKE": true, "SET": true,
	"LOAD": true, "CALL": true, "LOCK": true, "UNLOCK": true,
	"USE": true, "SHOW": true, "HANDLER": true, "PREPARE": true,
	"EXECUTE": true, "KILL": true, "SHUTDOWN": true,
}

// Functions rejected anywhere in the statement. SLEEP and BENCHMARK
// enable timing abuse; LOAD_FILE reads server-side files.
var forbiddenFunctions = []string{"SLEEP", "BENCHMARK", "LOAD_FILE"}

// Token sequences rejected anywhere in the statement.
var forbiddenSequences = [][]string{
	{"INTO", "OUTFILE"},
	{"INTO", "DUMPFILE"},
	{"FOR", "UPDATE"},
	{"FOR", "SHARE"},
	{"LOCK", "IN", "SHARE", "MODE"},
}

// Validate checks that sql is a single read-only SELECT. It returns nil
// when the query may run, or a wrapped sentinel error naming what was
// rejected.
func Validate(sql string) error {
	tokens, err := tokenize(sql)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("%w: empty query", ErrNotSelect)
	}

	head := strings.ToUpper(tokens[0])
	if writeKeywords[head] {
		return fmt.Errorf("%w: statement starts with %s", ErrNotSelect, head)
	}
	if head != "SELECT" {
		return fmt.Errorf("%w: statement starts with %s", ErrNotSelect, head)
	}

	upper := make([]string, len(tokens))
	for i, tok := range tokens {
		upper[i] = strings.ToUpper(tok)
	}

	for _, fn := range forbiddenFunctions {
		for _, tok := range upper {
			if tok == fn {
				return fmt.Errorf("%w: %s", ErrForbidden, fn)
			}
		}
	}

	for _, seq := range forbiddenSequences {
		if containsSequence(upper, seq) {
			return fmt.Errorf("%w: %s", ErrForbidden, strings.Join(seq, " "))
		}
	}

	return nil
}

// EnsureLimit returns the query with a LIMIT clause, appending
// "LIMIT n" when the statement has none. The query must already have
// passed Validate.
func EnsureLimit(sql string, n int) string {
	if n <= 0 {
		n = DefaultLimit
	}
	tokens, err := tokenize(sql)
	if err != nil {
		return sql
	}
	for _, tok := range tokens {
		if strings.EqualFold(tok, "LIMIT") {
			return sql
		}
	}
	trimmed := strings.TrimRight(strings.TrimSpace(sql), ";")
	return fmt.Sprintf("%s LIMIT %d", trimmed, n)
}

func containsSequence(tokens []string, seq []string) bool {
	for i := 0; i+len(seq) <= len(tokens); i++ {
		match := true
		for j, want := range seq {
			if tokens[i+j] != want {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// tokenize splits a statement into word and punctuation tokens. String
// literals and quoted identifiers collapse to single opaque tokens,
// comments disappear entirely, and a semicolon followed by anything but
// trailing whitespace is a multi-statement error.
func tokenize(sql string) ([]string, error) {
	var tokens []string
	i := 0
	n := len(sql)
	sawStatementEnd := false

	appendToken := func(tok string) error {
		if sawStatementEnd {
			return ErrMultiStatement
		}
		tokens = append(tokens, tok)
		return nil
	}

	for i < n {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == ';':
			sawStatementEnd = true
			i++

		case c == '\'' || c == '"' || c == '`':
			end, err := scanQuoted(sql, i, c)
			if err != nil {
				return nil, err
			}
			if err := appendToken(sql[i:end]); err != nil {
				return nil, err
			}
			i = end

		case c == '-' && i+1 < n && sql[i+1] == '-':
			for i < n && sql[i] != '\n' {
				i++
			}

		case c == '#':
			for i < n && sql[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < n && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated comment", ErrForbidden)
			}
			i += end + 4

		case isWordByte(c):
			start := i
			for i < n && isWordByte(sql[i]) {
				i++
			}
			if err := appendToken(sql[start:i]); err != nil {
				return nil, err
			}

		default:
			if err := appendToken(string(c)); err != nil {
				return nil, err
			}
			i++
		}
	}

	return tokens, nil
}

// scanQuoted returns the index just past the closing quote, honouring
// backslash escapes and doubled quotes.
func scanQuoted(sql string, start int, quote byte) (int, error) {
	i := start + 1
	n := len(sql)
	for i < n {
		switch sql[i] {
		case '\\':
			if quote != '`' {
				i += 2
				continue
			}
			i++
		case quote:
			if i+1 < n && sql[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, nil
		default:
			i++
		}
	}
	return 0, fmt.Errorf("%w: unterminated string literal", ErrForbidden)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
