package sqlgen

import "strings"

// typeFixups maps bare, under-specified column type tokens to a
// dialect-valid form. Tokens that already carry arguments (anything
// with a parenthesis) are never rewritten, which keeps FixupType
// idempotent.
var typeFixups = map[string]string{
	"VARCHAR": "VARCHAR(255)",
	"CHAR":    "CHAR(1)",
	"DECIMAL": "DECIMAL(10,2)",
	"NUMERIC": "DECIMAL(10,2)",
}

// bareTypes are recognized types that are valid without arguments and
// pass through unchanged.
var bareTypes = map[string]struct{}{
	"INT": {}, "INTEGER": {}, "BIGINT": {}, "SMALLINT": {},
	"TINYINT": {}, "MEDIUMINT": {},
	"FLOAT": {}, "DOUBLE": {},
	"DATE": {}, "DATETIME": {}, "TIMESTAMP": {}, "TIME": {}, "YEAR": {},
	"TEXT": {}, "TINYTEXT": {}, "MEDIUMTEXT": {}, "LONGTEXT": {},
	"BLOB": {}, "TINYBLOB": {}, "MEDIUMBLOB": {}, "LONGBLOB": {},
	"JSON": {},
	"BOOL": {}, "BOOLEAN": {},
}

// FixupType normalizes an under-specified column type token. Bare
// VARCHAR/CHAR/DECIMAL get their conventional default arguments;
// recognized bare types and anything unrecognized pass through as-is.
func FixupType(typ string) string {
	token := strings.TrimSpace(typ)
	if token == "" || strings.Contains(token, "(") {
		return typ
	}
	upper := strings.ToUpper(token)
	if fixed, ok := typeFixups[upper]; ok {
		return fixed
	}
	if _, ok := bareTypes[upper]; ok {
		return token
	}
	return typ
}
