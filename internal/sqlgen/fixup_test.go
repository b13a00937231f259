package sqlgen

import "testing"

func TestFixupType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"VARCHAR", "VARCHAR(255)"},
		{"varchar", "VARCHAR(255)"},
		{"CHAR", "CHAR(1)"},
		{"DECIMAL", "DECIMAL(10,2)"},
		{"NUMERIC", "DECIMAL(10,2)"},
		{"VARCHAR(64)", "VARCHAR(64)"},
		{"DECIMAL(8,4)", "DECIMAL(8,4)"},
		{"INT", "INT"},
		{"BIGINT", "BIGINT"},
		{"TEXT", "TEXT"},
		{"JSON", "JSON"},
		{"DATETIME", "DATETIME"},
		{"BOOLEAN", "BOOLEAN"},
		{"LONGBLOB", "LONGBLOB"},
		{"GEOMETRY", "GEOMETRY"}, // unrecognized passes through
		{"", ""},
	}

	for _, tt := range tests {
		if got := FixupType(tt.in); got != tt.want {
			t.Errorf("FixupType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Applying the normalization twice must yield the same result as
// applying it once, for every supported token and for arbitrary
// unrecognized input.
func TestFixupType_Idempotent(t *testing.T) {
	inputs := []string{
		"VARCHAR", "CHAR", "DECIMAL", "NUMERIC",
		"INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT",
		"FLOAT", "DOUBLE",
		"DATE", "DATETIME", "TIMESTAMP", "TIME", "YEAR",
		"TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT",
		"BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB",
		"JSON", "BOOL", "BOOLEAN",
		"varchar", "Varchar", "VARCHAR(100)", "ENUM('a','b')", "GEOMETRY", "POINT", "",
	}

	for _, in := range inputs {
		once := FixupType(in)
		twice := FixupType(once)
		if once != twice {
			t.Errorf("FixupType not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}
