// Package sqlgen renders structured operation payloads into executable
// MySQL DDL/DML text. Emission is a pure function of (kind, payload,
// table, schema): no I/O, deterministic output.
package sqlgen

import (
	"fmt"
	"strings"

	"schemaplane/internal/store"
)

// Emit renders the statement for an operation kind. Missing required
// payload keys surface as ErrMalformedPayload before anything reaches
// a database.
func Emit(kind store.OperationKind, payload []byte, tableName, schemaName string) (string, error) {
	if tableName == "" {
		return "", malformed("table name required for %s", kind)
	}
	target := QuoteQualified(schemaName, tableName)

	switch kind {
	case store.KindCreateTable:
		return emitCreateTable(payload, target)
	case store.KindAlterTable:
		return emitAlterTable(payload, target)
	case store.KindDropTable:
		return "DROP TABLE " + target, nil
	case store.KindCreateIndex:
		return emitCreateIndex(payload, target)
	case store.KindDropIndex:
		return emitDropIndex(payload, target)
	case store.KindAddForeignKey:
		return emitAddForeignKey(payload, target, tableName)
	case store.KindDropForeignKey:
		return emitDropForeignKey(payload, target)
	case store.KindSelect:
		return emitSelect(payload, target)
	case store.KindInsert:
		return emitInsert(payload, target)
	case store.KindUpdate:
		return emitUpdate(payload, target)
	case store.KindDelete:
		return emitDelete(payload, target)
	default:
		return "", malformed("unsupported operation kind %q", kind)
	}
}

// renderColumn renders one column definition. Shared by CREATE TABLE
// and the ALTER TABLE add/modify branches.
func renderColumn(col ColumnSpec) (string, error) {
	if col.Name == "" {
		return "", malformed("column spec missing name")
	}
	if col.Type == "" {
		return "", malformed("column %q missing type", col.Name)
	}
	var b strings.Builder
	b.WriteString(QuoteIdent(col.Name))
	b.WriteByte(' ')
	b.WriteString(FixupType(col.Type))
	if col.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(renderLiteral(col.Default))
	}
	if col.AutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	return b.String(), nil
}

func emitCreateTable(payload []byte, target string) (string, error) {
	var p CreateTablePayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	if len(p.Columns) == 0 {
		return "", malformed("CREATE_TABLE payload has no columns")
	}

	lines := make([]string, 0, len(p.Columns)+1)
	var primaryKeys []string
	for _, col := range p.Columns {
		def, err := renderColumn(col)
		if err != nil {
			return "", err
		}
		lines = append(lines, "  "+def)
		if col.PrimaryKey {
			primaryKeys = append(primaryKeys, col.Name)
		}
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(target)
	b.WriteString(" (\n")
	b.WriteString(strings.Join(lines, ",\n"))
	if len(primaryKeys) > 0 {
		b.WriteString(",\nPRIMARY KEY (")
		b.WriteString(quoteIdentList(primaryKeys))
		b.WriteString(")")
	}
	b.WriteString("\n)")
	if p.Engine != "" {
		b.WriteString(" ENGINE=")
		b.WriteString(p.Engine)
	}
	return b.String(), nil
}

func emitAlterTable(payload []byte, target string) (string, error) {
	var p AlterTablePayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}

	set := 0
	if p.AddColumn != nil {
		set++
	}
	if p.ModifyColumn != nil {
		set++
	}
	if p.DropColumn != nil {
		set++
	}
	if set == 0 {
		return "", malformed("ALTER_TABLE payload has no column change")
	}
	if set > 1 {
		return "", malformed("ALTER_TABLE payload must contain exactly one column change")
	}

	switch {
	case p.AddColumn != nil:
		def, err := renderColumn(*p.AddColumn)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", target, def), nil
	case p.ModifyColumn != nil:
		def, err := renderColumn(*p.ModifyColumn)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", target, def), nil
	default:
		if p.DropColumn.Name == "" {
			return "", malformed("drop_column missing name")
		}
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", target, QuoteIdent(p.DropColumn.Name)), nil
	}
}

// indexTypes maps recognized index type tokens to their CREATE syntax.
var indexTypes = map[string]string{
	"INDEX":    "INDEX",
	"UNIQUE":   "UNIQUE INDEX",
	"FULLTEXT": "FULLTEXT INDEX",
	"SPATIAL":  "SPATIAL INDEX",
}

func emitCreateIndex(payload []byte, target string) (string, error) {
	var p CreateIndexPayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	if p.Name == "" {
		return "", malformed("CREATE_INDEX payload missing name")
	}
	if len(p.Columns) == 0 {
		return "", malformed("CREATE_INDEX payload has no columns")
	}
	typ := strings.ToUpper(strings.TrimSpace(p.Type))
	if typ == "" {
		typ = "INDEX"
	}
	syntax, ok := indexTypes[typ]
	if !ok {
		return "", malformed("unrecognized index type %q", p.Type)
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)",
		syntax, QuoteIdent(p.Name), target, quoteIdentList(p.Columns)), nil
}

func emitDropIndex(payload []byte, target string) (string, error) {
	var p DropIndexPayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	if p.IndexName == "" {
		return "", malformed("DROP_INDEX payload missing index_name")
	}
	return fmt.Sprintf("DROP INDEX %s ON %s", QuoteIdent(p.IndexName), target), nil
}

func emitAddForeignKey(payload []byte, target, tableName string) (string, error) {
	var p ForeignKeyPayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	if p.Column == "" || p.ReferencesTable == "" || p.ReferencesColumn == "" {
		return "", malformed("ADD_FOREIGN_KEY payload requires column, references_table and references_column")
	}
	name := p.ConstraintName
	if name == "" {
		name = "fk_" + tableName
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		target, QuoteIdent(name), QuoteIdent(p.Column),
		QuoteIdent(p.ReferencesTable), QuoteIdent(p.ReferencesColumn))
	if p.OnDelete != "" {
		b.WriteString(" ON DELETE ")
		b.WriteString(p.OnDelete)
	}
	if p.OnUpdate != "" {
		b.WriteString(" ON UPDATE ")
		b.WriteString(p.OnUpdate)
	}
	return b.String(), nil
}

func emitDropForeignKey(payload []byte, target string) (string, error) {
	var p DropForeignKeyPayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	if p.ConstraintName == "" {
		return "", malformed("DROP_FOREIGN_KEY payload missing constraint_name")
	}
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", target, QuoteIdent(p.ConstraintName)), nil
}
