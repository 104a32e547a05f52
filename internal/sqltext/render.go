// Package sqltext renders the INSERT, DELETE and SELECT statements used by the
// table engine. Output is deterministic plain text; nothing here touches a
// database.
//
// String literals are wrapped in single quotes and are not escaped. Values
// containing a quote character produce invalid SQL.
package sqltext

import (
	"strings"

	"github.com/JonMunkholm/dbpatch/internal/schema"
)

// Literal renders a value as a SQL literal: quoted for strings, bare for
// numbers and booleans.
func Literal(v schema.Value) string {
	if v.Type == schema.TypeString {
		return "'" + v.S + "'"
	}
	return v.String()
}

// Insert renders INSERT INTO table (c1,c2) VALUES (v1,v2);
func Insert(table string, columns []schema.Column, values []schema.Value) string {
	var b strings.Builder
	b.Grow(len("INSERT INTO  () VALUES ();") + len(table) + 16*len(columns))
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	writeNames(&b, columns)
	b.WriteString(") VALUES (")
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Literal(v))
	}
	b.WriteString(");")
	return b.String()
}

// Delete renders DELETE FROM table WHERE k1=v1 AND k2=v2;
func Delete(table string, keyColumns []schema.Column, keyValues []schema.Value) string {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE ")
	writeWhere(&b, keyColumns, keyValues)
	b.WriteByte(';')
	return b.String()
}

// Select renders SELECT c1,c2 FROM table WHERE k1=v1 AND k2=v2;
func Select(table string, columns, keyColumns []schema.Column, keyValues []schema.Value) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	writeNames(&b, columns)
	b.WriteString(" FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE ")
	writeWhere(&b, keyColumns, keyValues)
	b.WriteByte(';')
	return b.String()
}

// Max renders SELECT MAX(column) FROM table;
func Max(table, column string) string {
	return "SELECT MAX(" + column + ") FROM " + table + ";"
}

func writeNames(b *strings.Builder, columns []schema.Column) {
	for i, c := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.Name)
	}
}

func writeWhere(b *strings.Builder, columns []schema.Column, values []schema.Value) {
	for i, c := range columns {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(Literal(values[i]))
	}
}
