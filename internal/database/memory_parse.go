package database

import (
	"fmt"
	"strings"
)

type stmtKind int

const (
	stmtInsert stmtKind = iota
	stmtDelete
	stmtSelect
	stmtMax
)

// predicate is one column=literal term of a WHERE clause.
type predicate struct {
	column  string
	literal string
}

// memStmt is a parsed statement. Literals stay raw until the target column's
// type is known.
type memStmt struct {
	kind    stmtKind
	table   string
	columns []string // INSERT target columns, SELECT projection, or the MAX column
	values  []string // INSERT literals
	where   []predicate
}

// parseStatement parses the subset of SQL the table engine emits:
//
//	INSERT INTO t (a,b) VALUES (1,'x');
//	DELETE FROM t WHERE a=1 AND b='x';
//	SELECT a,b FROM t WHERE a=1;
//	SELECT MAX(a) FROM t;
func parseStatement(query string) (*memStmt, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}

	tokens := strings.Fields(strings.ToUpper(q))
	switch tokens[0] {
	case "INSERT":
		return parseInsert(q)
	case "DELETE":
		return parseDelete(q)
	case "SELECT":
		return parseSelect(q)
	default:
		return nil, fmt.Errorf("syntax error: unsupported statement %q", tokens[0])
	}
}

func parseInsert(q string) (*memStmt, error) {
	if !hasPrefixFold(q, "INSERT INTO ") {
		return nil, fmt.Errorf("INSERT: expected INSERT INTO")
	}
	rest := strings.TrimSpace(q[len("INSERT INTO "):])

	open := strings.Index(rest, "(")
	if open == -1 {
		return nil, fmt.Errorf("INSERT: column list required")
	}
	table := strings.TrimSpace(rest[:open])
	if table == "" {
		return nil, fmt.Errorf("INSERT: missing table name")
	}

	closeCols := strings.Index(rest, ")")
	if closeCols < open {
		return nil, fmt.Errorf("INSERT: missing ')' after column list")
	}
	columns := splitOutsideQuotes(rest[open+1:closeCols], ",")

	after := strings.TrimSpace(rest[closeCols+1:])
	if !hasPrefixFold(after, "VALUES") {
		return nil, fmt.Errorf("INSERT: missing VALUES")
	}
	vals := strings.TrimSpace(after[len("VALUES"):])
	if !strings.HasPrefix(vals, "(") || !strings.HasSuffix(vals, ")") {
		return nil, fmt.Errorf("INSERT: VALUES list must be parenthesised")
	}
	values := splitOutsideQuotes(vals[1:len(vals)-1], ",")

	if len(columns) != len(values) {
		return nil, fmt.Errorf("INSERT has %d target columns but %d expressions", len(columns), len(values))
	}

	return &memStmt{kind: stmtInsert, table: table, columns: columns, values: values}, nil
}

func parseDelete(q string) (*memStmt, error) {
	if !hasPrefixFold(q, "DELETE FROM ") {
		return nil, fmt.Errorf("DELETE: expected DELETE FROM")
	}
	table, where, err := splitTableWhere(q[len("DELETE FROM "):])
	if err != nil {
		return nil, fmt.Errorf("DELETE: %w", err)
	}
	if where == nil {
		return nil, fmt.Errorf("DELETE: WHERE clause required")
	}
	return &memStmt{kind: stmtDelete, table: table, where: where}, nil
}

func parseSelect(q string) (*memStmt, error) {
	idxFrom := indexOutsideQuotes(q, " FROM ")
	if idxFrom == -1 {
		return nil, fmt.Errorf("SELECT: FROM not found")
	}

	projection := strings.TrimSpace(q[len("SELECT"):idxFrom])
	table, where, err := splitTableWhere(q[idxFrom+len(" FROM "):])
	if err != nil {
		return nil, fmt.Errorf("SELECT: %w", err)
	}

	if hasPrefixFold(projection, "MAX(") && strings.HasSuffix(projection, ")") {
		col := strings.TrimSpace(projection[len("MAX(") : len(projection)-1])
		if col == "" {
			return nil, fmt.Errorf("SELECT: empty MAX()")
		}
		return &memStmt{kind: stmtMax, table: table, columns: []string{col}, where: where}, nil
	}

	columns := splitOutsideQuotes(projection, ",")
	if len(columns) == 0 {
		return nil, fmt.Errorf("SELECT: empty column list")
	}
	return &memStmt{kind: stmtSelect, table: table, columns: columns, where: where}, nil
}

// splitTableWhere splits "t WHERE a=1 AND b=2" into the table name and its
// predicates. A missing WHERE yields nil predicates.
func splitTableWhere(s string) (string, []predicate, error) {
	s = strings.TrimSpace(s)
	idx := indexOutsideQuotes(s, " WHERE ")
	if idx == -1 {
		if s == "" || strings.ContainsAny(s, " \t") {
			return "", nil, fmt.Errorf("invalid table reference %q", s)
		}
		return s, nil, nil
	}

	table := strings.TrimSpace(s[:idx])
	if table == "" {
		return "", nil, fmt.Errorf("missing table name before WHERE")
	}

	var preds []predicate
	for _, term := range splitOutsideQuotes(s[idx+len(" WHERE "):], " AND ") {
		eq := strings.Index(term, "=")
		if eq == -1 {
			return "", nil, fmt.Errorf("WHERE: only '=' is supported, got %q", term)
		}
		col := strings.TrimSpace(term[:eq])
		lit := strings.TrimSpace(term[eq+1:])
		if col == "" || lit == "" {
			return "", nil, fmt.Errorf("WHERE: malformed term %q", term)
		}
		preds = append(preds, predicate{column: col, literal: lit})
	}
	if len(preds) == 0 {
		return "", nil, fmt.Errorf("empty WHERE clause")
	}
	return table, preds, nil
}

// splitOutsideQuotes splits s on sep (matched case-insensitively), ignoring
// separators inside single-quoted literals. Parts are trimmed; empty parts are
// dropped.
func splitOutsideQuotes(s, sep string) []string {
	var out []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			inQuote = !inQuote
			continue
		}
		if !inQuote && hasPrefixFold(s[i:], sep) {
			out = appendTrimmed(out, s[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	return appendTrimmed(out, s[start:])
}

func appendTrimmed(out []string, part string) []string {
	if p := strings.TrimSpace(part); p != "" {
		out = append(out, p)
	}
	return out
}

// indexOutsideQuotes is a case-insensitive strings.Index that skips
// single-quoted literals.
func indexOutsideQuotes(s, substr string) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			inQuote = !inQuote
			continue
		}
		if !inQuote && hasPrefixFold(s[i:], substr) {
			return i
		}
	}
	return -1
}

// hasPrefixFold reports whether s starts with the ASCII keyword prefix,
// ignoring case. It compares bytes of s directly; upper-casing s first would
// shift offsets for characters whose case forms differ in length.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
