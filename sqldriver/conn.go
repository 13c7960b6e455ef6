// Package sqldriver is a thin database/sql-backed driver.Driver,
// wiring github.com/go-sql-driver/mysql and github.com/lib/pq as
// dialects and github.com/DATA-DOG/go-sqlmock in tests. It demonstrates
// the driver contract over flat field-equality
// predicates; full dialect-specific relational-algebra lowering (joins,
// grouping, the eval IR) is a collaborator concern this package does not
// attempt — memdriver is the complete reference driver.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Dialect names the SQL dialect a Conn speaks, distinguishing quoting and
// placeholder conventions.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue escapes a string for safe inline use in a SET
// statement (session vars are set outside the placeholder path because
// not every driver accepts bound parameters there).
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// quoteIdent quotes a table/column identifier for dialect.
func quoteIdent(d Dialect, name string) string {
	switch d {
	case MySQL:
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}

// placeholder returns the n'th (1-based) bound-parameter placeholder for
// dialect.
func placeholder(d Dialect, n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

type ctxVarsKey struct{}

type sessionVar struct{ k, v string }

// WithVar attaches a session variable to be set before the next statement
// executed through this context (e.g. Postgres row-level-security claims,
// MySQL `SET @var`).
func WithVar(ctx context.Context, name, value string) context.Context {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	vars = append(vars, sessionVar{k: name, v: value})
	return context.WithValue(ctx, ctxVarsKey{}, vars)
}

// Conn wraps a *sql.DB or *sql.Tx, applying any session vars attached to
// the context before each statement.
type Conn struct {
	ExecQuerier
	dialect Dialect
}

// ExecQuerier is satisfied by *sql.DB and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c Conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ex, err := c.applyVars(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqldriver: set session vars: %w", err)
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldriver: exec: %w", err)
	}
	return res, nil
}

func (c Conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ex, err := c.applyVars(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqldriver: set session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldriver: query: %w", err)
	}
	return rows, nil
}

func (c Conn) applyVars(ctx context.Context) (ExecQuerier, error) {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	if len(vars) == 0 {
		return c.ExecQuerier, nil
	}
	for _, v := range vars {
		if !isValidIdentifier(v.k) {
			return nil, fmt.Errorf("invalid session variable name: %q", v.k)
		}
		stmt := fmt.Sprintf("SET %s = '%s'", v.k, escapeStringValue(v.v))
		if _, err := c.ExecQuerier.ExecContext(ctx, stmt); err != nil {
			return nil, err
		}
	}
	return c.ExecQuerier, nil
}

var errUnsupportedScanType = errors.New("sqldriver: unsupported scan destination")

// scanRows drains rows into []map[string]any keyed by column name.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalizeScanned(raw[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func normalizeScanned(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x
	default:
		return x
	}
}
