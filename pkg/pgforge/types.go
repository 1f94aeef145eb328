package pgforge

// types.go defines the data model shared by the builder, the transaction
// executor, and the public query executors.

import (
	"context"
	"strings"
)

// Row is a single database row keyed by column name.
type Row = map[string]any

// Rows is an ordered set of rows, as returned by one statement.
type Rows = []Row

// StatementSpec is one unit of executable work: SQL text, ordered
// replacement values, and an optional alias used when the caller asks for
// alias-keyed results. Value semantics; never mutated after creation.
type StatementSpec struct {
	SQL   string
	Args  []any
	Alias string
}

// undefinedValue is the type of the Undefined sentinel.
type undefinedValue struct{}

// Undefined marks a field as absent. Fields carrying Undefined are skipped
// entirely when building statements rather than being set to NULL.
var Undefined undefinedValue

// Field is a single column/value pair.
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered list of column/value pairs. Order is preserved in
// the generated SQL, which is why this is a slice and not a map.
type Fields []Field

// present returns the fields that carry a defined value, plus any field
// whose name appears in keep regardless of its value.
func (fs Fields) present(keep []string) Fields {
	out := make(Fields, 0, len(fs))
	for _, f := range fs {
		if _, absent := f.Value.(undefinedValue); absent && !containsName(keep, f.Name) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// value returns the value for the named field and whether it exists with a
// defined value.
func (fs Fields) value(name string) (any, bool) {
	for _, f := range fs {
		if f.Name != name {
			continue
		}
		if _, absent := f.Value.(undefinedValue); absent {
			return nil, false
		}
		return f.Value, true
	}
	return nil, false
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// TableMapping describes how a logical entity maps to a table. Created once
// per entity type by the caller layer and consumed by every executor call.
type TableMapping struct {
	// Table is the target table name.
	Table string
	// PrimaryKey is the primary key column, or a comma-separated list for
	// composite keys.
	PrimaryKey string
	// Timestamps lists columns to set to CURRENT_TIMESTAMP on update, when
	// the target table actually has them.
	Timestamps []string
}

// PrimaryKeys returns the individual primary key column names.
func (m TableMapping) PrimaryKeys() []string {
	if m.PrimaryKey == "" {
		return nil
	}
	parts := strings.Split(m.PrimaryKey, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// OrderDirection restricts ordering to the two valid directions so caller
// input cannot reach the SQL text.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "ASC"
	OrderDesc OrderDirection = "DESC"
)

// Order is one ORDER BY entry.
type Order struct {
	Field     string
	Direction OrderDirection
}

// TxRequest describes one transaction: an ordered set of statements plus
// shaping and lease options. Transient; exists only for one call.
type TxRequest struct {
	Statements []StatementSpec

	// ReturnWithAlias keys the result by statement alias instead of
	// returning an ordered list. Every statement must carry an alias.
	ReturnWithAlias bool
	// ReturnSingleRecord reduces the result to its first row.
	ReturnSingleRecord bool
	// ForceFlat flattens the per-statement row sets into one list even when
	// more than one statement was run.
	ForceFlat bool

	// Lease reuses an already-leased connection instead of acquiring one
	// from the pool. Used by hooks and preserved multi-step transactions.
	Lease *Lease
	// PreserveLease skips COMMIT and keeps the connection leased so the
	// caller can issue further statements before a later call commits.
	// Commit responsibility shifts to the caller.
	PreserveLease bool

	// Diagnostics carries non-fatal warnings accumulated while building the
	// statements; they are copied onto the result.
	Diagnostics []Diagnostic
}

// Hook runs after statement execution and before COMMIT. It may veto the
// transaction by returning an error, or replace the result by returning a
// non-nil one. The result's Lease references the connection the
// transaction holds, so a hook can run further statements inside the same
// transaction by passing it on a nested TxRequest.
type Hook func(ctx context.Context, res *Result) (*Result, error)
