package pgforge

// builder.go assembles parameterized SQL statements. All build functions
// are pure: they produce a StatementSpec (or nil when there is nothing to
// do) without touching the database. Every mutating statement carries
// RETURNING * so callers always receive post-mutation row state instead of
// a bare row count.

import (
	"fmt"
	"strings"

	"github.com/pgforge/pgforge/pkg/errors"
)

// quoteIdent wraps a column name in double quotes. Names containing a
// quote character are rejected rather than escaped; no sane schema has
// them and rejecting keeps the surface small.
func quoteIdent(name string) (string, error) {
	if name == "" {
		return "", errors.NewInvalidArgumentError("column", "column name must not be empty", name)
	}
	if strings.ContainsAny(name, "\"\x00") {
		return "", errors.NewInvalidArgumentError("column", "column name contains a quote character", name)
	}
	return `"` + name + `"`, nil
}

// validTable checks a table name against a plain identifier pattern. Table
// names appear unquoted in generated SQL, so anything outside the pattern
// is rejected outright.
func validTable(table string) error {
	if table == "" {
		return errors.NewInvalidArgumentError("table", "table name must not be empty", table)
	}
	for _, r := range table {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '$':
		default:
			return errors.NewInvalidArgumentError("table", fmt.Sprintf("table name contains %q", r), table)
		}
	}
	return nil
}

// quoteLiteral renders a primary-key value as a quoted SQL literal for
// synthesized WHERE clauses. Single quotes are escaped by doubling. Only
// internally derived key lookups use this path; caller filter text goes
// through ValidateClause instead.
func quoteLiteral(v any) string {
	s := fmt.Sprint(v)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// BuildInsert builds INSERT INTO <table> (<cols>) VALUES ($1..$n)
// RETURNING *. Fields carrying Undefined are skipped entirely, not set to
// NULL, and input order is preserved. A nil spec (no error) is returned
// when no fields remain after filtering.
func BuildInsert(table string, fields Fields) (*StatementSpec, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}

	present := fields.present(nil)
	if len(present) == 0 {
		return nil, nil
	}

	cols := make([]string, len(present))
	marks := make([]string, len(present))
	args := make([]any, len(present))
	for i, f := range present {
		col, err := quoteIdent(f.Name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = f.Value
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return &StatementSpec{SQL: sql, Args: args}, nil
}

// BuildMultiInsert builds a single multi-row VALUES statement with
// placeholders numbered sequentially across all rows. Rows missing a named
// field insert NULL for it.
func BuildMultiInsert(table string, fieldNames []string, rows []map[string]any) (*StatementSpec, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	if len(fieldNames) == 0 {
		return nil, errors.NewInvalidArgumentError("fieldNames", "field list must not be empty", fieldNames)
	}
	if len(rows) == 0 {
		return nil, errors.NewInvalidArgumentError("rows", "row list must not be empty", rows)
	}

	cols := make([]string, len(fieldNames))
	for i, name := range fieldNames {
		col, err := quoteIdent(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	args := make([]any, 0, len(rows)*len(fieldNames))
	tuples := make([]string, len(rows))
	n := 0
	for r, row := range rows {
		marks := make([]string, len(fieldNames))
		for i, name := range fieldNames {
			n++
			marks[i] = fmt.Sprintf("$%d", n)
			args = append(args, row[name])
		}
		tuples[r] = "(" + strings.Join(marks, ", ") + ")"
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(tuples, ", "))
	return &StatementSpec{SQL: sql, Args: args}, nil
}

// BuildUpdate builds UPDATE <table> SET ... WHERE ... RETURNING *.
//
// The SET list contains every field with a defined value plus any field
// named in primaryKeys even when its value is absent (the source behavior:
// key columns may ride along unchanged to simplify caller code). Columns in
// confirmedTimestamps are appended as "<col>" = CURRENT_TIMESTAMP; the
// caller is responsible for having checked they exist on the table.
//
// When clause is non-empty it is validated and ANDed onto a 1=1 base;
// otherwise the WHERE is synthesized from the primary key columns'
// equality with their values from fields. A nil spec (no error) is
// returned when the filtered field set is empty.
func BuildUpdate(table string, fields Fields, primaryKeys []string, clause string, confirmedTimestamps []string) (*StatementSpec, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}

	present := fields.present(primaryKeys)
	if len(present) == 0 {
		return nil, nil
	}

	sets := make([]string, 0, len(present)+len(confirmedTimestamps))
	args := make([]any, 0, len(present))
	for i, f := range present {
		col, err := quoteIdent(f.Name)
		if err != nil {
			return nil, err
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		if _, absent := f.Value.(undefinedValue); absent {
			args = append(args, nil)
		} else {
			args = append(args, f.Value)
		}
	}
	for _, ts := range confirmedTimestamps {
		col, err := quoteIdent(ts)
		if err != nil {
			return nil, err
		}
		sets = append(sets, col+" = CURRENT_TIMESTAMP")
	}

	where, err := buildUpdateWhere(fields, primaryKeys, clause)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *",
		table, strings.Join(sets, ", "), where)
	return &StatementSpec{SQL: sql, Args: args}, nil
}

func buildUpdateWhere(fields Fields, primaryKeys []string, clause string) (string, error) {
	if clause != "" {
		if err := ValidateClause(clause); err != nil {
			return "", err
		}
		return "1=1 AND " + clause, nil
	}

	if len(primaryKeys) == 0 {
		return "", errors.NewInvalidArgumentError("primaryKey",
			"update requires a filter clause or a primary key", nil)
	}
	conds := make([]string, len(primaryKeys))
	for i, pk := range primaryKeys {
		col, err := quoteIdent(pk)
		if err != nil {
			return "", err
		}
		v, ok := fields.value(pk)
		if !ok {
			return "", errors.NewInvalidArgumentError("fields",
				fmt.Sprintf("missing value for primary key column %q", pk), nil)
		}
		conds[i] = fmt.Sprintf("%s = %s", col, quoteLiteral(v))
	}
	return strings.Join(conds, " AND "), nil
}

// BuildDelete builds DELETE FROM <table> WHERE <clause> RETURNING *. The
// clause is required: an unconditional delete must be spelled out by the
// caller as an explicit always-true clause.
func BuildDelete(table string, clause string) (*StatementSpec, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	if clause == "" {
		return nil, errors.NewInvalidArgumentError("clause", "delete requires a filter clause", clause)
	}
	if err := ValidateClause(clause); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s RETURNING *", table, clause)
	return &StatementSpec{SQL: sql}, nil
}

// BuildSelect builds a read-only SELECT with optional validated filter
// clause, ordering, limit and offset.
func BuildSelect(table string, columns []string, clause string, orders []Order, limit, offset int) (*StatementSpec, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}

	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			q, err := quoteIdent(c)
			if err != nil {
				return nil, err
			}
			quoted[i] = q
		}
		cols = strings.Join(quoted, ", ")
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", cols, table)

	if clause != "" {
		if err := ValidateClause(clause); err != nil {
			return nil, err
		}
		sql += " WHERE " + clause
	}

	if len(orders) > 0 {
		parts := make([]string, len(orders))
		for i, o := range orders {
			col, err := quoteIdent(o.Field)
			if err != nil {
				return nil, err
			}
			switch o.Direction {
			case OrderAsc, OrderDesc:
			default:
				return nil, errors.NewInvalidArgumentError("orders",
					fmt.Sprintf("invalid order direction %q", o.Direction), o.Direction)
			}
			parts[i] = col + " " + string(o.Direction)
		}
		sql += " ORDER BY " + strings.Join(parts, ", ")
	}

	if limit < 0 || offset < 0 {
		return nil, errors.NewInvalidArgumentError("limit", "limit and offset must not be negative", limit)
	}
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", offset)
	}

	return &StatementSpec{SQL: sql}, nil
}
