package pgforge

// executors.go is the public CRUD surface. Each executor is a thin
// composition: build statements, validate any caller-supplied filter
// clause, wrap everything in a TxRequest with the right shaping flags, and
// delegate to Transaction.

import (
	"context"

	"go.uber.org/zap"

	"github.com/pgforge/pgforge/pkg/errors"
	"github.com/pgforge/pgforge/pkg/logging"
)

// InsertOptions configures a single-row insert.
type InsertOptions struct {
	Mapping TableMapping
	Fields  Fields

	ReturnSingleRecord bool
	Lease              *Lease
	PreserveLease      bool
}

// Insert inserts one row and returns it. Fields carrying Undefined are
// omitted from the statement; when nothing remains the call degrades to
// the empty-transaction tolerance and reports a diagnostic.
func (c *Client) Insert(ctx context.Context, opts InsertOptions, hook Hook) (*Result, error) {
	spec, err := BuildInsert(opts.Mapping.Table, opts.Fields)
	if err != nil {
		return nil, err
	}

	req := TxRequest{
		Statements:         []StatementSpec{},
		ReturnSingleRecord: opts.ReturnSingleRecord,
		Lease:              opts.Lease,
		PreserveLease:      opts.PreserveLease,
	}
	if spec == nil {
		req.Diagnostics = append(req.Diagnostics, Diagnostic{Kind: DiagnosticEmptyStatement, Table: opts.Mapping.Table})
	} else {
		req.Statements = append(req.Statements, *spec)
	}
	return c.Transaction(ctx, req, hook)
}

// MultiInsertOptions configures a bulk insert.
type MultiInsertOptions struct {
	Mapping    TableMapping
	FieldNames []string
	Rows       []map[string]any

	// SingleStatement collapses the bulk into one multi-row VALUES
	// statement. The default issues one INSERT per row inside the same
	// transaction, which pipelines on one connection and flattens to the
	// same shape.
	SingleStatement bool

	Lease         *Lease
	PreserveLease bool
}

// MultiInsert inserts every row atomically and returns one flat list of
// the inserted rows.
func (c *Client) MultiInsert(ctx context.Context, opts MultiInsertOptions, hook Hook) (*Result, error) {
	if len(opts.FieldNames) == 0 {
		return nil, errors.NewInvalidArgumentError("fieldNames", "field list must not be empty", opts.FieldNames)
	}
	if len(opts.Rows) == 0 {
		return nil, errors.NewInvalidArgumentError("rows", "row list must not be empty", opts.Rows)
	}

	req := TxRequest{
		ForceFlat:     true,
		Lease:         opts.Lease,
		PreserveLease: opts.PreserveLease,
	}

	if opts.SingleStatement {
		spec, err := BuildMultiInsert(opts.Mapping.Table, opts.FieldNames, opts.Rows)
		if err != nil {
			return nil, err
		}
		req.Statements = []StatementSpec{*spec}
		return c.Transaction(ctx, req, hook)
	}

	req.Statements = make([]StatementSpec, 0, len(opts.Rows))
	for _, row := range opts.Rows {
		fields := make(Fields, len(opts.FieldNames))
		for i, name := range opts.FieldNames {
			fields[i] = Field{Name: name, Value: row[name]}
		}
		spec, err := BuildInsert(opts.Mapping.Table, fields)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			req.Diagnostics = append(req.Diagnostics, Diagnostic{Kind: DiagnosticEmptyStatement, Table: opts.Mapping.Table})
			continue
		}
		req.Statements = append(req.Statements, *spec)
	}
	return c.Transaction(ctx, req, hook)
}

// UpdateByKeyOptions configures an update whose WHERE clause is
// synthesized from the mapping's primary key column(s) and their values in
// Fields.
type UpdateByKeyOptions struct {
	Mapping TableMapping
	Fields  Fields

	ReturnSingleRecord bool
	Lease              *Lease
	PreserveLease      bool
}

// UpdateByKey updates the row identified by the primary key value(s)
// present in Fields and returns the updated row(s).
func (c *Client) UpdateByKey(ctx context.Context, opts UpdateByKeyOptions, hook Hook) (*Result, error) {
	return c.update(ctx, opts.Mapping, opts.Fields, "", opts.ReturnSingleRecord, opts.Lease, opts.PreserveLease, hook)
}

// UpdateByConditionsOptions configures an update filtered by an explicit
// clause instead of the primary key.
type UpdateByConditionsOptions struct {
	Mapping TableMapping
	Fields  Fields
	// Clause is validated before it reaches the SQL text.
	Clause string

	ReturnSingleRecord bool
	Lease              *Lease
	PreserveLease      bool
}

// UpdateByConditions updates every row matching the clause and returns the
// updated rows.
func (c *Client) UpdateByConditions(ctx context.Context, opts UpdateByConditionsOptions, hook Hook) (*Result, error) {
	if opts.Clause == "" {
		return nil, errors.NewInvalidArgumentError("clause", "clause must not be empty", opts.Clause)
	}
	return c.update(ctx, opts.Mapping, opts.Fields, opts.Clause, opts.ReturnSingleRecord, opts.Lease, opts.PreserveLease, hook)
}

func (c *Client) update(ctx context.Context, mapping TableMapping, fields Fields, clause string, single bool, lease *Lease, preserve bool, hook Hook) (*Result, error) {
	confirmed, diags, err := c.confirmTimestamps(ctx, mapping)
	if err != nil {
		return nil, err
	}

	spec, err := BuildUpdate(mapping.Table, fields, mapping.PrimaryKeys(), clause, confirmed)
	if err != nil {
		return nil, err
	}

	req := TxRequest{
		Statements:         []StatementSpec{},
		ReturnSingleRecord: single,
		Lease:              lease,
		PreserveLease:      preserve,
		Diagnostics:        diags,
	}
	if spec == nil {
		req.Diagnostics = append(req.Diagnostics, Diagnostic{Kind: DiagnosticEmptyStatement, Table: mapping.Table})
	} else {
		req.Statements = append(req.Statements, *spec)
	}
	return c.Transaction(ctx, req, hook)
}

// MultiUpdateOptions configures a bulk per-row update keyed by the
// mapping's primary key.
type MultiUpdateOptions struct {
	Mapping TableMapping
	Rows    []Fields

	Lease         *Lease
	PreserveLease bool
}

// MultiUpdate updates every row atomically, one UPDATE per row inside a
// single transaction, and returns one flat list of the updated rows.
func (c *Client) MultiUpdate(ctx context.Context, opts MultiUpdateOptions, hook Hook) (*Result, error) {
	if len(opts.Rows) == 0 {
		return nil, errors.NewInvalidArgumentError("rows", "row list must not be empty", opts.Rows)
	}

	confirmed, diags, err := c.confirmTimestamps(ctx, opts.Mapping)
	if err != nil {
		return nil, err
	}

	req := TxRequest{
		Statements:    make([]StatementSpec, 0, len(opts.Rows)),
		ForceFlat:     true,
		Lease:         opts.Lease,
		PreserveLease: opts.PreserveLease,
		Diagnostics:   diags,
	}
	for _, row := range opts.Rows {
		spec, err := BuildUpdate(opts.Mapping.Table, row, opts.Mapping.PrimaryKeys(), "", confirmed)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			req.Diagnostics = append(req.Diagnostics, Diagnostic{Kind: DiagnosticEmptyStatement, Table: opts.Mapping.Table})
			continue
		}
		req.Statements = append(req.Statements, *spec)
	}
	return c.Transaction(ctx, req, hook)
}

// DeleteOptions configures a delete filtered by an explicit clause.
type DeleteOptions struct {
	Mapping TableMapping
	// Clause is required and validated; there is no implicit whole-table
	// delete.
	Clause string

	ReturnSingleRecord bool
	Lease              *Lease
	PreserveLease      bool
}

// Delete removes every row matching the clause and returns the deleted
// rows.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions, hook Hook) (*Result, error) {
	spec, err := BuildDelete(opts.Mapping.Table, opts.Clause)
	if err != nil {
		return nil, err
	}
	req := TxRequest{
		Statements:         []StatementSpec{*spec},
		ReturnSingleRecord: opts.ReturnSingleRecord,
		Lease:              opts.Lease,
		PreserveLease:      opts.PreserveLease,
	}
	return c.Transaction(ctx, req, hook)
}

// FindOptions configures a read.
type FindOptions struct {
	Mapping TableMapping
	Columns []string
	Clause  string
	Orders  []Order
	Limit   int
	Offset  int

	ReturnSingleRecord bool
	Lease              *Lease
	PreserveLease      bool
}

// Find runs a SELECT through the same transactional path as the mutating
// operations, for consistency of lease handling and shaping.
func (c *Client) Find(ctx context.Context, opts FindOptions, hook Hook) (*Result, error) {
	spec, err := BuildSelect(opts.Mapping.Table, opts.Columns, opts.Clause, opts.Orders, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	req := TxRequest{
		Statements:         []StatementSpec{*spec},
		ReturnSingleRecord: opts.ReturnSingleRecord,
		Lease:              opts.Lease,
		PreserveLease:      opts.PreserveLease,
	}
	return c.Transaction(ctx, req, hook)
}

// confirmTimestamps filters a mapping's auto-timestamp columns down to
// those that exist on the table, reporting a diagnostic for each one that
// does not.
func (c *Client) confirmTimestamps(ctx context.Context, mapping TableMapping) ([]string, []Diagnostic, error) {
	var confirmed []string
	var diags []Diagnostic
	for _, col := range mapping.Timestamps {
		ok, err := c.HasColumn(ctx, mapping.Table, col)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			c.logger.ComponentWarn(logging.ComponentCatalog, "timestamp column missing, skipped",
				zap.String("table", mapping.Table), zap.String("column", col))
			diags = append(diags, Diagnostic{Kind: DiagnosticMissingTimestampColumn, Table: mapping.Table, Column: col})
			continue
		}
		confirmed = append(confirmed, col)
	}
	return confirmed, diags, nil
}
