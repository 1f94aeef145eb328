package pgforge

// result.go normalizes the heterogeneous shapes a transaction can return:
// an ordered list of per-statement row sets, a flattened row list, an
// alias-keyed map, or a single record.

// ResultShape identifies which field of a Result is populated.
type ResultShape string

const (
	// ShapeSets is an ordered list of per-statement row sets.
	ShapeSets ResultShape = "sets"
	// ShapeRows is a single flattened row list.
	ShapeRows ResultShape = "rows"
	// ShapeAliased is a map from statement alias to row set.
	ShapeAliased ResultShape = "aliased"
	// ShapeRecord is a single row.
	ShapeRecord ResultShape = "record"
)

// Result is the normalized outcome of a transaction. Exactly one of Sets,
// Rows, Aliased, or Record is populated, indicated by Shape; the populated
// container is never nil, so empty input yields an empty container rather
// than an absent one.
type Result struct {
	Shape ResultShape

	Sets    []Rows
	Rows    Rows
	Aliased map[string]Rows
	Record  Row

	// Lease references the leased connection while a hook runs, so nested
	// statements can join the open transaction. It stays set after return
	// only when the transaction was asked to preserve its lease: the
	// caller then finishes (or aborts) the transaction by passing it to a
	// later call.
	Lease *Lease

	Diagnostics []Diagnostic
}

// shapeResult turns the per-statement row sets, collected in input order,
// into the caller-requested shape.
//
// When the result is positional (not aliased) it is flattened one level if
// exactly one statement ran or ForceFlat was requested, so bulk
// multi-statement operations return one flat row list instead of a list of
// lists. Flattening a depth-1 list is a no-op, which keeps shaping
// idempotent for single-statement requests.
func shapeResult(req TxRequest, sets []Rows) *Result {
	res := &Result{Diagnostics: req.Diagnostics}

	if req.ReturnWithAlias {
		res.Shape = ShapeAliased
		res.Aliased = make(map[string]Rows, len(sets))
		for i, set := range sets {
			if set == nil {
				set = Rows{}
			}
			res.Aliased[req.Statements[i].Alias] = set
		}
		return res
	}

	if req.ReturnSingleRecord {
		res.Shape = ShapeRecord
		res.Record = Row{}
		if flat := flatten(sets); len(flat) > 0 {
			res.Record = flat[0]
		}
		return res
	}

	if len(req.Statements) <= 1 || req.ForceFlat {
		res.Shape = ShapeRows
		res.Rows = flatten(sets)
		return res
	}

	res.Shape = ShapeSets
	res.Sets = make([]Rows, len(sets))
	for i, set := range sets {
		if set == nil {
			set = Rows{}
		}
		res.Sets[i] = set
	}
	return res
}

// flatten collapses one level of nesting, never returning nil.
func flatten(sets []Rows) Rows {
	out := Rows{}
	for _, set := range sets {
		out = append(out, set...)
	}
	return out
}
