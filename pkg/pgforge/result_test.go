package pgforge

import (
	"reflect"
	"testing"
)

func TestShapeResultSingleStatementFlattens(t *testing.T) {
	req := TxRequest{Statements: []StatementSpec{{SQL: "SELECT 1"}}}
	res := shapeResult(req, []Rows{{{"id": 1}, {"id": 2}}})

	if res.Shape != ShapeRows {
		t.Fatalf("Shape = %q; want %q", res.Shape, ShapeRows)
	}
	want := Rows{{"id": 1}, {"id": 2}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Errorf("Rows = %v; want %v", res.Rows, want)
	}
}

func TestShapeResultMultiStatementKeepsSets(t *testing.T) {
	req := TxRequest{Statements: []StatementSpec{{SQL: "a"}, {SQL: "b"}, {SQL: "c"}}}
	res := shapeResult(req, []Rows{{{"id": 1}}, nil, {{"id": 3}}})

	if res.Shape != ShapeSets {
		t.Fatalf("Shape = %q; want %q", res.Shape, ShapeSets)
	}
	if len(res.Sets) != 3 {
		t.Fatalf("len(Sets) = %d; want 3", len(res.Sets))
	}
	// nil inner sets come back as empty, not absent
	if res.Sets[1] == nil || len(res.Sets[1]) != 0 {
		t.Errorf("Sets[1] = %v; want empty non-nil set", res.Sets[1])
	}
}

func TestShapeResultForceFlat(t *testing.T) {
	req := TxRequest{
		Statements: []StatementSpec{{SQL: "a"}, {SQL: "b"}},
		ForceFlat:  true,
	}
	res := shapeResult(req, []Rows{{{"id": 1}}, {{"id": 2}}})

	if res.Shape != ShapeRows {
		t.Fatalf("Shape = %q; want %q", res.Shape, ShapeRows)
	}
	want := Rows{{"id": 1}, {"id": 2}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Errorf("Rows = %v; want %v", res.Rows, want)
	}
}

func TestShapeResultAliased(t *testing.T) {
	req := TxRequest{
		Statements: []StatementSpec{
			{SQL: "a", Alias: "users"},
			{SQL: "b", Alias: "orders"},
		},
		ReturnWithAlias: true,
	}
	res := shapeResult(req, []Rows{{{"id": 1}}, nil})

	if res.Shape != ShapeAliased {
		t.Fatalf("Shape = %q; want %q", res.Shape, ShapeAliased)
	}
	if got := res.Aliased["users"]; !reflect.DeepEqual(got, Rows{{"id": 1}}) {
		t.Errorf(`Aliased["users"] = %v`, got)
	}
	if got := res.Aliased["orders"]; got == nil || len(got) != 0 {
		t.Errorf(`Aliased["orders"] = %v; want empty non-nil set`, got)
	}
}

func TestShapeResultSingleRecord(t *testing.T) {
	req := TxRequest{
		Statements:         []StatementSpec{{SQL: "a"}, {SQL: "b"}},
		ReturnSingleRecord: true,
	}
	res := shapeResult(req, []Rows{{{"id": 1}, {"id": 2}}, {{"id": 3}}})

	if res.Shape != ShapeRecord {
		t.Fatalf("Shape = %q; want %q", res.Shape, ShapeRecord)
	}
	if !reflect.DeepEqual(res.Record, Row{"id": 1}) {
		t.Errorf("Record = %v; want first flattened row", res.Record)
	}
}

func TestShapeResultSingleRecordEmpty(t *testing.T) {
	req := TxRequest{
		Statements:         []StatementSpec{{SQL: "a"}},
		ReturnSingleRecord: true,
	}
	res := shapeResult(req, []Rows{{}})

	if res.Record == nil || len(res.Record) != 0 {
		t.Errorf("Record = %v; want empty non-nil row", res.Record)
	}
}

func TestShapeResultEmptyRequest(t *testing.T) {
	res := shapeResult(TxRequest{}, nil)

	if res.Shape != ShapeRows {
		t.Fatalf("Shape = %q; want %q", res.Shape, ShapeRows)
	}
	if res.Rows == nil || len(res.Rows) != 0 {
		t.Errorf("Rows = %v; want empty non-nil list", res.Rows)
	}
}

func TestShapeResultCarriesDiagnostics(t *testing.T) {
	req := TxRequest{
		Diagnostics: []Diagnostic{{Kind: DiagnosticEmptyStatement, Table: "users"}},
	}
	res := shapeResult(req, nil)

	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != DiagnosticEmptyStatement {
		t.Errorf("Diagnostics = %v", res.Diagnostics)
	}
}

func TestFlattenNeverNil(t *testing.T) {
	if flatten(nil) == nil {
		t.Error("flatten(nil) returned nil")
	}
	if flatten([]Rows{nil, nil}) == nil {
		t.Error("flatten of nil sets returned nil")
	}
}
