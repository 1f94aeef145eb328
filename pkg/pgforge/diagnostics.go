package pgforge

// diagnostics.go carries non-fatal warnings alongside results instead of a
// process-wide log side channel, so callers and tests can assert on them.

import "fmt"

// DiagnosticKind classifies a non-fatal warning.
type DiagnosticKind string

const (
	// DiagnosticEmptyStatement reports that a build produced no statement
	// because the filtered field set was empty.
	DiagnosticEmptyStatement DiagnosticKind = "empty_statement"

	// DiagnosticMissingTimestampColumn reports that an auto-timestamp column
	// was configured but does not exist on the target table.
	DiagnosticMissingTimestampColumn DiagnosticKind = "missing_timestamp_column"
)

// Diagnostic is one non-fatal warning attached to a result.
type Diagnostic struct {
	Kind   DiagnosticKind
	Table  string
	Column string
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case DiagnosticEmptyStatement:
		return fmt.Sprintf("no statement built for table %s: no defined fields", d.Table)
	case DiagnosticMissingTimestampColumn:
		return fmt.Sprintf("table %s has no column %s, timestamp skipped", d.Table, d.Column)
	default:
		return string(d.Kind)
	}
}
