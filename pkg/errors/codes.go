package errors

// Error codes for categorizing errors raised by the query engine.
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeUnknown indicates an unknown error occurred.
	CodeUnknown = "UNKNOWN"

	// CodeInvalidArgument indicates the caller supplied missing or malformed
	// structured input (empty field list, nil statement list, empty SQL).
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// CodeInvalidClause indicates a caller-supplied filter clause failed
	// validation against the operator whitelist.
	CodeInvalidClause = "INVALID_CLAUSE"

	// CodeMissingAlias indicates alias-keyed results were requested but a
	// statement carries no alias.
	CodeMissingAlias = "MISSING_ALIAS"

	// CodeTransaction indicates a statement, commit, or hook failed after
	// BEGIN was issued. The transaction has been rolled back.
	CodeTransaction = "TRANSACTION"

	// CodeRollback indicates ROLLBACK itself failed. The connection has been
	// discarded from the pool.
	CodeRollback = "ROLLBACK"

	// CodeConfig indicates configuration validation failed.
	CodeConfig = "CONFIG"
)
