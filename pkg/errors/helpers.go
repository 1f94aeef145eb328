package errors

import "errors"

// IsInvalidArgument checks if an error indicates malformed structured input.
func IsInvalidArgument(err error) bool {
	if err == nil {
		return false
	}

	var argErr *InvalidArgumentError
	return errors.As(err, &argErr) || errors.Is(err, ErrInvalidArgument)
}

// IsInvalidClause checks if an error indicates a rejected filter clause.
func IsInvalidClause(err error) bool {
	if err == nil {
		return false
	}

	var clauseErr *InvalidClauseError
	return errors.As(err, &clauseErr) || errors.Is(err, ErrInvalidClause)
}

// IsMissingAlias checks if an error indicates a statement without an alias.
func IsMissingAlias(err error) bool {
	if err == nil {
		return false
	}

	var aliasErr *MissingAliasError
	return errors.As(err, &aliasErr) || errors.Is(err, ErrMissingAlias)
}

// IsTransaction checks if an error indicates a rolled-back transaction.
func IsTransaction(err error) bool {
	if err == nil {
		return false
	}

	var txErr *TransactionError
	return errors.As(err, &txErr) || errors.Is(err, ErrTransaction)
}

// IsRollback checks if an error indicates a failed rollback.
func IsRollback(err error) bool {
	if err == nil {
		return false
	}

	var rbErr *RollbackError
	return errors.As(err, &rbErr) || errors.Is(err, ErrRollback)
}

// GetCode extracts the error code from any error.
func GetCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var typed Error
	if errors.As(err, &typed) {
		return typed.Code()
	}
	return CodeUnknown
}
