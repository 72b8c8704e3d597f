package errors

// Category-specific error constructors

// Catalog errors
func TableNotFoundError(tableName string) *Error {
	return Newf(UndefinedTable, "table \"%s\" does not exist", tableName).
		WithTable(tableName)
}

func DuplicateTableError(tableName string) *Error {
	return Newf(DuplicateTable, "table \"%s\" already exists", tableName).
		WithTable(tableName)
}

func ColumnNotFoundError(columnName, tableName string) *Error {
	if tableName != "" {
		return Newf(UndefinedColumn, "column %s.%s does not exist", tableName, columnName).
			WithTable(tableName).
			WithColumn(columnName)
	}
	return Newf(UndefinedColumn, "column \"%s\" does not exist", columnName).
		WithColumn(columnName)
}

func DuplicateColumnError(columnName string) *Error {
	return Newf(DuplicateColumn, "column \"%s\" specified more than once", columnName).
		WithColumn(columnName)
}

func UndefinedObjectError(kind, name string) *Error {
	return Newf(UndefinedObject, "%s \"%s\" does not exist", kind, name)
}

// Binding errors
func OuterReferenceError(columnName string) *Error {
	return Newf(InvalidName, "column \"%s\" is outside an isolated frame", columnName).
		WithColumn(columnName).
		WithHint("Use an explicitly correlated reference.")
}

func NonRepeatableRestrictionError(expr string) *Error {
	return Newf(InvalidRestriction, "restriction condition is not repeatable: %s", expr).
		WithHint("Restriction conditions may not reference non-deterministic operators.")
}

func NonBooleanRestrictionError(actual string) *Error {
	return Newf(DatatypeMismatch, "restriction condition is of type %s, expected Boolean", actual)
}

// Type errors
func InvalidCastError(fromType, toType string) *Error {
	return Newf(CannotCoerce, "cannot convert type %s to %s", fromType, toType).
		WithDataType(toType)
}

func TypeMismatchError(expected, actual string, context string) *Error {
	return Newf(DatatypeMismatch, "%s is of type %s but expression is of type %s", context, expected, actual).
		WithHint("You will need to rewrite or convert the expression.")
}

func InvalidTextRepresentationError(dataType, value string) *Error {
	return Newf(InvalidTextRepresentation, "invalid input syntax for type %s: \"%s\"", dataType, value).
		WithDataType(dataType)
}

func NumericValueOutOfRangeError(dataType string) *Error {
	return Newf(NumericValueOutOfRange, "value out of range for type %s", dataType).
		WithDataType(dataType)
}

// Constraint errors
func NotNullViolationError(columnName string, tableName string) *Error {
	return Newf(NotNullViolation, "nil value in column \"%s\" violates not-nil constraint", columnName).
		WithTable(tableName).
		WithColumn(columnName)
}

func DuplicateKeyError(tableName string, key string) *Error {
	return Newf(UniqueViolation, "duplicate key value violates key of \"%s\"", tableName).
		WithDetailf("Key (%s) already exists.", key).
		WithTable(tableName)
}

func CheckViolationError(tableName, condition string) *Error {
	return Newf(CheckViolation, "row violates restriction of \"%s\"", tableName).
		WithTable(tableName).
		WithDetail(condition)
}

func RowNotFoundError(tableName string) *Error {
	return Newf(NoData, "row not found in \"%s\"", tableName).
		WithTable(tableName)
}

// Execution errors
func DivisionByZeroError() *Error {
	return New(DivisionByZero, "division by zero")
}

func CapabilityNotSupportedError(capability string) *Error {
	return Newf(FeatureNotSupported, "cursor does not support %s", capability)
}

func CursorStateError(msg string) *Error {
	return New(InvalidCursorState, msg)
}

func FeatureNotSupportedError(feature string) *Error {
	return Newf(FeatureNotSupported, "%s is not supported", feature)
}

func QueryCanceledError() *Error {
	return New(QueryCanceled, "canceling execution due to user request")
}
