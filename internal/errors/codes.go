package errors

// SQLSTATE-style codes used by plan compilation and execution.
// Class 01Q is private to the planner and carries compiler warnings.
const (
	// Class 00 - Successful Completion
	SuccessfulCompletion = "00000"

	// Class 01 - Warning
	Warning                          = "01000"
	SargabilityDemoted               = "01Q01"
	OrderDependentAggregate          = "01Q02"
	DeviceUnsupported                = "01Q03"
	ImplicitConversionInserted       = "01Q04"
	NullValueEliminatedInSetFunction = "01003"

	// Class 02 - No Data
	NoData = "02000"

	// Class 0A - Feature Not Supported
	FeatureNotSupported = "0A000"

	// Class 21 - Cardinality Violation
	CardinalityViolation = "21000"

	// Class 22 - Data Exception
	DataException             = "22000"
	NumericValueOutOfRange    = "22003"
	NullValueNotAllowed       = "22004"
	InvalidDatetimeFormat     = "22007"
	DivisionByZero            = "22012"
	InvalidParameterValue     = "22023"
	InvalidTextRepresentation = "22P02"

	// Class 23 - Integrity Constraint Violation
	NotNullViolation = "23502"
	UniqueViolation  = "23505"
	CheckViolation   = "23514"

	// Class 24 - Invalid Cursor State
	InvalidCursorState = "24000"

	// Class 42 - Syntax Error or Access Rule Violation
	SyntaxError        = "42601"
	InvalidName        = "42602"
	AmbiguousColumn    = "42702"
	UndefinedColumn    = "42703"
	DatatypeMismatch   = "42804"
	CannotCoerce       = "42846"
	UndefinedTable     = "42P01"
	DuplicateTable     = "42P07"
	DuplicateObject    = "42710"
	DuplicateColumn    = "42701"
	UndefinedObject    = "42704"
	InvalidRestriction = "42Q01"

	// Class 55 - Object Not In Prerequisite State
	ObjectNotInPrerequisiteState = "55000"

	// Class 57 - Operator Intervention
	QueryCanceled = "57014"

	// Class XX - Internal Error
	InternalError = "XX000"
)
