package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeInvalidParameter     ErrorCode = 101
	ErrCodeUnknownStrategy      ErrorCode = 102
	ErrCodeInvalidWeights       ErrorCode = 103

	// Data errors (200-299)
	ErrCodeMissingPriceData ErrorCode = 200
	ErrCodeDataFetchFailure ErrorCode = 201
	ErrCodeQueryFailed      ErrorCode = 202
	ErrCodeInsufficientData ErrorCode = 203

	// Strategy errors (300-399)
	ErrCodeStrategyComputation ErrorCode = 300

	// Trading errors (400-499)
	ErrCodeInsufficientFunds  ErrorCode = 400
	ErrCodeInsufficientShares ErrorCode = 401
	ErrCodeInvalidOrder       ErrorCode = 402

	// Persistence errors (500-599)
	ErrCodeStoreFailed ErrorCode = 500
)
