package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Request/validation errors (100-199)
	ErrCodeInvalidRequest       ErrorCode = 100
	ErrCodeInvalidInterval      ErrorCode = 101
	ErrCodeInvalidPair          ErrorCode = 102
	ErrCodeInvalidConfiguration ErrorCode = 103
	ErrCodeTooManyBars          ErrorCode = 104

	// Source errors (200-299)
	ErrCodeRateLimited       ErrorCode = 200
	ErrCodeRateLimitExceeded ErrorCode = 201
	ErrCodeSourceUnavailable ErrorCode = 202
	ErrCodeTimeout           ErrorCode = 203
	ErrCodeCancelled         ErrorCode = 204
	ErrCodeMalformedResponse ErrorCode = 205

	// Assembly errors (300-399)
	ErrCodeSeriesCorrupted ErrorCode = 300

	// Resampling errors (400-499)
	ErrCodeUnsupportedResampling ErrorCode = 400

	// Storage/output errors (500-599)
	ErrCodeWriteFailed ErrorCode = 500
	ErrCodeQueryFailed ErrorCode = 501
)
