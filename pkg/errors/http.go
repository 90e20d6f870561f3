package errors

import "errors"

const genericMessage = "An unexpected error occurred"

var statusByType = map[string]int{
	ErrorTypeInvalidRequest:    StatusBadRequest,
	ErrorTypeDuplicateEntry:    StatusBadRequest,
	ErrorTypeNotFound:          StatusNotFound,
	ErrorTypeConflict:          StatusConflict,
	ErrorTypeRateLimitExceeded: StatusTooManyRequests,
	ErrorTypeRequestTimeout:    StatusRequestTimeout,
	ErrorTypeMethodNotAllowed:  StatusMethodNotAllowed,
}

// HTTPStatusCode maps an error to its response status. Database, upstream
// and unclassified errors are all 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return StatusInternalServerError
}

// GetHumanReadableMessage never returns the text of a wrapped cause; driver
// and provider errors can carry DSNs and SQL.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return genericMessage
}
