package router

import (
	"net/http"

	"github.com/akeren/go-waitlist/internal/log"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
)

// GetLogger returns the request-scoped logger set by the router middleware.
func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

func OKResult(data any, message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusOK, Data: data, Message: message}
}

func CreatedResult(data any, resourceName string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusCreated, Data: data, Message: resourceName + " created successfully"}
}

func AttachmentResult(filename, contentType string, body []byte) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		Message:    filename,
		Attachment: &Attachment{Filename: filename, ContentType: contentType, Body: body},
	}
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return ErrorResult(http.StatusBadRequest, message, payload)
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return ErrorResult(http.StatusTooManyRequests, "Too Many Requests", data)
}

func InternalServerErrorResult(message string) *ServiceResult {
	return ErrorResult(http.StatusInternalServerError, message, nil)
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Data: data, Message: message}
}

// FromError renders a service error with its mapped status and client-safe
// message. 5xx causes are logged since the response hides them.
func FromError(ctx *RequestContext, err error) *ServiceResult {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		GetLogger(ctx).Error("Request failed", "error", err, "error_type", apperrors.GetErrorType(err))
	}
	return ErrorResult(status, apperrors.GetHumanReadableMessage(err), nil)
}
