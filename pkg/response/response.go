package response

import (
	"net/http"
)

// Response is the envelope every endpoint replies with
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo carries a machine readable code and a client safe message
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Meta describes a page of a list response
type Meta struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeValidationFailed = "VALIDATION_FAILED"

	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeRegistrationTimeout = "REGISTRATION_TIMEOUT"

	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeIdentifierTaken        = "IDENTIFIER_TAKEN"
	ErrCodeInvalidRole            = "INVALID_ROLE"
	ErrCodeCapacityExceeded       = "CAPACITY_EXCEEDED"
	ErrCodeCapacityBelowAttendees = "CAPACITY_BELOW_ATTENDEES"
	ErrCodeEventNotFound          = "EVENT_NOT_FOUND"
	ErrCodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
)

var statusByCode = map[string]int{
	ErrCodeUnauthorized:           http.StatusUnauthorized,
	ErrCodeTokenExpired:           http.StatusUnauthorized,
	ErrCodeInvalidCredentials:     http.StatusUnauthorized,
	ErrCodeForbidden:              http.StatusForbidden,
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeEventNotFound:          http.StatusNotFound,
	ErrCodeAccountNotFound:        http.StatusNotFound,
	ErrCodeValidationFailed:       http.StatusBadRequest,
	ErrCodeInvalidRole:            http.StatusBadRequest,
	ErrCodeIdentifierTaken:        http.StatusConflict,
	ErrCodeCapacityExceeded:       http.StatusConflict,
	ErrCodeCapacityBelowAttendees: http.StatusConflict,
	ErrCodeTooManyRequests:        http.StatusTooManyRequests,
	ErrCodeServiceUnavailable:     http.StatusServiceUnavailable,
	ErrCodeRegistrationTimeout:    http.StatusGatewayTimeout,
}

// Status returns the HTTP status for an error code. Unknown codes are 500.
func Status(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func Success(data interface{}) *Response {
	return &Response{Success: true, Data: data}
}

// List wraps one page of results with its paging metadata
func List(data interface{}, limit, offset int, total int64) *Response {
	return &Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Limit: limit, Offset: offset, Total: total},
	}
}

func Error(code string, message string) *Response {
	return ErrorWithDetails(code, message, nil)
}

func ErrorWithDetails(code string, message string, details map[string]string) *Response {
	return &Response{
		Error: &ErrorInfo{Code: code, Message: message, Details: details},
	}
}

func Unauthorized(message string) *Response {
	return Error(ErrCodeUnauthorized, orDefault(message, "Authentication required"))
}

func Forbidden(message string) *Response {
	return Error(ErrCodeForbidden, orDefault(message, "Access denied"))
}

func NotFound(message string) *Response {
	return Error(ErrCodeNotFound, orDefault(message, "Resource not found"))
}

func InternalError(message string) *Response {
	return Error(ErrCodeInternalError, orDefault(message, "An internal error occurred"))
}

func ServiceUnavailable(message string) *Response {
	return Error(ErrCodeServiceUnavailable, orDefault(message, "Service temporarily unavailable"))
}

func TooManyRequests(message string) *Response {
	return Error(ErrCodeTooManyRequests, orDefault(message, "Too many requests, please try again later"))
}

// ValidationFailed reports field level problems keyed by field name
func ValidationFailed(details map[string]string) *Response {
	return ErrorWithDetails(ErrCodeValidationFailed, "Validation failed", details)
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
