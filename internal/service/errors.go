package service

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures of the exchange client
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeConfigMissing
	ErrorTypeHTTPNonSuccess
	ErrorTypeTransportFailure
	ErrorTypeMalformedResponse
)

func (errorType ErrorType) String() string {
	switch errorType {
	case ErrorTypeConfigMissing:
		return "config_missing"
	case ErrorTypeHTTPNonSuccess:
		return "http_non_success"
	case ErrorTypeTransportFailure:
		return "transport_failure"
	case ErrorTypeMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. ErrUpstreamUnavailable matches both non-200 replies and
// transport failures.
var (
	ErrConfigMissing       = errors.New("exchange rate api key unavailable")
	ErrUpstreamUnavailable = errors.New("exchange rate api unavailable")
	ErrMalformedResponse   = errors.New("malformed exchange rate api response")
)

// ServiceError represents a client error with type information
type ServiceError struct {
	Type    ErrorType
	Message string
	// StatusCode is the upstream HTTP status for ErrorTypeHTTPNonSuccess
	StatusCode int
	// UpstreamErrorType is the "error-type" field of an upstream error body, if any
	UpstreamErrorType string
	// Timeout is set when a transport failure was caused by the request deadline
	Timeout bool
	Cause   error
}

func (e *ServiceError) Error() string {
	message := e.Message
	if e.UpstreamErrorType != "" {
		message = fmt.Sprintf("%s (%s)", message, e.UpstreamErrorType)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", message, e.Cause)
	}
	return message
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is maps the error type onto the package sentinels
func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrConfigMissing:
		return e.Type == ErrorTypeConfigMissing
	case ErrUpstreamUnavailable:
		return e.Type == ErrorTypeHTTPNonSuccess || e.Type == ErrorTypeTransportFailure
	case ErrMalformedResponse:
		return e.Type == ErrorTypeMalformedResponse
	}
	return false
}

// ClassifyError returns the ErrorType carried by err, or ErrorTypeUnknown
func ClassifyError(err error) ErrorType {
	var serviceError *ServiceError
	if errors.As(err, &serviceError) {
		return serviceError.Type
	}
	return ErrorTypeUnknown
}
