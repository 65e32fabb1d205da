package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryNetwork       ErrorCategory = "network"
	ErrorCategoryTimeout       ErrorCategory = "timeout"
	ErrorCategoryUpstream      ErrorCategory = "upstream"
	ErrorCategoryBadData       ErrorCategory = "bad_data"
	ErrorCategoryStorage       ErrorCategory = "storage"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// LogFields returns the structured fields describing the error
func (e *ServiceError) LogFields() logrus.Fields {
	fields := logrus.Fields{
		"error_category": e.Category,
		"error_code":     e.Code,
		"service_name":   e.ServiceName,
		"operation":      e.Operation,
		"retryable":      e.Retryable,
	}
	if e.Details != nil {
		fields["details"] = e.Details
	}
	return fields
}

// ErrorFields returns the LogFields of err when it is a ServiceError, and no fields otherwise
func ErrorFields(err error) logrus.Fields {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.LogFields()
	}
	return logrus.Fields{}
}

// ClassifyTransportError turns a transport failure into a ServiceError, separating timeouts from other network errors
func ClassifyTransportError(err error, serviceName, operation string) *ServiceError {
	if IsTimeout(err) {
		return NewServiceError(ErrorCategoryTimeout, "UPSTREAM_TIMEOUT", "request timed out", serviceName, operation, true, err)
	}
	return NewServiceError(ErrorCategoryNetwork, "UPSTREAM_UNREACHABLE", "request failed", serviceName, operation, true, err)
}

// IsTimeout reports whether err is a transport timeout signal: a context deadline or a net.Error timeout.
// Cancellation by the caller is not a timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Category == ErrorCategoryTimeout {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
