package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeStrategy   ErrorType = "STRATEGY"
	ErrTypeMarketData ErrorType = "MARKET_DATA"
	ErrTypeExport     ErrorType = "EXPORT"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to see the cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewStrategyError creates an error for a strategy that could not be run
func NewStrategyError(strategy string, cause error) *AppError {
	return NewAppError(ErrTypeStrategy, fmt.Sprintf("strategy %s failed", strategy), cause).
		WithContext("strategy", strategy)
}

// NewMarketDataError creates an error for an unavailable market data source
func NewMarketDataError(source string, cause error) *AppError {
	return NewAppError(ErrTypeMarketData, "market data source unavailable", cause).
		WithContext("source", source)
}

// NewExportError creates a report export error
func NewExportError(format string, cause error) *AppError {
	return NewAppError(ErrTypeExport, fmt.Sprintf("export to %s failed", format), cause).
		WithContext("format", format)
}
