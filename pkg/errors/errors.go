package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeAppError   = "APP_ERROR"
	CodeAPIError   = "API_ERROR"
	CodeConfig     = "CONFIG_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeStore      = "STORE_ERROR"
	CodeService    = "SERVICE_ERROR"
	CodeQuota      = "QUOTA_ERROR"
	CodeResolution = "RESOLUTION_ERROR"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// CodeOf returns the code of the first application error in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var c coded
	if stderrors.As(err, &c) {
		return c.code()
	}
	return ""
}

// MessageOf returns the message of the first application error in err's chain without its cause.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var c coded
	if stderrors.As(err, &c) {
		return c.message()
	}
	return err.Error()
}

type coded interface {
	error
	code() string
	message() string
}

func (e *AppError) code() string    { return e.Code }
func (e *AppError) message() string { return e.Message }

type APIError struct {
	*AppError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

func (e *APIError) WithCause(cause error) *APIError {
	e.Cause = cause
	return e
}

// ConfigError reports a missing or unusable credential. No network call is made when it is returned.
type ConfigError struct {
	*AppError
	Field string
}

func NewConfigError(message, field string) *ConfigError {
	return &ConfigError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeConfig,
			StatusCode: 500,
			Context: map[string]any{
				"field": field,
			},
		},
		Field: field,
	}
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type StoreError struct {
	*AppError
	Operation string
	Key       string
}

func NewStoreError(message, operation, key string, cause error) *StoreError {
	return &StoreError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeStore,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*AppError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// QuotaError is returned when the daily YouTube unit budget is spent or the API rejected a call for quota.
type QuotaError struct {
	*AppError
	Used  int
	Limit int
}

func NewQuotaError(message string, used, limit int) *QuotaError {
	return &QuotaError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeQuota,
			StatusCode: 429,
			Context: map[string]any{
				"used":  used,
				"limit": limit,
			},
		},
		Used:  used,
		Limit: limit,
	}
}

// ResolutionError reports that a name or handle could not be turned into a canonical identifier.
type ResolutionError struct {
	*AppError
	Input string
}

func NewResolutionError(message, input string) *ResolutionError {
	return &ResolutionError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeResolution,
			StatusCode: 404,
			Context: map[string]any{
				"input": input,
			},
		},
		Input: input,
	}
}
