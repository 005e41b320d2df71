package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = newAPIError
}

func newAPIError(status int, message string, errs ...error) huma.StatusError {
	var fields []string
	for _, err := range errs {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return &APIError{
				status:  domainErr.HTTPStatus(),
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Details: domainErr.Details,
			}
		}

		if apiErr := fromBackendError(err); apiErr != nil {
			return apiErr
		}

		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			fields = append(fields, detail.Error())
		}
	}

	apiErr := &APIError{
		status:  status,
		Code:    statusToCode(status),
		Message: message,
	}
	if len(fields) > 0 {
		apiErr.Details = fields
	}
	if status >= http.StatusInternalServerError {
		// Never leak internal error text.
		apiErr.Message = "An unexpected error occurred."
	}
	return apiErr
}

// fromBackendError maps raw data-layer failures that escaped the services.
func fromBackendError(err error) *APIError {
	var be *backend.Error
	if !errors.As(err, &be) {
		return nil
	}
	switch be.Kind {
	case backend.KindNotFound:
		return &APIError{status: http.StatusNotFound, Code: string(domainerrors.CodeNotFound), Message: capitalize(be.Message)}
	case backend.KindAlreadyExists:
		return &APIError{status: http.StatusConflict, Code: string(domainerrors.CodeAlreadyExists), Message: capitalize(be.Message)}
	case backend.KindConflict:
		return &APIError{status: http.StatusConflict, Code: string(domainerrors.CodeConflict), Message: "The record was changed by someone else. Please try again."}
	case backend.KindInvalidInput:
		return &APIError{status: http.StatusBadRequest, Code: string(domainerrors.CodeValidation), Message: capitalize(be.Message)}
	default:
		return nil
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	default:
		return string(domainerrors.CodeInternal)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
