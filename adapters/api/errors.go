package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Go-routine-4595/iba-monitor/adapters/analyzer"
	"github.com/Go-routine-4595/iba-monitor/adapters/controller"
	"github.com/Go-routine-4595/iba-monitor/model"
	"github.com/Go-routine-4595/iba-monitor/service"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// fromDomain maps domain sentinel errors to API errors.
func fromDomain(err error) *APIError {
	switch {
	case errors.Is(err, controller.ErrInvalidTransition):
		return NewConflictError(err.Error())
	case errors.Is(err, model.ErrDuplicateID):
		return NewBadRequestError("invalid signal configuration", err)
	case errors.Is(err, analyzer.ErrMissingAPIKey):
		return NewServiceUnavailableError("AI analysis is not configured: API key is missing")
	case errors.Is(err, service.ErrNoAnalyzer):
		return NewServiceUnavailableError("AI analysis is not configured")
	default:
		return NewInternalError("unexpected error", err)
	}
}

// ErrorHandler renders every error as an APIError.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
	}

	_ = c.JSON(apiErr.Status, apiErr)
}
