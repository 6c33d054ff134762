package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/middleware/requestid"
	"github.com/nimburion/geodir/pkg/repository"
	ginrouter "github.com/nimburion/geodir/pkg/server/router/gin"
)

// AppError is a transport-level error with a stable code and an HTTP status.
// Handlers return it for problems found before the repository is reached,
// such as malformed path parameters or request bodies.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// ErrorResponse represents the consistent error response format.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// MapError maps application and repository errors to HTTP responses.
// Anything unrecognised becomes a 500 whose message hides the cause.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	status, resp := classify(err)
	resp.Error = errorCategory(status)
	resp.RequestID = requestid.GetRequestID(ctx)
	return status, resp
}

func classify(err error) (int, ErrorResponse) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		return status, ErrorResponse{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	}

	var (
		notFound   *repository.NotFoundError
		parentGone *repository.ParentNotFoundError
		hierarchy  *repository.InvalidHierarchyError
		duplicate  *repository.DuplicateEntityError
		field      *repository.InvalidFieldError
		pagination *repository.InvalidPaginationError
		direction  *repository.InvalidSortDirectionError
		sortField  *repository.UnknownSortFieldError
		lookup     *repository.AmbiguousOrMissingKeyError
		tooLarge   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, ErrorResponse{
			Code:    "resource.not_found",
			Message: notFound.Error(),
			Details: map[string]interface{}{"entity": notFound.Entity, notFound.Key: notFound.Value},
		}
	case errors.As(err, &parentGone):
		return http.StatusNotFound, ErrorResponse{
			Code:    "resource.parent_not_found",
			Message: parentGone.Error(),
			Details: map[string]interface{}{"entity": parentGone.Entity, "parent": parentGone.Parent, "parent_id": parentGone.ParentID},
		}
	case errors.As(err, &duplicate):
		details := map[string]interface{}{"entity": duplicate.Entity}
		if duplicate.ExistingID != uuid.Nil {
			details["existing_id"] = duplicate.ExistingID
		}
		return http.StatusConflict, ErrorResponse{Code: "resource.conflict", Message: duplicate.Error(), Details: details}
	case errors.As(err, &hierarchy):
		return http.StatusBadRequest, ErrorResponse{
			Code:    "validation.invalid_hierarchy",
			Message: hierarchy.Error(),
			Details: map[string]interface{}{"country_id": hierarchy.CountryID, "state_id": hierarchy.StateID},
		}
	case errors.As(err, &field):
		return http.StatusBadRequest, ErrorResponse{
			Code:    "validation.invalid_field",
			Message: field.Error(),
			Details: map[string]interface{}{"entity": field.Entity, "field": field.Field},
		}
	case errors.As(err, &pagination):
		return http.StatusBadRequest, ErrorResponse{
			Code:    "validation.invalid_pagination",
			Message: pagination.Error(),
			Details: map[string]interface{}{"param": pagination.Param},
		}
	case errors.As(err, &direction):
		return http.StatusBadRequest, ErrorResponse{Code: "validation.invalid_sort_direction", Message: direction.Error()}
	case errors.As(err, &sortField):
		return http.StatusBadRequest, ErrorResponse{Code: "validation.unknown_sort_field", Message: sortField.Error()}
	case errors.As(err, &lookup):
		return http.StatusBadRequest, ErrorResponse{Code: "validation.lookup_key", Message: lookup.Error()}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{
			Code:    "request.too_large",
			Message: fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", tooLarge.Limit),
		}
	case errors.Is(err, ginrouter.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, ErrorResponse{Code: "request.unsupported_media_type", Message: err.Error()}
	case errors.Is(err, ginrouter.ErrEmptyBody), errors.Is(err, ginrouter.ErrMalformedBody):
		return http.StatusBadRequest, ErrorResponse{Code: "validation.malformed_body", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Code: "request.timeout", Message: "the operation timed out"}
	}

	return http.StatusInternalServerError, ErrorResponse{Code: "internal.error", Message: "an unexpected error occurred"}
}

// NewValidationError creates a 400 error with the given code.
func NewValidationError(code, message string, details map[string]interface{}) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusBadRequest, Details: details}
}

func errorCategory(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		if status >= 500 {
			return "internal_server_error"
		}
		return "application_error"
	}
}
