package controller

import (
	"net/http"

	"github.com/nimburion/geodir/pkg/middleware/requestid"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router"
)

// SuccessResponse represents a successful response with data
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// ListResponse is the envelope of every paged listing.
type ListResponse[T any] struct {
	Data      []T                 `json:"data"`
	Page      repository.PageInfo `json:"page"`
	Links     repository.Links    `json:"links"`
	RequestID string              `json:"request_id,omitempty"`
}

// Success sends a successful JSON response with HTTP 200 OK
func Success(c router.Context, data interface{}) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Data:      data,
		RequestID: requestid.GetRequestID(c.Request().Context()),
	})
}

// Created sends a successful JSON response with HTTP 201 Created
func Created(c router.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, SuccessResponse{
		Data:      data,
		RequestID: requestid.GetRequestID(c.Request().Context()),
	})
}

// List sends a page of items together with its metadata and navigation
// links built from the request URL.
func List[T any](c router.Context, page repository.Page[T]) error {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, ListResponse[T]{
		Data:      items,
		Page:      page.Info,
		Links:     page.Info.Links(c.Request().URL),
		RequestID: requestid.GetRequestID(c.Request().Context()),
	})
}

// NoContent sends HTTP 204 No Content.
func NoContent(c router.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Error sends an error response with the status chosen by MapError.
func Error(c router.Context, err error) error {
	statusCode, errorResponse := MapError(c.Request().Context(), err)
	return c.JSON(statusCode, errorResponse)
}
