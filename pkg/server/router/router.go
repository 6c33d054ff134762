// Package router defines the handler contract the geodir HTTP servers are
// written against. The gin subpackage provides the implementation.
package router

import "net/http"

// Router registers routes and middleware.
type Router interface {
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PUT(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	DELETE(path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group creates a route group with common prefix and middleware
	Group(prefix string, middleware ...MiddlewareFunc) Router

	// Use applies middleware to routes registered afterwards
	Use(middleware ...MiddlewareFunc)

	// ServeHTTP implements http.Handler
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc handles one request. A returned error that was not written to
// the response becomes a bare 500.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context provides access to request and response in a router-agnostic way.
type Context interface {
	// Request returns the underlying HTTP request
	Request() *http.Request

	// SetRequest replaces the request, e.g. to attach a derived context
	SetRequest(r *http.Request)

	// Response returns the response writer
	Response() ResponseWriter

	// Route returns the matched route template, e.g. "/api/v1/countries/:id".
	// It is empty when no route matched.
	Route() string

	// Param returns a URL parameter by name (e.g., /countries/:id)
	Param(name string) string

	// Query returns a query parameter by name
	Query(name string) string

	// Bind decodes a JSON request body into v
	Bind(v interface{}) error

	// JSON sends a JSON response with the given status code
	JSON(code int, v interface{}) error

	// NoContent sends a status without a body
	NoContent(code int) error

	// Get retrieves a value from the context by key
	Get(key string) interface{}

	// Set stores a value in the context by key
	Set(key string, value interface{})
}

// ResponseWriter wraps http.ResponseWriter to track response status.
type ResponseWriter interface {
	http.ResponseWriter

	// Status returns the HTTP status code of the response
	Status() int

	// Written returns whether the response has been written
	Written() bool
}
