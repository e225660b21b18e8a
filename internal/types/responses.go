// Package types defines the request and response envelopes shared by the
// API handlers and the client.
package types

// PaginationResponse describes the window a list response covers.
type PaginationResponse struct {
	// Total number of items in this page
	Total int `json:"total"`

	// Current page number (1-based)
	Page int `json:"page"`

	// Maximum number of items per page
	Limit int `json:"limit"`

	// Number of items skipped from the beginning of the result set
	Offset int `json:"offset"`
}

// ListResponse is the envelope for all list endpoints.
type ListResponse[T any] struct {
	Rows       []T                `json:"rows"`
	Pagination PaginationResponse `json:"pagination"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	// Error message describing what went wrong
	Error string `json:"error"`

	// Optional additional details about the error
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Data interface{} `json:"data,omitempty"`
}

// ErrInvalidInput builds the error body for a rejected request.
func ErrInvalidInput(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// ErrNotFound builds the error body for a missing resource.
func ErrNotFound(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// ErrInternal builds the error body for a server-side failure.
func ErrInternal(msg string, details interface{}) ErrorResponse {
	return ErrorResponse{Error: msg, Details: details}
}
