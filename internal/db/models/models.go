// Package models defines the persistent records shared by the queue, the
// worker, and the API: projects, goals, jobs, runs, and proofs.
package models

const (
	// DefaultLimit is the max number of rows that are retrieved from the DB per listing API call
	DefaultLimit = 50
)

// ListOptions represents pagination options for list operations
type ListOptions struct {
	Limit  int `json:"limit"`  // Number of items to return
	Offset int `json:"offset"` // Number of items to skip
}

// WithDefaults returns the options with the limit clamped to a sane range.
func (o *ListOptions) WithDefaults() *ListOptions {
	if o == nil {
		return &ListOptions{Limit: DefaultLimit}
	}
	if o.Limit <= 0 || o.Limit > DefaultLimit {
		o.Limit = DefaultLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
