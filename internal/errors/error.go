package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryRuntime  Category = "runtime"
	CategoryDevtools Category = "devtools"
	CategoryCLI      Category = "cli"
)

// PartRef identifies the part an error is about.
type PartRef struct {
	ID   uint64
	Name string
}

// String returns the reference as "part <id> (<name>)".
func (r *PartRef) String() string {
	if r == nil {
		return ""
	}
	if r.Name != "" {
		return fmt.Sprintf("part %d (%s)", r.ID, r.Name)
	}
	return fmt.Sprintf("part %d", r.ID)
}

// PartitionError is a structured error with a code, an explanation and an
// optional fix suggestion.
type PartitionError struct {
	// Code is a unique error identifier (e.g., "P001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Part is the part involved, if any.
	Part *PartRef

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PartitionError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Part != nil {
		msg += " [" + e.Part.String() + "]"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PartitionError) Unwrap() error {
	return e.Wrapped
}

// WithPart records the part the error is about.
func (e *PartitionError) WithPart(id uint64, name string) *PartitionError {
	e.Part = &PartRef{ID: id, Name: name}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *PartitionError) WithSuggestion(s string) *PartitionError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *PartitionError) WithDetail(d string) *PartitionError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *PartitionError) Wrap(err error) *PartitionError {
	e.Wrapped = err
	return e
}

// New creates a PartitionError from a registered error code.
func New(code string) *PartitionError {
	template, ok := registry[code]
	if !ok {
		return &PartitionError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PartitionError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// FromError wraps a standard error in a PartitionError.
func FromError(err error, code string) *PartitionError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*PartitionError); ok {
		return pe
	}
	return New(code).Wrap(err)
}
