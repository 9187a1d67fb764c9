package posnet

import (
	"fmt"
)

// UnexpectedResponseError is returned when the bank response cannot be parsed at all.
// A well-formed decline is not an error.
type UnexpectedResponseError struct {
	Body string
	Err  error
}

func (e *UnexpectedResponseError) Error() string {
	return "provider returned unexpected response. Response data: " + e.Body
}

func (e *UnexpectedResponseError) Unwrap() error {
	return e.Err
}

// ValidationError rejects a request before anything is sent to the bank
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
