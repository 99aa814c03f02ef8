package chat

import "strings"

// ValidationError reports missing or malformed input. It is returned before
// any store access happens.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func missingFields(fields ...string) *ValidationError {
	msg := "Missing required fields: " + strings.Join(fields, ", ")
	if len(fields) == 2 {
		msg = "Missing required fields: " + fields[0] + " and " + fields[1]
	}
	return &ValidationError{Fields: fields, Message: msg}
}

// StoreError wraps a failure talking to Redis or preparing a value for it.
// Store errors are never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
