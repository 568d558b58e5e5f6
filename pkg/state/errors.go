package state

import "errors"

// Sentinel errors for the state package.
var (
	// ErrConfiguration indicates an invalid property value was rejected.
	ErrConfiguration = errors.New("state: invalid configuration")

	// ErrTypeMismatch indicates a value of the wrong kind was supplied.
	ErrTypeMismatch = errors.New("state: type mismatch")

	// ErrInvalidOperation indicates the call is not allowed in the current context.
	ErrInvalidOperation = errors.New("state: invalid operation")
)
