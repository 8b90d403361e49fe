package service

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when a CRUD operation is issued while the
// service is not in the connected state.
var ErrNotConnected = errors.New("service not connected")

// StoreError reports a failed relational operation. The cache is guaranteed
// untouched when one is returned.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CascadeError reports a multi-step delete that could not complete. No cache
// mutation is applied for the whole operation when one is returned.
type CascadeError struct {
	Step string
	Err  error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade delete, %s: %v", e.Step, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }
