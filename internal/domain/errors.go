// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the write collided with an existing resource.
var ErrConflict = errors.New("conflict: resource already exists")

// ErrValidation indicates the request failed domain validation.
var ErrValidation = errors.New("validation failed")

// ErrOrderConflict indicates two writers produced the same order key.
// Callers may retry with a freshly fetched list.
var ErrOrderConflict = errors.New("order key conflict")
