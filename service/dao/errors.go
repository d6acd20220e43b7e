package dao

import "errors"

var (
	// ErrNotFound is returned when the requested entity does not exist
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates an empty or otherwise invalid key
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when the caller attempts to persist a nil pointer
	ErrNilEntity = errors.New("dao: nil entity")
)
