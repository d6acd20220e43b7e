package idgen

import "github.com/google/uuid"

// PlaneIDLength is the number of characters kept from a UUID for plane identifiers.
const PlaneIDLength = 8

// NewFunc returns a new globally unique identifier.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier as string.
func New() string { return NewFunc() }

// NewPlaneID returns a short plane call sign derived from a UUID.
func NewPlaneID() string {
	id := NewFunc()
	if len(id) > PlaneIDLength {
		return id[:PlaneIDLength]
	}
	return id
}
