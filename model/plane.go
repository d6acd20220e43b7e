package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPriority is returned for priority values outside emergency/vip/normal.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidCategory is returned for plane types outside small/medium/large.
	ErrInvalidCategory = errors.New("invalid plane type")

	// ErrMalformedRequest wraps every decode failure of a landing request.
	ErrMalformedRequest = errors.New("malformed landing request")
)

// Category describes a plane size. It is descriptive only and never used for scheduling.
type Category string

const (
	CategorySmall  Category = "small"
	CategoryMedium Category = "medium"
	CategoryLarge  Category = "large"
)

// Categories lists all known plane categories.
var Categories = []Category{CategorySmall, CategoryMedium, CategoryLarge}

// ParseCategory converts a wire value into a Category.
func ParseCategory(value string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(value))); c {
	case CategorySmall, CategoryMedium, CategoryLarge:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, value)
}

// Priority is a priority class; lower values are admitted first.
type Priority int

const (
	PriorityEmergency Priority = iota
	PriorityVIP
	PriorityNormal
)

// Priorities lists all priority classes in admission order.
var Priorities = []Priority{PriorityEmergency, PriorityVIP, PriorityNormal}

var priorityNames = map[Priority]string{
	PriorityEmergency: "emergency",
	PriorityVIP:       "vip",
	PriorityNormal:    "normal",
}

// String returns the wire name of the priority class.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority converts a wire value into a Priority.
func ParsePriority(value string) (Priority, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for p, name := range priorityNames {
		if name == normalized {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, value)
}

// MarshalJSON encodes the priority as its wire name.
func (p Priority) MarshalJSON() ([]byte, error) {
	if _, ok := priorityNames[p]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes the priority from its wire name.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPriority, err)
	}
	parsed, err := ParsePriority(value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Request represents a landing request. It is immutable once decoded.
type Request struct {
	PlaneID   string   `json:"plane_id" yaml:"planeId"`
	PlaneType Category `json:"plane_type" yaml:"planeType"`
	Priority  Priority `json:"priority" yaml:"priority"`
}

// NewRequest builds a validated request.
func NewRequest(planeID string, planeType Category, priority Priority) (*Request, error) {
	ret := &Request{PlaneID: planeID, PlaneType: planeType, Priority: priority}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Validate checks that all fields hold known values.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrMalformedRequest)
	}
	if strings.TrimSpace(r.PlaneID) == "" {
		return fmt.Errorf("%w: missing plane_id", ErrMalformedRequest)
	}
	if _, err := ParseCategory(string(r.PlaneType)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if _, ok := priorityNames[r.Priority]; !ok {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, ErrInvalidPriority)
	}
	return nil
}

// Encode returns the JSON wire form of the request.
func (r *Request) Encode() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// String returns a compact description used in log lines.
func (r *Request) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%s, %s)", r.PlaneID, r.PlaneType, r.Priority)
}

type wireRequest struct {
	PlaneID   *string `json:"plane_id"`
	PlaneType *string `json:"plane_type"`
	Priority  *string `json:"priority"`
}

// DecodeRequest decodes and validates a landing request from its JSON wire form.
func DecodeRequest(data []byte) (*Request, error) {
	wire := wireRequest{}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if wire.PlaneID == nil || wire.PlaneType == nil || wire.Priority == nil {
		return nil, fmt.Errorf("%w: plane_id, plane_type and priority are required", ErrMalformedRequest)
	}
	category, err := ParseCategory(*wire.PlaneType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	priority, err := ParsePriority(*wire.Priority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return NewRequest(*wire.PlaneID, category, priority)
}
