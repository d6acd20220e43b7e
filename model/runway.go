package model

// RunwayStatus represents runway availability.
type RunwayStatus string

const (
	RunwayAvailable RunwayStatus = "available"
	RunwayBusy      RunwayStatus = "busy"
)

// Runway represents an exclusive-use landing strip.
type Runway struct {
	ID     string       `json:"id" yaml:"id"`
	Status RunwayStatus `json:"status" yaml:"status"`
}

// IsAvailable reports whether the runway can be assigned.
func (r *Runway) IsAvailable() bool {
	return r.Status == RunwayAvailable
}
