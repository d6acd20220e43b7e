// Package audit keeps a landing decision record for every reported delivery.
// Records are an append-only history of decisions; they never feed queue or
// runway state.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/viant/runway/internal/idgen"
	"github.com/viant/runway/model"
)

// Decision is the reported result of a delivery
type Decision string

const (
	DecisionLanded    Decision = "landed"
	DecisionHeld      Decision = "held"
	DecisionDiscarded Decision = "discarded"
)

// Entry is a landing decision record
type Entry struct {
	ID         string    `json:"id"`
	Delivery   string    `json:"delivery"`
	PlaneID    string    `json:"plane_id,omitempty"`
	Priority   string    `json:"priority,omitempty"`
	Decision   Decision  `json:"decision"`
	Runway     string    `json:"runway,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	InputsHash string    `json:"inputs_hash"`
	Timestamp  time.Time `json:"timestamp"`
}

// Recorder persists decision records
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context, planeID string) ([]*Entry, error)
}

// NewEntry builds a record for a reported outcome
func NewEntry(outcome model.Outcome) *Entry {
	decision := DecisionHeld
	if outcome.Verdict == model.VerdictConfirm {
		decision = DecisionLanded
	}
	return &Entry{
		ID:         idgen.New(),
		Delivery:   string(outcome.Delivery),
		PlaneID:    outcome.PlaneID,
		Priority:   outcome.Priority,
		Decision:   decision,
		Runway:     outcome.Runway,
		Reason:     outcome.Reason,
		InputsHash: hashInputs(outcome),
		Timestamp:  timestamp(outcome.At),
	}
}

// NewDiscard builds a record for a rejected message
func NewDiscard(delivery model.DeliveryTag, payload []byte, reason string) *Entry {
	return &Entry{
		ID:         idgen.New(),
		Delivery:   string(delivery),
		Decision:   DecisionDiscarded,
		Reason:     reason,
		InputsHash: hashInputs(json.RawMessage(validJSON(payload))),
		Timestamp:  timestamp(time.Time{}),
	}
}

func timestamp(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}

func validJSON(payload []byte) []byte {
	if json.Valid(payload) {
		return payload
	}
	quoted, _ := json.Marshal(string(payload))
	return quoted
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
