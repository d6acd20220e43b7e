package model

import "time"

// DeliveryTag is an opaque transport token identifying one in-flight message.
// It is only ever used to acknowledge the message it came from.
type DeliveryTag string

// Task pairs a landing request with the delivery it arrived on.
type Task struct {
	Request  *Request    `json:"request"`
	Delivery DeliveryTag `json:"delivery"`
	// AdmittedAt is set by the intake adapter.
	AdmittedAt time.Time `json:"admittedAt"`
}

// Verdict is the terminal acknowledgment decision for a delivery.
type Verdict string

const (
	// VerdictConfirm acknowledges the delivery; the transport forgets the message.
	VerdictConfirm Verdict = "confirm"
	// VerdictRetry negatively acknowledges with requeue; the transport redelivers later.
	VerdictRetry Verdict = "retry"
)

// Outcome is produced exactly once per admitted task.
type Outcome struct {
	Delivery DeliveryTag `json:"delivery"`
	Verdict  Verdict     `json:"verdict"`
	PlaneID  string      `json:"planeId,omitempty"`
	Priority string      `json:"priority,omitempty"`
	Runway   string      `json:"runway,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	At       time.Time   `json:"at"`
}

// Confirm returns a confirm outcome for the task.
func (t *Task) Confirm(runway string, at time.Time) Outcome {
	return t.outcome(VerdictConfirm, runway, "", at)
}

// Retry returns a retry outcome for the task.
func (t *Task) Retry(reason string, at time.Time) Outcome {
	return t.outcome(VerdictRetry, "", reason, at)
}

func (t *Task) outcome(verdict Verdict, runway, reason string, at time.Time) Outcome {
	ret := Outcome{Delivery: t.Delivery, Verdict: verdict, Runway: runway, Reason: reason, At: at}
	if t.Request != nil {
		ret.PlaneID = t.Request.PlaneID
		ret.Priority = t.Request.Priority.String()
	}
	return ret
}
