// Package intake decodes transport messages into landing tasks and hands them
// to the worker pool without blocking the transport loop.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/viant/runway/internal/clock"
	"github.com/viant/runway/model"
	"github.com/viant/runway/progress"
	"github.com/viant/runway/service/messaging"
	"github.com/viant/runway/service/reporter"
)

// Submitter accepts tasks without blocking
type Submitter interface {
	Submit(task *model.Task) error
}

// Reporter owns message acknowledgment
type Reporter interface {
	Track(delivery reporter.Delivery) model.DeliveryTag
	Report(ctx context.Context, outcome model.Outcome) error
	Discard(ctx context.Context, delivery reporter.Delivery, payload []byte, reason string) error
}

// Adapter converts messages into tasks
type Adapter struct {
	submitter Submitter
	reporter  Reporter
	progress  *progress.Progress
}

// New creates an intake adapter; tracker may be nil
func New(submitter Submitter, reporter Reporter, tracker *progress.Progress) (*Adapter, error) {
	if submitter == nil {
		return nil, fmt.Errorf("submitter is required")
	}
	if reporter == nil {
		return nil, fmt.Errorf("reporter is required")
	}
	return &Adapter{submitter: submitter, reporter: reporter, progress: tracker}, nil
}

// Handle decodes msg and submits a task. Malformed payloads are rejected and
// discarded; a full worker queue is reported as retry right away.
func (a *Adapter) Handle(ctx context.Context, msg messaging.Message[json.RawMessage]) error {
	var payload []byte
	if raw := msg.T(); raw != nil {
		payload = *raw
	}
	a.progress.Update(progress.Delta{Received: 1})

	request, err := model.DecodeRequest(payload)
	if err != nil {
		a.progress.Update(progress.Delta{Rejected: 1})
		log.Printf("intake: rejected message %s: %v", msg.ID(), err)
		return a.reporter.Discard(ctx, msg, payload, err.Error())
	}

	task := &model.Task{Request: request, Delivery: a.reporter.Track(msg), AdmittedAt: clock.Now()}
	a.progress.Update(progress.Delta{InFlight: 1})
	if err := a.submitter.Submit(task); err != nil {
		log.Printf("intake: plane %s not admitted: %v", request.PlaneID, err)
		return a.reporter.Report(ctx, task.Retry(err.Error(), clock.Now()))
	}
	log.Printf("intake: plane %s (%s, %s) admitted", request.PlaneID, request.PlaneType, request.Priority)
	return nil
}
