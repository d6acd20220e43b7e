// Package reporter turns worker outcomes into transport acknowledgments.
// The reporter owns every in-flight message: intake registers a message with
// Track and hands workers only the returned tag, so Ack and Nack are called
// from a single goroutine. A Reporter is not safe for concurrent use.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/viant/runway/model"
	"github.com/viant/runway/progress"
	"github.com/viant/runway/service/audit"
	"github.com/viant/runway/service/stats"
	"github.com/viant/runway/tracing"
)

// ErrUnknownDelivery is returned when an outcome refers to an untracked delivery
var ErrUnknownDelivery = errors.New("unknown delivery")

// Delivery is the acknowledgment surface of a transport message
type Delivery interface {
	ID() string
	Ack() error
	Nack(err error) error
}

// Reporter reports outcomes back to the transport
type Reporter struct {
	outcomes   <-chan model.Outcome
	deliveries map[model.DeliveryTag]Delivery
	seq        uint64
	failures   int

	progress *progress.Progress
	audit    audit.Recorder
	stats    stats.Recorder
}

// New creates a reporter reading outcomes
func New(outcomes <-chan model.Outcome, options ...Option) *Reporter {
	r := &Reporter{
		outcomes:   outcomes,
		deliveries: make(map[model.DeliveryTag]Delivery),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Track registers an in-flight message and returns its opaque tag
func (r *Reporter) Track(delivery Delivery) model.DeliveryTag {
	r.seq++
	tag := model.DeliveryTag(delivery.ID() + "#" + strconv.FormatUint(r.seq, 10))
	r.deliveries[tag] = delivery
	return tag
}

// Pending returns the number of tracked, unreported deliveries
func (r *Reporter) Pending() int {
	return len(r.deliveries)
}

// Failures returns the number of outcomes that could not be reported
func (r *Reporter) Failures() int {
	return r.failures
}

// Drain reports every outcome currently available without blocking and
// returns the number handled.
func (r *Reporter) Drain(ctx context.Context) int {
	count := 0
	for {
		select {
		case outcome, ok := <-r.outcomes:
			if !ok {
				return count
			}
			_ = r.Report(ctx, outcome)
			count++
		default:
			return count
		}
	}
}

// Report acknowledges a single outcome: confirm acks, retry nacks with requeue.
// A failure is logged and the outcome dropped.
func (r *Reporter) Report(ctx context.Context, outcome model.Outcome) (err error) {
	_, span := tracing.StartSpan(ctx, "reporter.report", tracing.KindInternal)
	span.WithAttributes(map[string]string{
		"delivery": string(outcome.Delivery),
		"plane.id": outcome.PlaneID,
		"verdict":  string(outcome.Verdict),
	})
	defer func() { tracing.EndSpan(span, err) }()

	delivery, ok := r.deliveries[outcome.Delivery]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownDelivery, outcome.Delivery)
		r.fail(outcome, err)
		return err
	}
	delete(r.deliveries, outcome.Delivery)
	r.progress.Update(progress.Delta{InFlight: -1})

	switch outcome.Verdict {
	case model.VerdictConfirm:
		err = delivery.Ack()
	case model.VerdictRetry:
		err = delivery.Nack(errors.New(outcome.Reason))
	default:
		err = fmt.Errorf("unsupported verdict %q", outcome.Verdict)
	}
	if err != nil {
		r.fail(outcome, err)
		return err
	}

	delta := progress.Delta{Held: 1}
	if outcome.Verdict == model.VerdictConfirm {
		delta = progress.Delta{Landed: 1}
	}
	r.progress.Update(delta)
	r.record(ctx, audit.NewEntry(outcome))
	if r.stats != nil {
		if sErr := r.stats.Record(ctx, outcome); sErr != nil {
			log.Printf("warning: stats record failed for %s: %v", outcome.Delivery, sErr)
		}
	}
	return nil
}

// Discard acknowledges a message that will never be processed, e.g. malformed input.
func (r *Reporter) Discard(ctx context.Context, delivery Delivery, payload []byte, reason string) error {
	tag := r.Track(delivery)
	delete(r.deliveries, tag)
	if err := delivery.Ack(); err != nil {
		r.failures++
		r.progress.Update(progress.Delta{ReportFailures: 1})
		log.Printf("warning: failed to discard %s: %v", tag, err)
		return err
	}
	r.record(ctx, audit.NewDiscard(tag, payload, reason))
	return nil
}

func (r *Reporter) record(ctx context.Context, entry *audit.Entry) {
	if r.audit == nil {
		return
	}
	if err := r.audit.Record(ctx, entry); err != nil {
		log.Printf("warning: audit record failed for %s: %v", entry.Delivery, err)
	}
}

func (r *Reporter) fail(outcome model.Outcome, err error) {
	r.failures++
	r.progress.Update(progress.Delta{ReportFailures: 1})
	log.Printf("warning: failed to report %s for plane %s (%s): %v", outcome.Verdict, outcome.PlaneID, outcome.Delivery, err)
}
