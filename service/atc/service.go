// Package atc is the admission stage: it collects landing requests from the
// intake channel, orders them by priority and forwards them to the dispatch
// channel read by the runway manager.
package atc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/viant/runway/model"
	"github.com/viant/runway/progress"
	"github.com/viant/runway/service/messaging"
	"github.com/viant/runway/service/sequencer"
	"github.com/viant/runway/tracing"
)

// Service runs admission cycles
type Service struct {
	config    Config
	intake    messaging.Queue[json.RawMessage]
	dispatch  messaging.Queue[json.RawMessage]
	sequencer *sequencer.Sequencer
	progress  *progress.Progress
}

// Option configures the service
type Option func(*Service)

// WithConfig sets the admission configuration
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithProgress sets the counters tracker
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) { s.progress = tracker }
}

// New creates the admission stage
func New(intake, dispatch messaging.Queue[json.RawMessage], options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig(), intake: intake, dispatch: dispatch, sequencer: sequencer.New()}
	for _, opt := range options {
		opt(s)
	}
	if s.intake == nil || s.dispatch == nil {
		return nil, fmt.Errorf("intake and dispatch queues are required")
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run executes admission cycles until ctx is done
func (s *Service) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if _, err := s.Cycle(ctx); err != nil && ctx.Err() == nil {
			log.Printf("atc: cycle failed: %v", err)
		}
	}
	return nil
}

// Cycle collects what arrives within one drain interval, then forwards the
// collected requests in priority order. Each intake message is acknowledged
// after its forward publish succeeded and requeued otherwise.
func (s *Service) Cycle(ctx context.Context) (forwarded int, err error) {
	pending, err := s.collect(ctx)
	if len(pending) == 0 {
		return 0, err
	}
	_, span := tracing.StartSpan(ctx, "atc.admit", tracing.KindProducer)
	span.WithAttributes(map[string]string{"batch.size": strconv.Itoa(len(pending))})
	defer func() { tracing.EndSpan(span, err) }()

	log.Printf("atc: queue status: %v", s.sequencer.Snapshot())
	for s.sequencer.Len() > 0 {
		request, popErr := s.sequencer.PopHighestPriority()
		if popErr != nil {
			break
		}
		msg := pending[request]
		delete(pending, request)
		if fErr := s.forward(ctx, request); fErr != nil {
			err = errors.Join(err, fErr)
			if nErr := msg.Nack(fErr); nErr != nil {
				log.Printf("warning: atc: failed to requeue %s: %v", msg.ID(), nErr)
			}
			continue
		}
		if aErr := msg.Ack(); aErr != nil {
			log.Printf("warning: atc: failed to ack %s: %v", msg.ID(), aErr)
		}
		forwarded++
		s.progress.Update(progress.Delta{Dispatched: 1})
		log.Printf("atc: forwarded %s to %s", request.PlaneID, messaging.DispatchChannel)
	}
	return forwarded, err
}

func (s *Service) collect(ctx context.Context) (map[*model.Request]messaging.Message[json.RawMessage], error) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.config.DrainInterval)
	defer cancel()
	pending := make(map[*model.Request]messaging.Message[json.RawMessage])
	for len(pending) < s.config.MaxBatch {
		msg, err := s.intake.Consume(cycleCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return pending, nil
			}
			return pending, err
		}
		s.progress.Update(progress.Delta{Received: 1})
		var payload []byte
		if raw := msg.T(); raw != nil {
			payload = *raw
		}
		request, err := model.DecodeRequest(payload)
		if err != nil {
			s.progress.Update(progress.Delta{Rejected: 1})
			log.Printf("atc: rejected message %s: %v", msg.ID(), err)
			if aErr := msg.Ack(); aErr != nil {
				log.Printf("warning: atc: failed to discard %s: %v", msg.ID(), aErr)
			}
			continue
		}
		log.Printf("atc: received plane %s", request)
		s.sequencer.Push(request)
		pending[request] = msg
	}
	return pending, nil
}

func (s *Service) forward(ctx context.Context, request *model.Request) error {
	data, err := request.Encode()
	if err != nil {
		return err
	}
	raw := json.RawMessage(data)
	return s.dispatch.Publish(ctx, &raw)
}
