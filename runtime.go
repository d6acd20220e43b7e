package runway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/viant/runway/service/atc"
	"github.com/viant/runway/service/intake"
	"github.com/viant/runway/service/messaging"
	"github.com/viant/runway/service/processor"
	"github.com/viant/runway/service/reporter"
)

// Runtime drives the stages. The runway manager loop is the only goroutine
// touching the dispatch transport and the reporter; workers run separately.
type Runtime struct {
	dispatch      messaging.Queue[json.RawMessage]
	processor     *processor.Service
	reporter      *reporter.Reporter
	intake        *intake.Adapter
	atc           *atc.Service
	drainInterval time.Duration
}

// Serve runs the admission stage and the runway manager until ctx is done
func (r *Runtime) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.atc.Run(ctx)
	}()
	err := r.Run(ctx)
	wg.Wait()
	return err
}

// RunATC runs only the admission stage until ctx is done
func (r *Runtime) RunATC(ctx context.Context) error {
	return r.atc.Run(ctx)
}

// Run is the runway manager loop: consume one dispatch message bounded by the
// drain interval, hand it to intake, then report every completed outcome.
// On cancellation the workers finish their tasks and all outcomes are reported.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.processor.Start(ctx); err != nil {
		return err
	}
	log.Printf("runway manager: listening on %s", messaging.DispatchChannel)
	for ctx.Err() == nil {
		r.step(ctx)
	}
	r.shutdown(context.WithoutCancel(ctx))
	return nil
}

func (r *Runtime) step(ctx context.Context) {
	consumeCtx, cancel := context.WithTimeout(ctx, r.drainInterval)
	msg, err := r.dispatch.Consume(consumeCtx)
	cancel()
	switch {
	case err == nil:
		if hErr := r.intake.Handle(ctx, msg); hErr != nil {
			log.Printf("warning: runway manager: %v", hErr)
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
	default:
		log.Printf("runway manager: consume failed: %v", err)
		time.Sleep(r.drainInterval)
	}
	r.reporter.Drain(ctx)
}

func (r *Runtime) shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		r.processor.StopWait()
		close(done)
	}()
	outcomes := r.processor.Outcomes()
	for {
		select {
		case outcome := <-outcomes:
			_ = r.reporter.Report(ctx, outcome)
		case <-done:
			r.reporter.Drain(ctx)
			if pending := r.reporter.Pending(); pending > 0 {
				log.Printf("warning: runway manager: %d deliveries left unreported", pending)
			}
			log.Printf("runway manager: stopped")
			return
		}
	}
}
