package runway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	goredis "github.com/redis/go-redis/v9"
	"github.com/viant/runway/progress"
	"github.com/viant/runway/service/allocator"
	"github.com/viant/runway/service/atc"
	"github.com/viant/runway/service/audit"
	"github.com/viant/runway/service/audit/sqlite"
	"github.com/viant/runway/service/intake"
	"github.com/viant/runway/service/messaging"
	"github.com/viant/runway/service/processor"
	"github.com/viant/runway/service/reporter"
	"github.com/viant/runway/service/stats"
	"github.com/viant/runway/service/traffic"
	"github.com/viant/runway/tracing"
)

// Service wires the admission stage, the runway pool, the workers and the reporter
type Service struct {
	config        *Config
	transport     *Transport
	intakeQueue   messaging.Queue[json.RawMessage]
	dispatchQueue messaging.Queue[json.RawMessage]
	pool          *allocator.Pool
	processor     *processor.Service
	reporter      *reporter.Reporter
	intake        *intake.Adapter
	atc           *atc.Service
	progress      *progress.Progress
	audit         audit.Recorder
	stats         stats.Recorder
	listeners     []processor.Listener
	closers       []io.Closer
	runtime       *Runtime
}

func (s *Service) init(ctx context.Context, options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if err := tracing.Setup(s.config.Tracing); err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	if err := s.ensureBaseSetup(ctx); err != nil {
		return err
	}

	var err error
	if s.pool, err = allocator.NewFromConfig(allocator.Config{Runways: s.config.Runways}); err != nil {
		return err
	}
	s.processor, err = processor.New(
		processor.WithConfig(s.config.Processor),
		processor.WithAllocator(s.pool),
		processor.WithListener(s.listeners...),
	)
	if err != nil {
		return err
	}
	s.reporter = reporter.New(s.processor.Outcomes(),
		reporter.WithProgress(s.progress),
		reporter.WithAudit(s.audit),
		reporter.WithStats(s.stats),
	)
	if s.intake, err = intake.New(s.processor, s.reporter, s.progress); err != nil {
		return err
	}
	s.atc, err = atc.New(s.intakeQueue, s.dispatchQueue, atc.WithConfig(s.config.ATC), atc.WithProgress(s.progress))
	if err != nil {
		return err
	}
	s.runtime = &Runtime{
		dispatch:      s.dispatchQueue,
		processor:     s.processor,
		reporter:      s.reporter,
		intake:        s.intake,
		atc:           s.atc,
		drainInterval: s.config.DrainInterval,
	}
	return nil
}

func (s *Service) ensureBaseSetup(ctx context.Context) error {
	if s.progress == nil {
		s.progress = progress.New()
	}
	if s.intakeQueue == nil || s.dispatchQueue == nil {
		if s.transport == nil {
			s.transport = NewTransport(s.config.Transport)
			s.closers = append(s.closers, s.transport)
		}
		var err error
		if s.intakeQueue, err = s.transport.Queue(ctx, messaging.IntakeChannel); err != nil {
			return err
		}
		if s.dispatchQueue, err = s.transport.Queue(ctx, messaging.DispatchChannel); err != nil {
			return err
		}
	}
	if s.audit == nil {
		switch s.config.Audit.Driver {
		case DriverMemory:
			s.audit = audit.NewMemory()
		case DriverSQLite:
			store, err := sqlite.New(s.config.Audit.Path)
			if err != nil {
				return err
			}
			s.audit = store
			s.closers = append(s.closers, store)
		}
	}
	if s.stats == nil {
		switch s.config.Stats.Driver {
		case DriverMemory:
			s.stats = stats.NewMemory()
		case DriverRedis:
			client := goredis.NewClient(&goredis.Options{Addr: s.config.Stats.Redis.Addr})
			s.stats = stats.NewRedis(client, stats.WithPrefix(s.config.Stats.Redis.Prefix), stats.WithTTL(s.config.Stats.Redis.TTL))
			s.closers = append(s.closers, client)
		}
	}
	return nil
}

// Runtime returns the service runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// Progress returns the counters tracker
func (s *Service) Progress() *progress.Progress {
	return s.progress
}

// Audit returns the decision recorder, nil when auditing is disabled
func (s *Service) Audit() audit.Recorder {
	return s.audit
}

// Stats returns the outcome counters sink, nil when disabled
func (s *Service) Stats() stats.Recorder {
	return s.stats
}

// Pool returns the runway pool
func (s *Service) Pool() *allocator.Pool {
	return s.pool
}

// IntakeQueue returns the queue landing requests arrive on
func (s *Service) IntakeQueue() messaging.Queue[json.RawMessage] {
	return s.intakeQueue
}

// DispatchQueue returns the queue the runway manager consumes
func (s *Service) DispatchQueue() messaging.Queue[json.RawMessage] {
	return s.dispatchQueue
}

// Traffic returns a generator publishing to the intake queue
func (s *Service) Traffic() (*traffic.Generator, error) {
	return traffic.New(s.intakeQueue, s.config.Traffic)
}

// Close releases transport, audit and stats resources
func (s *Service) Close() error {
	var ret error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && ret == nil {
			ret = err
		}
	}
	s.closers = nil
	return ret
}

// New creates a service
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	if err := ret.init(context.Background(), options); err != nil {
		_ = ret.Close()
		return nil, err
	}
	return ret, nil
}
