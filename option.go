package runway

import (
	"encoding/json"

	"github.com/viant/runway/progress"
	"github.com/viant/runway/service/audit"
	"github.com/viant/runway/service/messaging"
	"github.com/viant/runway/service/processor"
	"github.com/viant/runway/service/stats"
	"github.com/viant/runway/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures the service
type Option func(s *Service)

// WithConfig sets the service configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithQueues sets the intake and dispatch queues, bypassing the configured transport
func WithQueues(intake, dispatch messaging.Queue[json.RawMessage]) Option {
	return func(s *Service) {
		s.intakeQueue = intake
		s.dispatchQueue = dispatch
	}
}

// WithTransport sets the transport queues are opened on
func WithTransport(transport *Transport) Option {
	return func(s *Service) {
		s.transport = transport
	}
}

// WithAudit sets the decision recorder
func WithAudit(recorder audit.Recorder) Option {
	return func(s *Service) {
		s.audit = recorder
	}
}

// WithStats sets the outcome counters sink
func WithStats(recorder stats.Recorder) Option {
	return func(s *Service) {
		s.stats = recorder
	}
}

// WithProgress sets the counters tracker
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.progress = tracker
	}
}

// WithProcessorListener registers worker outcome listeners
func WithProcessorListener(fns ...processor.Listener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, fns...)
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty spans
// are written to stdout.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom exporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
