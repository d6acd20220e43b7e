package reporter

import (
	"github.com/viant/runway/progress"
	"github.com/viant/runway/service/audit"
	"github.com/viant/runway/service/stats"
)

// Option configures the reporter
type Option func(*Reporter)

// WithProgress sets the counters tracker
func WithProgress(tracker *progress.Progress) Option {
	return func(r *Reporter) {
		r.progress = tracker
	}
}

// WithAudit sets the decision recorder
func WithAudit(recorder audit.Recorder) Option {
	return func(r *Reporter) {
		r.audit = recorder
	}
}

// WithStats sets the outcome counters sink
func WithStats(recorder stats.Recorder) Option {
	return func(r *Reporter) {
		r.stats = recorder
	}
}
