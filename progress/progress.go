package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by intake, the
// workers or the reporter. Fields are signed so callers can decrement.
type Delta struct {
	Received       int
	Rejected       int
	Dispatched     int
	Landed         int
	Held           int
	ReportFailures int
	InFlight       int
}

// Counters is a point-in-time view of the tracker. Received and Rejected are
// counted by every stage consuming a message, so a request passing both the
// admission stage and the runway manager is received twice.
type Counters struct {
	StartedAt time.Time

	Received       int
	Rejected       int
	Dispatched     int
	Landed         int
	Held           int
	ReportFailures int
	InFlight       int
}

// Progress keeps aggregated landing counters. It is safe for concurrent use.
type Progress struct {
	mu       sync.Mutex
	counters Counters
	onChange func(Counters)
}

// New creates a tracker started now.
func New() *Progress {
	return &Progress{counters: Counters{StartedAt: time.Now()}}
}

// Update applies the supplied delta. The onChange callback, when set, receives
// a copy of the updated counters outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	c := &p.counters
	c.Received += d.Received
	c.Rejected += d.Rejected
	c.Dispatched += d.Dispatched
	c.Landed += d.Landed
	c.Held += d.Held
	c.ReportFailures += d.ReportFailures
	c.InFlight += d.InFlight
	snapshot := p.counters
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it; only one callback can be active.
func (p *Progress) OnChange(cb func(Counters)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds tracker in a derived context.
func WithTracker(ctx context.Context, tracker *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tracker)
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx looks up the tracker in ctx (if any) and applies the delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
