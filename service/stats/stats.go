// Package stats keeps best-effort outcome counters. A failing sink never
// affects acknowledgment; the reporter only logs the error.
package stats

import (
	"context"

	"github.com/viant/runway/model"
)

// Recorder accumulates reported outcomes
type Recorder interface {
	Record(ctx context.Context, outcome model.Outcome) error
}

// Counters holds totals per verdict
type Counters struct {
	Confirmed int64
	Retried   int64
}

func (c *Counters) add(verdict model.Verdict) {
	if verdict == model.VerdictConfirm {
		c.Confirmed++
		return
	}
	c.Retried++
}
