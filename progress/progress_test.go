package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	p := New()
	var last Counters
	p.OnChange(func(c Counters) { last = c })

	p.Update(Delta{Received: 1, InFlight: 1})
	p.Update(Delta{Landed: 1, InFlight: -1})

	snapshot := p.Snapshot()
	assert.Equal(t, 1, snapshot.Received)
	assert.Equal(t, 1, snapshot.Landed)
	assert.Equal(t, 0, snapshot.InFlight)
	assert.Equal(t, snapshot, last)
	assert.False(t, snapshot.StartedAt.IsZero())
}

func TestProgress_Concurrent(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Update(Delta{Held: 1})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, p.Snapshot().Held)
}

func TestProgress_Context(t *testing.T) {
	UpdateCtx(context.Background(), Delta{Received: 1})

	p := New()
	ctx := WithTracker(context.Background(), p)
	UpdateCtx(ctx, Delta{Rejected: 2})
	tracker, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, 2, tracker.Snapshot().Rejected)

	var nilTracker *Progress
	nilTracker.Update(Delta{Received: 1})
	assert.Equal(t, Counters{}, nilTracker.Snapshot())
}
