// Package traffic generates randomized landing requests for exercising the
// service end to end.
package traffic

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/viant/runway/internal/idgen"
	"github.com/viant/runway/model"
	"github.com/viant/runway/service/messaging"
	"golang.org/x/time/rate"
)

// Config controls pacing
type Config struct {
	// Rate is requests per second; 0 disables pacing
	Rate  float64 `json:"rate" yaml:"rate"`
	Burst int     `json:"burst" yaml:"burst"`
	Seed  int64   `json:"seed" yaml:"seed"`
}

// DefaultConfig staggers arrivals by 100ms
func DefaultConfig() Config {
	return Config{Rate: 10, Burst: 1}
}

// Generator publishes random landing requests
type Generator struct {
	queue   messaging.Queue[json.RawMessage]
	limiter *rate.Limiter
	mu      sync.Mutex
	random  *rand.Rand
}

// New creates a generator publishing to queue
func New(queue messaging.Queue[json.RawMessage], config Config) (*Generator, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ret := &Generator{queue: queue, random: rand.New(rand.NewSource(seed))}
	if config.Rate > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		ret.limiter = rate.NewLimiter(rate.Limit(config.Rate), burst)
	}
	return ret, nil
}

// Next builds a random landing request
func (g *Generator) Next() *model.Request {
	g.mu.Lock()
	category := model.Categories[g.random.Intn(len(model.Categories))]
	priority := model.Priorities[g.random.Intn(len(model.Priorities))]
	g.mu.Unlock()
	return &model.Request{PlaneID: idgen.NewPlaneID(), PlaneType: category, Priority: priority}
}

// Send publishes n requests and returns them in publish order
func (g *Generator) Send(ctx context.Context, n int) ([]*model.Request, error) {
	sent := make([]*model.Request, 0, n)
	for i := 0; i < n; i++ {
		request := g.Next()
		if err := g.Publish(ctx, request); err != nil {
			return sent, err
		}
		sent = append(sent, request)
	}
	return sent, nil
}

// Publish sends one request, waiting for the pacing limiter first
func (g *Generator) Publish(ctx context.Context, request *model.Request) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	data, err := request.Encode()
	if err != nil {
		return err
	}
	raw := json.RawMessage(data)
	if err := g.queue.Publish(ctx, &raw); err != nil {
		return fmt.Errorf("failed to publish %s: %w", request.PlaneID, err)
	}
	log.Printf("traffic: sent landing request %s", request)
	return nil
}
