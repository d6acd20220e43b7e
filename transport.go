package runway

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/runway/service/messaging"
	"github.com/viant/runway/service/messaging/fs"
	"github.com/viant/runway/service/messaging/memory"
	"github.com/viant/runway/service/messaging/redis"
)

// Transport opens named queues on the configured vendor. Memory queues are
// shared per name so stages running in one process exchange messages.
type Transport struct {
	config TransportConfig
	mu     sync.Mutex
	queues map[string]messaging.Queue[json.RawMessage]
}

// NewTransport creates a transport for config
func NewTransport(config TransportConfig) *Transport {
	return &Transport{config: config, queues: make(map[string]messaging.Queue[json.RawMessage])}
}

// Queue returns the queue bound to name, opening it on first use
func (t *Transport) Queue(ctx context.Context, name string) (messaging.Queue[json.RawMessage], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if queue, ok := t.queues[name]; ok {
		return queue, nil
	}
	queue, err := NewQueue(ctx, t.config, name)
	if err != nil {
		return nil, err
	}
	t.queues[name] = queue
	return queue, nil
}

// Close releases every opened queue that holds resources
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ret error
	for name, queue := range t.queues {
		if closer, ok := queue.(messaging.Closer); ok {
			if err := closer.Close(); err != nil && ret == nil {
				ret = fmt.Errorf("failed to close %s: %w", name, err)
			}
		}
		delete(t.queues, name)
	}
	return ret
}

// NewQueue opens a fresh queue for name on the configured vendor
func NewQueue(ctx context.Context, config TransportConfig, name string) (messaging.Queue[json.RawMessage], error) {
	switch config.Vendor {
	case messaging.VendorMemory, "":
		return memory.NewQueue[json.RawMessage](config.Memory), nil
	case messaging.VendorFS:
		fsConfig := config.FS
		if fsConfig.BasePath == "" {
			fsConfig.BasePath = fs.DefaultConfig().BasePath
		}
		fsConfig.BasePath = path.Join(fsConfig.BasePath, name)
		queue, err := fs.NewQueue[json.RawMessage](afs.New(), fsConfig)
		if err != nil {
			return nil, err
		}
		return queue, nil
	case messaging.VendorRedis:
		queue, err := redis.NewQueue[json.RawMessage](ctx, name, config.Redis)
		if err != nil {
			return nil, err
		}
		return queue, nil
	}
	return nil, fmt.Errorf("unsupported transport vendor: %q", config.Vendor)
}
