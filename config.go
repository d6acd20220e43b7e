package runway

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/runway/service/allocator"
	"github.com/viant/runway/service/atc"
	"github.com/viant/runway/service/messaging"
	"github.com/viant/runway/service/messaging/fs"
	"github.com/viant/runway/service/messaging/memory"
	"github.com/viant/runway/service/messaging/redis"
	"github.com/viant/runway/service/processor"
	"github.com/viant/runway/service/stats"
	"github.com/viant/runway/service/traffic"
	"github.com/viant/runway/tracing"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from YAML or JSON; fields left out keep their defaults.
type Config struct {
	Runways   []string         `json:"runways" yaml:"runways"`
	Processor processor.Config `json:"processor" yaml:"processor"`
	ATC       atc.Config       `json:"atc" yaml:"atc"`

	// DrainInterval bounds one transport wait so that outcomes are reported at least this often
	DrainInterval time.Duration   `json:"drainInterval" yaml:"drainInterval"`
	Transport     TransportConfig `json:"transport" yaml:"transport"`
	Audit         AuditConfig     `json:"audit" yaml:"audit"`
	Stats         StatsConfig     `json:"stats" yaml:"stats"`
	Tracing       tracing.Config  `json:"tracing" yaml:"tracing"`
	Traffic       traffic.Config  `json:"traffic" yaml:"traffic"`
}

// TransportConfig selects and configures the message transport
type TransportConfig struct {
	Vendor messaging.Vendor `json:"vendor" yaml:"vendor"`
	Memory memory.Config    `json:"memory" yaml:"memory"`
	FS     fs.QueueConfig   `json:"fs" yaml:"fs"`
	Redis  redis.Config     `json:"redis" yaml:"redis"`
}

// AuditConfig selects the decision record store; an empty driver disables auditing
type AuditConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	Path   string `json:"path" yaml:"path"`
}

// StatsConfig selects the outcome counters sink; an empty driver disables stats
type StatsConfig struct {
	Driver string       `json:"driver" yaml:"driver"`
	Redis  stats.Config `json:"redis" yaml:"redis"`
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// DefaultConfig returns a Config populated with package defaults
func DefaultConfig() *Config {
	return &Config{
		Runways:       allocator.DefaultConfig().Runways,
		Processor:     processor.DefaultConfig(),
		ATC:           atc.DefaultConfig(),
		DrainInterval: 100 * time.Millisecond,
		Transport: TransportConfig{
			Vendor: messaging.VendorMemory,
			Memory: memory.DefaultConfig(),
			FS:     fs.DefaultConfig(),
			Redis:  redis.DefaultConfig(),
		},
		Audit:   AuditConfig{Driver: DriverMemory},
		Stats:   StatsConfig{Driver: DriverMemory, Redis: stats.Config{Addr: "localhost:6379", Prefix: "runway:stats", TTL: 24 * time.Hour}},
		Tracing: tracing.DefaultConfig(),
		Traffic: traffic.DefaultConfig(),
	}
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := (allocator.Config{Runways: c.Runways}).Validate(); err != nil {
		return fmt.Errorf("runways: %w", err)
	}
	if err := c.Processor.Validate(); err != nil {
		return fmt.Errorf("processor: %w", err)
	}
	if err := c.ATC.Validate(); err != nil {
		return fmt.Errorf("atc: %w", err)
	}
	if c.DrainInterval <= 0 {
		return fmt.Errorf("drainInterval must be > 0")
	}
	switch c.Transport.Vendor {
	case messaging.VendorMemory, messaging.VendorFS, messaging.VendorRedis:
	default:
		return fmt.Errorf("unsupported transport vendor: %q", c.Transport.Vendor)
	}
	switch c.Audit.Driver {
	case "", DriverMemory:
	case DriverSQLite:
		if c.Audit.Path == "" {
			return fmt.Errorf("audit.path is required for %s", DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported audit driver: %q", c.Audit.Driver)
	}
	switch c.Stats.Driver {
	case "", DriverMemory, DriverRedis:
	default:
		return fmt.Errorf("unsupported stats driver: %q", c.Stats.Driver)
	}
	return nil
}

// LoadConfig reads a YAML config from any afs supported URL on top of the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	return DecodeConfig(data)
}

// DecodeConfig decodes YAML (or JSON) on top of the defaults and validates the result.
func DecodeConfig(data []byte) (*Config, error) {
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
