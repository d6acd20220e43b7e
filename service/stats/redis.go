package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/viant/runway/model"
)

// Config for the redis recorder
type Config struct {
	Addr   string        `json:"addr" yaml:"addr"`
	Prefix string        `json:"prefix" yaml:"prefix"`
	TTL    time.Duration `json:"ttl" yaml:"ttl"`
}

// Redis writes counters to hashes: a cumulative total, per-minute buckets
// with TTL, and landings per runway.
type Redis struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures the redis recorder
type RedisOption func(*Redis)

// WithPrefix sets the key prefix
func WithPrefix(prefix string) RedisOption {
	return func(s *Redis) { s.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets the bucket expiration; 0 keeps buckets forever
func WithTTL(d time.Duration) RedisOption {
	return func(s *Redis) { s.ttl = d }
}

// NewRedis creates a redis recorder
func NewRedis(rdb goredis.UniversalClient, opts ...RedisOption) *Redis {
	s := &Redis{
		rdb:    rdb,
		prefix: "runway:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record increments counters in a single pipeline
func (s *Redis) Record(ctx context.Context, outcome model.Outcome) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	field := string(outcome.Verdict)
	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.totalKey(), field, 1)

	bucketKey := s.bucketKey(outcome.At)
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}
	if outcome.Runway != "" {
		pipe.HIncrBy(ctx, s.runwayKey(), outcome.Runway, 1)
	}
	if outcome.Priority != "" {
		pipe.HIncrBy(ctx, s.totalKey(), outcome.Priority+":"+field, 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Total reads the cumulative counters
func (s *Redis) Total(ctx context.Context) (Counters, error) {
	values, err := s.rdb.HGetAll(ctx, s.totalKey()).Result()
	if err != nil {
		return Counters{}, err
	}
	var ret Counters
	if ret.Confirmed, err = parseCount(values[string(model.VerdictConfirm)]); err != nil {
		return ret, err
	}
	ret.Retried, err = parseCount(values[string(model.VerdictRetry)])
	return ret, err
}

// Runways reads landings per runway
func (s *Redis) Runways(ctx context.Context) (map[string]int64, error) {
	values, err := s.rdb.HGetAll(ctx, s.runwayKey()).Result()
	if err != nil {
		return nil, err
	}
	ret := make(map[string]int64, len(values))
	for runway, value := range values {
		if ret[runway], err = parseCount(value); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func parseCount(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	count, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid counter value %q: %w", v, err)
	}
	return count, nil
}

func (s *Redis) totalKey() string {
	return s.prefix + ":total"
}

func (s *Redis) runwayKey() string {
	return s.prefix + ":runway"
}

func (s *Redis) bucketKey(at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
}

var _ Recorder = (*Redis)(nil)
