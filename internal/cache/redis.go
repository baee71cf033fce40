package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// RedisConfig configures the Redis tier and its circuit breaker.
type RedisConfig struct {
	URL              string
	Prefix           string
	TTL              time.Duration
	Timeout          time.Duration
	MaxRetries       int
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// RedisCache is the shared tier. Every call goes through a circuit breaker so
// an unreachable Redis degrades to cache misses instead of slow requests.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	logger  *logrus.Logger
}

// NewRedisCache creates the Redis tier. The connection is established lazily.
func NewRedisCache(cfg RedisConfig, logger *logrus.Logger) (*RedisCache, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "medsafe:assessment:"
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 200 * time.Millisecond
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.DialTimeout = cfg.Timeout
	opts.ReadTimeout = cfg.Timeout
	opts.WriteTimeout = cfg.Timeout
	if cfg.MaxRetries != 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	settings := gobreaker.Settings{
		Name:        "RedisCache",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &RedisCache{
		client:  redis.NewClient(opts),
		breaker: gobreaker.NewCircuitBreaker(settings),
		prefix:  cfg.Prefix,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	v, err := r.breaker.Execute(func() (interface{}, error) {
		data, err := r.client.Get(ctx, r.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Debug("Redis cache read failed")
		return nil, false
	}
	data, _ := v.([]byte)
	return data, data != nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
	})
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Debug("Redis cache write failed")
	}
}

// State reports the breaker state: closed, half-open or open.
func (r *RedisCache) State() string {
	return r.breaker.State().String()
}

// Ping checks connectivity outside the breaker.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
