package transitions

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/v9"
	"github.com/zeu5/tickrl/types"
)

type RedisConfig struct {
	Addr   string
	Stream string
	// approximate cap on the stream length, 0 keeps everything
	MaxLen    int64
	QueueSize int
	Timeout   time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		Stream:    "tickrl:transitions",
		MaxLen:    100000,
		QueueSize: 4096,
		Timeout:   2 * time.Second,
	}
}

// RedisLogger appends transitions to a redis stream from a background goroutine.
// LogTransition never blocks, a full queue drops the transition.
type RedisLogger struct {
	client *redis.Client
	config RedisConfig
	logger log.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Record
	wg     sync.WaitGroup

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

var _ types.TransitionLogger = &RedisLogger{}

// NewRedisLogger connects to the server and starts the writer
func NewRedisLogger(ctx context.Context, config RedisConfig, logger log.Logger) (*RedisLogger, error) {
	client := redis.NewClient(&redis.Options{
		Addr: config.Addr,
	})
	pingCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(config.Timeout))
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", config.Addr, err)
	}
	return newRedisLogger(client, config, logger), nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultRedisConfig().Timeout
	}
	return d
}

func newRedisLogger(client *redis.Client, config RedisConfig, logger log.Logger) *RedisLogger {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultRedisConfig().QueueSize
	}
	if config.Stream == "" {
		config.Stream = DefaultRedisConfig().Stream
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	r := &RedisLogger{
		client: client,
		config: config,
		logger: log.With(logger, "component", "redis-transitions"),
		queue:  make(chan Record, config.QueueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *RedisLogger) run() {
	defer r.wg.Done()
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), timeoutOrDefault(r.config.Timeout))
		err := r.client.XAdd(ctx, &redis.XAddArgs{
			Stream: r.config.Stream,
			MaxLen: r.config.MaxLen,
			Approx: r.config.MaxLen > 0,
			Values: rec.Values(),
		}).Err()
		cancel()
		if err != nil {
			n := r.failed.Add(1)
			if n == 1 || n%100 == 0 {
				level.Warn(r.logger).Log("msg", "failed to append transition", "failures", n, "err", err)
			}
			continue
		}
		r.written.Add(1)
	}
}

func (r *RedisLogger) LogTransition(state types.Observation, action types.Action, reward float64, next types.Observation, done bool) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil
	}
	select {
	case r.queue <- NewRecord(state, action, reward, next, done):
		return nil
	default:
		r.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close drains the queue and closes the client, only the first call has an effect
func (r *RedisLogger) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	level.Info(r.logger).Log("msg", "closed", "written", r.written.Load(), "dropped", r.dropped.Load(), "failed", r.failed.Load())
	return r.client.Close()
}

func (r *RedisLogger) Written() int64 {
	return r.written.Load()
}

func (r *RedisLogger) Dropped() int64 {
	return r.dropped.Load()
}

func (r *RedisLogger) Failed() int64 {
	return r.failed.Load()
}

// ReadRecent returns the last n transitions of the stream, newest first
func ReadRecent(ctx context.Context, client *redis.Client, stream string, n int64) ([]Record, error) {
	msgs, err := client.XRevRangeN(ctx, stream, "+", "-", n).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(msgs))
	for _, m := range msgs {
		rec, err := ParseValues(m.Values)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
