package infra

import (
	"context"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-deid/internal/request"
	"github.com/ruslano69/tdtp-deid/pkg/metrics"
	"github.com/ruslano69/tdtp-deid/pkg/plan"
	"github.com/ruslano69/tdtp-deid/pkg/resilience"
	"github.com/ruslano69/tdtp-deid/pkg/resultlog"
)

// Infra holds all live infrastructure handles for the running service.
type Infra struct {
	Redis     *redis.Client             // nil when neither result_log nor dev mode is enabled
	ResultLog *resultlog.RedisPublisher // nil when disabled
	Requests  *request.Tracker          // nil when Redis is unavailable

	// dev-mode internal instance; nil in production
	mini *miniredis.Miniredis
}

// Setup initialises Redis.
//   - dev=true: starts an in-process miniredis and enables the result log under name "dev"
//     unless result_log is configured.
//   - dev=false: connects to result_log.address when result_log.type is redis.
func Setup(ctx context.Context, cfg *Config, dev bool) (*Infra, error) {
	inf := &Infra{}
	rl := cfg.ResultLog

	switch {
	case dev:
		var err error
		inf.mini, err = miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("infra: miniredis: %w", err)
		}
		if !rl.Enabled() {
			rl = resultlog.Config{Type: "redis", Name: "dev"}
		}
		rl.Address = inf.mini.Addr()
		rl.Password = ""
		log.Info().Str("redis", inf.mini.Addr()).Msg("dev: in-process miniredis started")
	case !rl.Enabled():
		return inf, nil
	}

	inf.Redis = redis.NewClient(&redis.Options{
		Addr:     rl.Address,
		Password: rl.Password,
		DB:       rl.DB,
	})
	if err := inf.Redis.Ping(ctx).Err(); err != nil {
		inf.Close()
		return nil, fmt.Errorf("infra: redis ping: %w", err)
	}

	breaker, err := resilience.New("redis", cfg.RedisBreaker, resilience.WithStateChange(onBreakerChange))
	if err != nil {
		inf.Close()
		return nil, fmt.Errorf("infra: %w", err)
	}

	inf.ResultLog = resultlog.NewRedisPublisherWithClient(inf.Redis, rl)
	inf.Requests = request.New(inf.Redis, request.WithBreaker(breaker))
	return inf, nil
}

func onBreakerChange(name string, from, to resilience.State) {
	metrics.SetBreakerState(name, int(to))
	if to == resilience.StateOpen {
		log.Warn().Str("breaker", name).Str("from", from.String()).Msg("circuit opened, request tracking paused")
		return
	}
	log.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state changed")
}

// PublishPlan records the plan resolution outcome in the result log (no-op when disabled).
func (inf *Infra) PublishPlan(ctx context.Context, p *plan.Plan, run resultlog.Run, resolveErr error) {
	if inf.ResultLog == nil {
		return
	}
	if err := inf.ResultLog.Publish(ctx, p, run, resolveErr); err != nil {
		log.Warn().Err(err).Msg("result log publish failed")
		return
	}
	log.Info().Str("key", inf.ResultLog.StateKey()).Msg("plan published to result log")
}

// Ping reports Redis health; nil when Redis is not used.
func (inf *Infra) Ping(ctx context.Context) error {
	if inf.Redis == nil {
		return nil
	}
	return inf.Redis.Ping(ctx).Err()
}

// Close releases all infrastructure resources.
func (inf *Infra) Close() {
	if inf.Redis != nil {
		_ = inf.Redis.Close()
	}
	if inf.mini != nil {
		inf.mini.Close()
	}
}
