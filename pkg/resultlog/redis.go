package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/tdtp-deid/pkg/plan"
)

// Статусы разрешения плана
const (
	StatusResolved = "resolved"
	StatusFailed   = "failed"
)

// Config определяет параметры публикации плана.
// Позволяет оркестратору узнать, какой план применяет сервис (GET/SUBSCRIBE).
type Config struct {
	Type     string `yaml:"type"`     // Тип: redis (пустое = отключено)
	Address  string `yaml:"address"`  // Адрес Redis, например "127.0.0.1:6379"
	Name     string `yaml:"name"`     // Имя сервиса (ключ/канал), например "PATIENTS_V1"
	Password string `yaml:"password"` // Пароль Redis (опционально)
	DB       int    `yaml:"db"`       // Индекс базы данных Redis (по умолчанию 0)
	TTL      int    `yaml:"ttl"`      // TTL ключа в секундах (по умолчанию 3600)
}

// Enabled сообщает, включена ли публикация
func (c *Config) Enabled() bool {
	return c.Type != "" && c.Type != "none"
}

// Validate проверяет корректность Config
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Type != "redis" {
		return fmt.Errorf("unsupported type '%s', must be 'redis'", c.Type)
	}
	if c.Address == "" {
		return fmt.Errorf("address is required when type is 'redis'")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required when type is 'redis'")
	}
	if c.TTL < 0 {
		return fmt.Errorf("ttl must be >= 0")
	}
	return nil
}

// PlanResult - состояние разрешения плана, публикуемое в Redis.
//
// Redis-ключи:
//
//	SET  deid:plan:<name>:state  <JSON>  EX <ttl>  - для GET-запросов оркестратора
//	PUB  deid:plan:<name>                          - для event-driven маршрутизации
type PlanResult struct {
	Name       string            `json:"name"`
	Status     string            `json:"status"` // "resolved" | "failed"
	Plan       *plan.Description `json:"plan,omitempty"`
	SampleRows int               `json:"sample_rows"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	DurationMs int64             `json:"duration_ms"`
	Error      *string           `json:"error,omitempty"`
}

// Run - хронометраж одного разрешения плана
type Run struct {
	StartedAt  time.Time
	FinishedAt time.Time
	SampleRows int
}

// RedisPublisher публикует результат разрешения плана в Redis
type RedisPublisher struct {
	client *redis.Client
	config Config
}

// NewRedisPublisher создает новый Redis publisher на основе конфигурации
func NewRedisPublisher(config Config) *RedisPublisher {
	if config.TTL == 0 {
		config.TTL = 3600
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisPublisher{client: client, config: config}
}

// NewRedisPublisherWithClient использует существующий клиент (общий с другими компонентами).
// Close такого publisher закрывает и клиент.
func NewRedisPublisherWithClient(client *redis.Client, config Config) *RedisPublisher {
	if config.TTL == 0 {
		config.TTL = 3600
	}
	return &RedisPublisher{client: client, config: config}
}

// StateKey возвращает ключ состояния
func (p *RedisPublisher) StateKey() string {
	return fmt.Sprintf("deid:plan:%s:state", p.config.Name)
}

// Channel возвращает канал событий
func (p *RedisPublisher) Channel() string {
	return fmt.Sprintf("deid:plan:%s", p.config.Name)
}

// Publish публикует план (p != nil) или ошибку разрешения (resolveErr != nil):
//   - SET deid:plan:<name>:state <JSON> EX <ttl>  → для опроса (polling)
//   - PUBLISH deid:plan:<name> <JSON>              → для подписки (pub/sub)
func (p *RedisPublisher) Publish(ctx context.Context, pl *plan.Plan, run Run, resolveErr error) error {
	result := PlanResult{
		Name:       p.config.Name,
		SampleRows: run.SampleRows,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMs: run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	}

	switch {
	case resolveErr != nil:
		result.Status = StatusFailed
		errStr := resolveErr.Error()
		result.Error = &errStr
	case pl != nil:
		result.Status = StatusResolved
		desc := pl.Describe()
		result.Plan = &desc
	default:
		return fmt.Errorf("nothing to publish: no plan and no error")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ttl := time.Duration(p.config.TTL) * time.Second

	if err := p.client.Set(ctx, p.StateKey(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Ping проверяет доступность Redis
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
