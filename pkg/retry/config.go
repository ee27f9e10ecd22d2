package retry

import (
	"fmt"
	"time"
)

// BackoffStrategy определяет стратегию задержки между повторами
type BackoffStrategy string

const (
	// BackoffConstant - постоянная задержка
	BackoffConstant BackoffStrategy = "constant"
	// BackoffLinear - линейное увеличение задержки
	BackoffLinear BackoffStrategy = "linear"
	// BackoffExponential - экспоненциальное увеличение задержки
	BackoffExponential BackoffStrategy = "exponential"
)

// Config содержит конфигурацию повторов доставки.
// Повторяются только транспортные операции (публикация результата);
// ошибки преобразования детерминированы и сразу уходят в DLQ.
type Config struct {
	// MaxAttempts - максимальное количество попыток (включая первую), >= 1
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay - начальная задержка перед первым повтором
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay - максимальная задержка между попытками
	MaxDelay time.Duration `yaml:"max_delay"`

	// Backoff - стратегия увеличения задержки
	Backoff BackoffStrategy `yaml:"backoff"`

	// Multiplier - множитель для exponential backoff (обычно 2.0)
	Multiplier float64 `yaml:"multiplier"`

	// Jitter - доля случайности в задержке (0.0 - 1.0)
	Jitter float64 `yaml:"jitter"`

	// Retryable решает, повторять ли ошибку. nil = повторять все.
	Retryable func(error) bool `yaml:"-"`

	// OnRetry вызывается перед каждым повтором
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// DLQConfig содержит конфигурацию файловой Dead Letter Queue
type DLQConfig struct {
	// FilePath - путь к JSON-файлу DLQ. Пустой путь отключает DLQ.
	FilePath string `yaml:"file_path"`

	// MaxSize - максимальный размер DLQ (в записях), старые записи вытесняются
	MaxSize int `yaml:"max_size"`

	// RetentionPeriod - как долго хранить записи
	RetentionPeriod time.Duration `yaml:"retention_period"`
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0")
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	}

	switch c.Backoff {
	case BackoffConstant, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("invalid backoff strategy: %s", c.Backoff)
	}

	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}

	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Backoff:      BackoffExponential,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// DefaultDLQConfig возвращает конфигурацию DLQ по умолчанию
func DefaultDLQConfig() DLQConfig {
	return DLQConfig{
		FilePath:        "./deid-dlq.json",
		MaxSize:         10000,
		RetentionPeriod: 7 * 24 * time.Hour,
	}
}
