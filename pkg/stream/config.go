package stream

import (
	"fmt"

	"github.com/ruslano69/tdtp-deid/pkg/brokers"
	"github.com/ruslano69/tdtp-deid/pkg/retry"
)

// Config описывает потоковый режим: откуда читать пакеты, куда публиковать результат
type Config struct {
	Enabled bool            `yaml:"enabled"`
	Workers int             `yaml:"workers"`
	Input   brokers.Config  `yaml:"input"`
	Output  brokers.Config  `yaml:"output"`
	Retry   retry.Config    `yaml:"retry"`
	DLQ     retry.DLQConfig `yaml:"dlq"`
}

// DefaultConfig возвращает конфигурацию по умолчанию (выключено)
func DefaultConfig() Config {
	return Config{
		Workers: 1,
		Retry:   retry.DefaultConfig(),
		DLQ:     retry.DefaultDLQConfig(),
	}
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("stream.workers must be >= 1, got %d", c.Workers)
	}
	if c.Input.Type == "" {
		return fmt.Errorf("stream.input.type is required")
	}
	if c.Output.Type == "" {
		return fmt.Errorf("stream.output.type is required")
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("stream.retry: %w", err)
	}
	return nil
}
