package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastConfig(maxAttempts int) Config {
	config := DefaultConfig()
	config.MaxAttempts = maxAttempts
	config.InitialDelay = 10 * time.Millisecond
	config.MaxDelay = 50 * time.Millisecond
	config.Jitter = 0
	return config
}

func TestRetryer_Success(t *testing.T) {
	retryer, err := NewRetryer(fastConfig(3))
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts := 0
	err = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_SuccessAfterRetries(t *testing.T) {
	retryer, err := NewRetryer(fastConfig(5))
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts := 0
	start := time.Now()
	err = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("broker unavailable")
		}
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	// Задержки 10ms + 20ms
	if duration < 30*time.Millisecond {
		t.Errorf("Expected delays between retries, duration was too short: %v", duration)
	}
}

func TestRetryer_MaxAttemptsExceeded(t *testing.T) {
	retryer, err := NewRetryer(fastConfig(3))
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts := 0
	cause := errors.New("persistent error")
	err = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return cause
	})
	if !errors.Is(err, cause) {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryer_NonRetryable(t *testing.T) {
	config := fastConfig(5)
	config.Retryable = func(err error) bool { return !strings.Contains(err.Error(), "fatal") }
	retryer, _ := NewRetryer(config)

	attempts := 0
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("fatal: bad message")
	})
	if err == nil || !strings.Contains(err.Error(), "non-retryable") {
		t.Errorf("Expected non-retryable error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_ContextCancelled(t *testing.T) {
	config := fastConfig(10)
	config.InitialDelay = time.Second
	config.MaxDelay = time.Second
	retryer, _ := NewRetryer(config)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := retryer.Do(ctx, func(ctx context.Context) error {
		return errors.New("error")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestDelay(t *testing.T) {
	tests := []struct {
		backoff BackoffStrategy
		attempt int
		want    time.Duration
	}{
		{BackoffConstant, 3, 10 * time.Millisecond},
		{BackoffLinear, 3, 30 * time.Millisecond},
		{BackoffExponential, 1, 10 * time.Millisecond},
		{BackoffExponential, 3, 40 * time.Millisecond},
		// Ограничено MaxDelay
		{BackoffExponential, 10, 50 * time.Millisecond},
	}

	for _, tt := range tests {
		config := fastConfig(3)
		config.Backoff = tt.backoff
		retryer, err := NewRetryer(config)
		if err != nil {
			t.Fatalf("NewRetryer: %v", err)
		}
		if got := retryer.delay(tt.attempt); got != tt.want {
			t.Errorf("%s attempt %d: delay = %v, want %v", tt.backoff, tt.attempt, got, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
		{"max below initial", func(c *Config) { c.MaxDelay = time.Millisecond }, true},
		{"bad backoff", func(c *Config) { c.Backoff = "fibonacci" }, true},
		{"bad jitter", func(c *Config) { c.Jitter = 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(&config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
