// Package resilience защищает сервис от медленной или недоступной
// вспомогательной инфраструктуры (Redis журнала запросов и результатов).
//
// Пока вызовы проходят, Breaker закрыт. После MaxFailures ошибок подряд он
// открывается и на OpenTimeout отклоняет вызовы без обращения к ресурсу,
// затем пропускает пробные вызовы (half-open): SuccessThreshold успехов
// подряд закрывают его, любая ошибка снова открывает.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen - вызов отклонен, Breaker открыт
var ErrOpen = errors.New("circuit breaker is open")

// State - состояние Breaker
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Config - параметры Breaker
type Config struct {
	Enabled          bool          `yaml:"enabled"`
	MaxFailures      int           `yaml:"max_failures"`      // ошибок подряд до открытия
	OpenTimeout      time.Duration `yaml:"open_timeout"`      // время в открытом состоянии
	SuccessThreshold int           `yaml:"success_threshold"` // успехов подряд в half-open для закрытия
}

// DefaultConfig - конфигурация по умолчанию
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		SuccessThreshold: 1,
	}
}

// Validate проверяет конфигурацию
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxFailures < 1 {
		return fmt.Errorf("max_failures must be >= 1")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("open_timeout must be > 0")
	}
	if c.SuccessThreshold < 1 {
		return fmt.Errorf("success_threshold must be >= 1")
	}
	return nil
}

// Stats - снимок состояния
type Stats struct {
	State               State
	ConsecutiveFailures int
	Rejected            int64
	LastStateChange     time.Time
}

// Breaker - автоматический выключатель для одного ресурса
type Breaker struct {
	name          string
	cfg           Config
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu              sync.Mutex
	state           State
	generation      uint64 // результаты вызовов прошлых поколений игнорируются
	failures        int
	successes       int
	openedUntil     time.Time
	rejected        int64
	lastStateChange time.Time
}

// Option настраивает Breaker
type Option func(*Breaker)

// WithStateChange подписывает на смену состояния; fn вызывается в отдельной горутине
func WithStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// New создает Breaker. Выключенный Breaker просто выполняет вызовы.
func New(name string, cfg Config, opts ...Option) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("breaker %s: %w", name, err)
	}
	b := &Breaker{
		name:            name,
		cfg:             cfg,
		now:             time.Now,
		lastStateChange: time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name возвращает имя ресурса
func (b *Breaker) Name() string {
	return b.name
}

// Execute выполняет fn, если Breaker не открыт. Отмена ctx не считается
// сбоем ресурса.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.cfg.Enabled {
		return fn(ctx)
	}

	gen, err := b.before()
	if err != nil {
		return err
	}

	err = fn(ctx)
	if err != nil && ctx.Err() != nil {
		return err
	}
	b.after(gen, err == nil)
	return err
}

// State возвращает текущее состояние
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireLocked()
	return b.state
}

// Stats возвращает снимок счетчиков
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireLocked()
	return Stats{
		State:               b.state,
		ConsecutiveFailures: b.failures,
		Rejected:            b.rejected,
		LastStateChange:     b.lastStateChange,
	}
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	b.expireLocked()
	state, gen := b.state, b.generation
	if state == StateOpen {
		b.rejected++
	}
	b.mu.Unlock()

	if state == StateOpen {
		return gen, fmt.Errorf("%s: %w", b.name, ErrOpen)
	}
	return gen, nil
}

func (b *Breaker) after(gen uint64, ok bool) {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		return
	}

	from, to := b.state, b.state
	if ok {
		b.failures = 0
		b.successes++
		if b.state == StateHalfOpen && b.successes >= b.cfg.SuccessThreshold {
			to = StateClosed
		}
	} else {
		b.successes = 0
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.cfg.MaxFailures {
			to = StateOpen
		}
	}
	if to != from {
		b.setLocked(to)
		go b.notify(from, to)
	}
	b.mu.Unlock()
}

// expireLocked переводит открытый Breaker в half-open по истечении OpenTimeout
func (b *Breaker) expireLocked() {
	if b.state == StateOpen && !b.now().Before(b.openedUntil) {
		b.setLocked(StateHalfOpen)
		go b.notify(StateOpen, StateHalfOpen)
	}
}

func (b *Breaker) setLocked(to State) {
	b.state = to
	b.generation++
	b.failures = 0
	b.successes = 0
	b.lastStateChange = b.now()
	if to == StateOpen {
		b.openedUntil = b.now().Add(b.cfg.OpenTimeout)
	}
}

func (b *Breaker) notify(from, to State) {
	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}
