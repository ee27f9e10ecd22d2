// Package request tracks the outcome of /transform requests.
//
// Each request is stored in Redis with a TTL and announced on Pub/Sub so an
// operator can look up a failed request by the ID returned in X-Request-ID.
// Only counts and error kinds are stored, never record values.
package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/tdtp-deid/pkg/resilience"
)

const (
	keyPrefix     = "deid:request:"
	pubsubChannel = "deid:events"
	defaultTTL    = 24 * time.Hour
)

// ErrNotFound is returned by Get for an unknown or expired request ID.
var ErrNotFound = errors.New("request not found")

// State represents the outcome of a request.
type State string

const (
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Request is the record stored in Redis.
type Request struct {
	ID         string    `json:"id"`
	PlanID     string    `json:"plan_id"`
	Records    int       `json:"records"`
	State      State     `json:"state"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Event is the Pub/Sub message published for each request.
type Event struct {
	RequestID string    `json:"request_id"`
	PlanID    string    `json:"plan_id"`
	State     State     `json:"state"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Tracker stores and publishes request outcomes.
type Tracker struct {
	rdb     *redis.Client
	ttl     time.Duration
	breaker *resilience.Breaker
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithBreaker routes writes through b so an unavailable Redis fails fast.
func WithBreaker(b *resilience.Breaker) Option {
	return func(t *Tracker) {
		t.breaker = b
	}
}

// New creates a Tracker.
func New(rdb *redis.Client, opts ...Option) *Tracker {
	t := &Tracker{rdb: rdb, ttl: defaultTTL}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewID returns a fresh request ID.
func NewID() string {
	return uuid.NewString()
}

// Record persists the request and publishes an event. An empty ID gets a new one.
func (t *Tracker) Record(ctx context.Context, req *Request) error {
	if req.ID == "" {
		req.ID = NewID()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("request: marshal: %w", err)
	}
	return t.execute(ctx, func(ctx context.Context) error {
		if err := t.rdb.Set(ctx, keyPrefix+req.ID, data, t.ttl).Err(); err != nil {
			return fmt.Errorf("request: save %q: %w", req.ID, err)
		}
		t.publish(ctx, req)
		return nil
	})
}

func (t *Tracker) execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.breaker == nil {
		return fn(ctx)
	}
	return t.breaker.Execute(ctx, fn)
}

// Get retrieves a request by ID.
func (t *Tracker) Get(ctx context.Context, id string) (*Request, error) {
	data, err := t.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("request: get %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("request: get %q: %w", id, err)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (t *Tracker) publish(ctx context.Context, req *Request) {
	ev := Event{
		RequestID: req.ID,
		PlanID:    req.PlanID,
		State:     req.State,
		ErrorKind: req.ErrorKind,
		Timestamp: req.CreatedAt,
	}
	data, _ := json.Marshal(ev)
	// best-effort; ignore publish errors
	_ = t.rdb.Publish(ctx, pubsubChannel, data).Err()
}
