// Package metrics экспортирует метрики Prometheus сервиса обезличивания.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ruslano69/tdtp-deid/pkg/plan"
	"github.com/ruslano69/tdtp-deid/pkg/transform"
)

var (
	// batchesTotal counts Transform calls by outcome.
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deid_batches_total",
			Help: "Total number of transformed batches by status",
		},
		[]string{"status"},
	)

	// recordsTotal counts records that went through a successful Transform.
	recordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deid_records_total",
			Help: "Total number of records transformed",
		},
	)

	// failuresTotal counts failed Transform calls by error kind.
	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deid_failures_total",
			Help: "Total number of failed batches by error kind",
		},
		[]string{"kind"},
	)

	engineSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deid_engine_apply_seconds",
			Help:    "Latency of engine Apply calls",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	// batchSize tracks the number of records per batch.
	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deid_batch_records",
			Help:    "Number of records per transformed batch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// planInfo is 1 for the plan currently applied.
	planInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deid_plan_info",
			Help: "Resolved plan currently applied (value is always 1)",
		},
		[]string{"plan_id", "transformation"},
	)

	// streamRejectedTotal counts stream messages moved to the DLQ.
	streamRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deid_stream_rejected_total",
			Help: "Total number of stream messages rejected to the DLQ",
		},
		[]string{"failure", "kind"},
	)

	// breakerState is 0 closed, 1 half-open, 2 open.
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deid_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// Observer реализует transform.Observer
type Observer struct{}

// ObserveBatch учитывает один вызов Transform
func (Observer) ObserveBatch(records int, engineTime time.Duration, err error) {
	engineSeconds.Observe(engineTime.Seconds())
	batchSize.Observe(float64(records))

	if err != nil {
		batchesTotal.WithLabelValues("failed").Inc()
		failuresTotal.WithLabelValues(transform.ErrorKind(err)).Inc()
		return
	}
	batchesTotal.WithLabelValues("ok").Inc()
	recordsTotal.Add(float64(records))
}

// SetPlan публикует описание примененного плана
func SetPlan(p *plan.Plan) {
	d := p.Describe()
	planInfo.Reset()
	planInfo.WithLabelValues(d.ID, d.Transformation).Set(1)
}

// StreamRejected учитывает сообщение, отправленное в DLQ
func StreamRejected(failure, kind string) {
	streamRejectedTotal.WithLabelValues(failure, kind).Inc()
}

// SetBreakerState публикует состояние автоматического выключателя
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}
