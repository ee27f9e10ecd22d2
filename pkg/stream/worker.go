// Package stream применяет план к пакетам записей из очереди сообщений.
//
// Каждое сообщение - JSON-массив записей (или одна запись-объект). Результат
// публикуется в выходную очередь, и только после этого входное сообщение
// подтверждается. Пакеты, которые не удалось разобрать или преобразовать,
// сохраняются в DLQ и снимаются с обработки без повторной доставки.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ruslano69/tdtp-deid/pkg/brokers"
	"github.com/ruslano69/tdtp-deid/pkg/record"
	"github.com/ruslano69/tdtp-deid/pkg/retry"
	"github.com/ruslano69/tdtp-deid/pkg/transform"
)

// Transformer - то, что умеет преобразовать пакет записей целиком
type Transformer interface {
	Transform(ctx context.Context, batch record.Batch) (record.Batch, error)
}

// BrokerFactory создает брокер по конфигурации
type BrokerFactory func(cfg brokers.Config) (brokers.MessageBroker, error)

// Stats - счетчики обработанных сообщений
type Stats struct {
	Batches   int64
	Records   int64
	Failed    int64
	Published int64
}

// Option настраивает Runner
type Option func(*Runner)

// WithLogger задает логгер (по умолчанию логирование выключено)
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithBrokerFactory подменяет создание брокеров
func WithBrokerFactory(f BrokerFactory) Option {
	return func(r *Runner) {
		r.newBroker = f
	}
}

// WithPlanID подписывает записи DLQ идентификатором плана
func WithPlanID(id string) Option {
	return func(r *Runner) {
		r.planID = id
	}
}

// WithOnReject вызывается для каждого сообщения, отправленного в DLQ
func WithOnReject(fn func(failure, kind string)) Option {
	return func(r *Runner) {
		r.onReject = fn
	}
}

// Runner запускает Workers независимых обработчиков, у каждого своя пара брокеров
type Runner struct {
	cfg       Config
	svc       Transformer
	retryer   *retry.Retryer
	dlq       *retry.DLQ
	newBroker BrokerFactory
	log       zerolog.Logger
	planID    string
	onReject  func(failure, kind string)

	batches   atomic.Int64
	records   atomic.Int64
	failed    atomic.Int64
	published atomic.Int64
}

// New создает Runner. DLQ открывается сразу, если задан путь к файлу.
func New(cfg Config, svc Transformer, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:       cfg,
		svc:       svc,
		newBroker: brokers.New,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	retryCfg := cfg.Retry
	onRetry := retryCfg.OnRetry
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		r.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("publish failed, retrying")
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}
	retryer, err := retry.NewRetryer(retryCfg)
	if err != nil {
		return nil, err
	}
	r.retryer = retryer

	if cfg.DLQ.FilePath != "" {
		dlq, err := retry.NewDLQ(cfg.DLQ)
		if err != nil {
			return nil, err
		}
		r.dlq = dlq
	}

	return r, nil
}

// DLQ возвращает очередь неудачных пакетов (nil, если выключена)
func (r *Runner) DLQ() *retry.DLQ {
	return r.dlq
}

// Stats возвращает снимок счетчиков
func (r *Runner) Stats() Stats {
	return Stats{
		Batches:   r.batches.Load(),
		Records:   r.records.Load(),
		Failed:    r.failed.Load(),
		Published: r.published.Load(),
	}
}

// Run блокируется до отмены ctx или до первой неустранимой ошибки транспорта.
// Отмена ctx - штатное завершение, Run возвращает nil.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < r.cfg.Workers; i++ {
		id := i
		g.Go(func() error {
			return r.work(gctx, id)
		})
	}

	if r.dlq != nil && r.cfg.DLQ.RetentionPeriod > 0 {
		g.Go(func() error {
			r.cleanupLoop(gctx)
			return nil
		})
	}

	err := g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func (r *Runner) work(ctx context.Context, id int) error {
	log := r.log.With().Int("worker", id).Logger()

	in, err := r.connect(ctx, r.cfg.Input)
	if err != nil {
		return fmt.Errorf("worker %d: input: %w", id, err)
	}
	defer in.Close()

	out, err := r.connect(ctx, r.cfg.Output)
	if err != nil {
		return fmt.Errorf("worker %d: output: %w", id, err)
	}
	defer out.Close()

	log.Info().
		Str("input", in.GetBrokerType()).
		Str("output", out.GetBrokerType()).
		Msg("stream worker started")

	for {
		msg, err := in.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("stream worker stopped")
				return nil
			}
			return fmt.Errorf("worker %d: receive: %w", id, err)
		}

		if err := r.handle(ctx, log, in, out, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: %w", id, err)
		}
	}
}

func (r *Runner) connect(ctx context.Context, cfg brokers.Config) (brokers.MessageBroker, error) {
	b, err := r.newBroker(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// handle обрабатывает одно сообщение. Ошибка означает, что сообщение не
// подтверждено и будет доставлено повторно после перезапуска.
func (r *Runner) handle(ctx context.Context, log zerolog.Logger, in, out brokers.MessageBroker, msg []byte) error {
	r.batches.Add(1)

	batch, err := record.DecodeBatch(bytes.NewReader(msg))
	if err != nil {
		return r.reject(ctx, log, in, msg, retry.FailureDecode, "", err)
	}
	r.records.Add(int64(len(batch)))

	result, err := r.svc.Transform(ctx, batch)
	if err != nil {
		kind := transform.ErrorKind(err)
		if kind == transform.KindCancelled {
			return err
		}
		return r.reject(ctx, log, in, msg, retry.FailureTransform, kind, err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return r.reject(ctx, log, in, msg, retry.FailureTransform, transform.KindUnknown, err)
	}

	if err := r.retryer.Do(ctx, func(ctx context.Context) error {
		return out.Send(ctx, payload)
	}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	r.published.Add(1)

	if err := in.Ack(ctx); err != nil {
		return fmt.Errorf("ack: %w", err)
	}

	log.Debug().Int("records", len(batch)).Msg("batch transformed")
	return nil
}

func (r *Runner) reject(ctx context.Context, log zerolog.Logger, in brokers.MessageBroker, msg []byte, failure, kind string, cause error) error {
	r.failed.Add(1)
	if r.onReject != nil {
		r.onReject(failure, kind)
	}

	log.Error().Err(cause).Str("failure", failure).Str("kind", kind).Msg("batch rejected")

	if r.dlq != nil {
		entry := retry.DLQEntry{
			PlanID:      r.planID,
			Attempts:    1,
			LastError:   cause.Error(),
			ErrorKind:   kind,
			FailureType: failure,
		}
		if err := r.dlq.Add(entry, msg); err != nil {
			return fmt.Errorf("dlq: %w", err)
		}
	}

	if err := in.Reject(ctx); err != nil {
		return fmt.Errorf("reject: %w", err)
	}
	return nil
}

func (r *Runner) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.dlq.CleanupOld()
			if err != nil {
				r.log.Warn().Err(err).Msg("dlq cleanup failed")
				continue
			}
			if n > 0 {
				r.log.Info().Int("removed", n).Msg("dlq cleanup")
			}
		}
	}
}
