// Package transform применяет разрешенный план к пакетам записей.
package transform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ruslano69/tdtp-deid/pkg/convert"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/ruslano69/tdtp-deid/pkg/engine"
	"github.com/ruslano69/tdtp-deid/pkg/plan"
	"github.com/ruslano69/tdtp-deid/pkg/reconcile"
	"github.com/ruslano69/tdtp-deid/pkg/record"
)

// ErrInputMutated - движок изменил входную таблицу
var ErrInputMutated = errors.New("engine modified its input table")

// TransformationError - ошибка движка при применении плана
type TransformationError struct {
	Records int
	Err     error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("transformation of %d records failed: %v", e.Records, e.Err)
}

func (e *TransformationError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError - движок вернул таблицу другой ширины
type SchemaMismatchError = reconcile.SchemaMismatchError

// RowCountMismatchError - движок вернул другое количество строк
type RowCountMismatchError = reconcile.RowCountMismatchError

// Observer получает результат каждого вызова Transform
type Observer interface {
	ObserveBatch(records int, engineTime time.Duration, err error)
}

// Option настраивает Service
type Option func(*Service)

// WithObserver подключает наблюдателя (метрики)
func WithObserver(o Observer) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// WithSerializedEngine принудительно сериализует вызовы движка
func WithSerializedEngine() Option {
	return func(s *Service) {
		s.serialize = true
	}
}

// Service применяет один план. Вызовы Transform независимы и не хранят состояние
// между собой; вызовы движка сериализуются, если движок не объявил себя реентерабельным.
type Service struct {
	plan      *plan.Plan
	eng       engine.Engine
	mu        sync.Mutex
	serialize bool
	observer  Observer
}

// NewService создает сервис для плана и движка, которым план был построен
func NewService(p *plan.Plan, eng engine.Engine, opts ...Option) *Service {
	s := &Service{
		plan:      p,
		eng:       eng,
		serialize: !engine.IsReentrant(eng),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan возвращает план сервиса
func (s *Service) Plan() *plan.Plan {
	return s.plan
}

// Transform преобразует пакет целиком: либо все записи, либо ошибка.
// Контекст проверяется только до вызова движка.
func (s *Service) Transform(ctx context.Context, batch record.Batch) (record.Batch, error) {
	if len(batch) == 0 {
		return record.Batch{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tbl, meta := convert.ToTable(s.plan, batch)
	before := table.Fingerprint(tbl)

	start := time.Now()
	out, err := s.apply(ctx, tbl)
	elapsed := time.Since(start)

	if err == nil {
		err = s.verify(tbl, before, out)
	}

	var result record.Batch
	if err == nil {
		result, err = reconcile.Reconcile(s.plan.Header().Names(), out.Rows, meta)
	}

	if s.observer != nil {
		s.observer.ObserveBatch(len(batch), elapsed, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) apply(ctx context.Context, tbl table.Table) (table.Table, error) {
	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	out, err := s.eng.Apply(ctx, s.plan.Handle(), tbl)
	if err != nil {
		return table.Table{}, &TransformationError{Records: tbl.Len(), Err: err}
	}
	return out, nil
}

func (s *Service) verify(in table.Table, before uint64, out table.Table) error {
	if table.Fingerprint(in) != before {
		return &TransformationError{Records: in.Len(), Err: ErrInputMutated}
	}
	if want := s.plan.Header().Len(); len(out.Header) != want {
		return &SchemaMismatchError{Row: -1, Expected: want, Got: len(out.Header)}
	}
	return nil
}

// Виды ошибок для логов, метрик и ответов API
const (
	KindTransformation   = "transformation"
	KindSchemaMismatch   = "schema_mismatch"
	KindRowCountMismatch = "row_count_mismatch"
	KindCancelled        = "cancelled"
	KindUnknown          = "unknown"
)

// ErrorKind классифицирует ошибку Transform
func ErrorKind(err error) string {
	var (
		te *TransformationError
		sm *SchemaMismatchError
		rc *RowCountMismatchError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &sm):
		return KindSchemaMismatch
	case errors.As(err, &rc):
		return KindRowCountMismatch
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.As(err, &te):
		return KindTransformation
	default:
		return KindUnknown
	}
}
