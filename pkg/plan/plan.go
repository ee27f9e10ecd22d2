// Package plan превращает авторскую конфигурацию деидентификации в неизменяемый план,
// пригодный для применения к отдельным записям.
package plan

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/ruslano69/tdtp-deid/pkg/criteria"
	"github.com/ruslano69/tdtp-deid/pkg/engine"
)

// Этапы разрешения плана
const (
	StageValidate = "validate"
	StageSearch   = "search"
	StageApply    = "apply"
	StageHeader   = "header"
)

// ResolutionError - ошибка построения плана. Фатальна при старте сервиса.
type ResolutionError struct {
	Stage string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("plan resolution failed at %s: %v", e.Stage, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Plan - результат однократного поиска. Неизменяем и безопасен для
// одновременного чтения из нескольких горутин.
type Plan struct {
	header   schema.Schema
	input    schema.Schema
	criteria criteria.Set
	handle   engine.Handle
	id       string
}

// Header возвращает заголовок, который выдает трансформация
func (p *Plan) Header() schema.Schema {
	return p.header
}

// InputSchema возвращает авторскую схему, по которой выполнялся поиск
func (p *Plan) InputSchema() schema.Schema {
	return p.input
}

// Criteria возвращает адаптированный набор критериев
func (p *Plan) Criteria() criteria.Set {
	return p.criteria
}

// Handle возвращает непрозрачный дескриптор трансформации
func (p *Plan) Handle() engine.Handle {
	return p.handle
}

// ID возвращает отпечаток плана (xxh3 от заголовка и трансформации)
func (p *Plan) ID() string {
	return p.id
}

// Description - сериализуемое описание плана
type Description struct {
	ID             string   `json:"id" yaml:"id"`
	Header         []string `json:"header" yaml:"header"`
	Transformation string   `json:"transformation" yaml:"transformation"`
	Criteria       []string `json:"criteria" yaml:"criteria"`
	MaxOutliers    float64  `json:"max_outliers" yaml:"max_outliers"`
}

// Describe возвращает описание плана для логов, API и журнала результатов
func (p *Plan) Describe() Description {
	rules := p.criteria.Rules()
	crit := make([]string, len(rules))
	for i, r := range rules {
		crit[i] = r.String()
	}
	return Description{
		ID:             p.id,
		Header:         p.header.Names(),
		Transformation: p.handle.String(),
		Criteria:       crit,
		MaxOutliers:    p.criteria.MaxOutliers(),
	}
}

// Resolve строит план:
//  1. адаптирует критерии (глобальные удаляются, выбросы = 0);
//  2. один раз вызывает поиск оптимальной трансформации;
//  3. один раз применяет трансформацию к выборке и фиксирует выходной заголовок.
//
// Любая ошибка возвращается как *ResolutionError, запасного плана нет.
func Resolve(ctx context.Context, eng engine.Engine, s schema.Schema, c criteria.Set, sample table.Table) (*Plan, error) {
	v := schema.NewValidator()

	if err := v.ValidateSchema(s); err != nil {
		return nil, &ResolutionError{Stage: StageValidate, Err: err}
	}
	if sample.Len() == 0 {
		return nil, &ResolutionError{Stage: StageValidate, Err: errors.New("sample dataset is empty")}
	}

	adapted := c.Adapt()

	res, err := eng.ComputeOptimalTransformation(ctx, s, adapted, sample)
	if err != nil {
		return nil, &ResolutionError{Stage: StageSearch, Err: err}
	}
	if res.Handle == nil {
		return nil, &ResolutionError{Stage: StageSearch, Err: errors.New("engine returned no transformation")}
	}

	out, err := eng.Apply(ctx, res.Handle, sample)
	if err != nil {
		return nil, &ResolutionError{Stage: StageApply, Err: err}
	}
	if out.Len() != sample.Len() {
		return nil, &ResolutionError{Stage: StageApply, Err: fmt.Errorf("engine returned %d rows for %d sample rows", out.Len(), sample.Len())}
	}

	if err := v.ValidateHeader(out.Header); err != nil {
		return nil, &ResolutionError{Stage: StageHeader, Err: err}
	}
	if len(res.Header) > 0 && strings.Join(res.Header, "\x00") != strings.Join(out.Header, "\x00") {
		return nil, &ResolutionError{Stage: StageHeader, Err: fmt.Errorf("applied header %v differs from reported header %v", out.Header, res.Header)}
	}

	header := headerSchema(s, out.Header)

	return &Plan{
		header:   header,
		input:    s,
		criteria: adapted,
		handle:   res.Handle,
		id:       fingerprint(out.Header, res.Handle),
	}, nil
}

// headerSchema сохраняет роли атрибутов, которые не были переименованы
func headerSchema(in schema.Schema, names []string) schema.Schema {
	attrs := make([]schema.Attribute, len(names))
	for i, n := range names {
		if a, ok := in.Attribute(n); ok {
			attrs[i] = a
		} else {
			attrs[i] = schema.Attribute{Name: n, Type: schema.Insensitive}
		}
	}
	return schema.New(attrs...)
}

func fingerprint(header []string, h engine.Handle) string {
	hs := xxh3.New()
	for _, n := range header {
		_, _ = hs.WriteString(n)
		_, _ = hs.Write([]byte{0})
	}
	_, _ = hs.WriteString(h.String())
	return strconv.FormatUint(hs.Sum64(), 16)
}
