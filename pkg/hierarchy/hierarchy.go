// Package hierarchy реализует иерархии обобщения значений квази-идентификаторов.
//
// Уровень 0 - исходное значение, каждый следующий уровень - более общее.
// NULL на уровне 0 остается NULL, на уровнях выше заменяется меткой отсутствия.
package hierarchy

import (
	"errors"
	"fmt"

	"github.com/ruslano69/tdtp-deid/pkg/core/table"
)

// ErrOutOfDomain возвращается для значения, которое иерархия не может обобщить
var ErrOutOfDomain = errors.New("value outside hierarchy domain")

// ErrLevelOutOfRange возвращается для уровня за пределами высоты иерархии
var ErrLevelOutOfRange = errors.New("generalization level out of range")

// DefaultMissingLabel - метка для NULL на уровнях выше 0
const DefaultMissingLabel = "*"

// Hierarchy обобщает значения одного атрибута
type Hierarchy interface {
	// Height возвращает количество уровней, включая уровень 0
	Height() int

	// Generalize возвращает значение на указанном уровне
	Generalize(value string, level int) (string, error)
}

// Config содержит конфигурацию иерархии
type Config struct {
	Kind   string         `yaml:"kind" json:"kind"`     // Вид иерархии (table, interval, mask, xlsx)
	Params map[string]any `yaml:"params" json:"params"` // Параметры иерархии
}

// missing оборачивает общие проверки уровня и обработку NULL
type missing struct {
	label string
}

func newMissing(params map[string]any) missing {
	label := DefaultMissingLabel
	if v, ok := params["missing_label"].(string); ok {
		label = v
	}
	return missing{label: label}
}

// handle проверяет уровень и обрабатывает NULL. done=true означает, что результат готов.
func (m missing) handle(value string, level, height int) (string, bool, error) {
	if level < 0 || level >= height {
		return "", true, fmt.Errorf("%w: %d (height %d)", ErrLevelOutOfRange, level, height)
	}
	if value == table.Null {
		if level == 0 {
			return table.Null, true, nil
		}
		return m.label, true, nil
	}
	return "", false, nil
}
