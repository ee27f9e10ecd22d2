// Package criteria описывает критерии приватности и их классификацию
// на локальные (проверяемые по одной записи) и глобальные (требующие весь набор данных).
package criteria

import (
	"fmt"
)

// Scope определяет область действия критерия
type Scope int

const (
	// RecordLocal - критерий выполним на одной записи
	RecordLocal Scope = iota
	// DatasetGlobal - критерий определен только на всем наборе данных
	DatasetGlobal
)

// String возвращает имя области действия
func (s Scope) String() string {
	switch s {
	case RecordLocal:
		return "record_local"
	case DatasetGlobal:
		return "dataset_global"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Встроенные виды критериев
const (
	KindKAnonymity        = "k_anonymity"
	KindLDiversity        = "l_diversity"
	KindTCloseness        = "t_closeness"
	KindMinGeneralization = "min_generalization"
)

// Criterion - параметризованное правило приватности
type Criterion interface {
	// Kind возвращает вид критерия (k_anonymity, l_diversity, ...)
	Kind() string

	// Params возвращает параметры критерия для описания плана
	Params() map[string]any
}

// KAnonymity требует, чтобы каждый класс эквивалентности содержал не менее K записей
type KAnonymity struct {
	K int
}

// Kind реализует Criterion
func (c KAnonymity) Kind() string { return KindKAnonymity }

// Params реализует Criterion
func (c KAnonymity) Params() map[string]any {
	return map[string]any{"k": c.K}
}

// LDiversity требует не менее L различных значений чувствительного атрибута
// в каждом классе эквивалентности (distinct l-diversity)
type LDiversity struct {
	Attribute string
	L         int
}

// Kind реализует Criterion
func (c LDiversity) Kind() string { return KindLDiversity }

// Params реализует Criterion
func (c LDiversity) Params() map[string]any {
	return map[string]any{"attribute": c.Attribute, "l": c.L}
}

// TCloseness ограничивает расстояние между распределением чувствительного
// атрибута в классе и во всем наборе (equal-distance EMD)
type TCloseness struct {
	Attribute string
	T         float64
}

// Kind реализует Criterion
func (c TCloseness) Kind() string { return KindTCloseness }

// Params реализует Criterion
func (c TCloseness) Params() map[string]any {
	return map[string]any{"attribute": c.Attribute, "t": c.T}
}

// MinGeneralization требует обобщать атрибут не ниже заданного уровня иерархии.
// Проверяется без знания остальных записей.
type MinGeneralization struct {
	Attribute string
	Level     int
}

// Kind реализует Criterion
func (c MinGeneralization) Kind() string { return KindMinGeneralization }

// Params реализует Criterion
func (c MinGeneralization) Params() map[string]any {
	return map[string]any{"attribute": c.Attribute, "level": c.Level}
}

// Rule - критерий вместе с областью действия, назначенной при регистрации вида
type Rule struct {
	Criterion Criterion
	Scope     Scope
}

// String возвращает краткое описание правила
func (r Rule) String() string {
	return fmt.Sprintf("%s%v", r.Criterion.Kind(), r.Criterion.Params())
}
