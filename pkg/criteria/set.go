package criteria

import (
	"fmt"
	"strings"
)

// Set - неизменяемый набор правил и допустимая доля выбросов
type Set struct {
	rules       []Rule
	maxOutliers float64
}

// NewSet создает набор правил. maxOutliers - доля записей в [0,1],
// которые разрешено подавить при поиске.
func NewSet(rules []Rule, maxOutliers float64) (Set, error) {
	if maxOutliers < 0 || maxOutliers > 1 {
		return Set{}, fmt.Errorf("max_outliers must be in [0,1], got %v", maxOutliers)
	}
	for i, r := range rules {
		if r.Criterion == nil {
			return Set{}, fmt.Errorf("rule %d has no criterion", i)
		}
	}
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return Set{rules: cp, maxOutliers: maxOutliers}, nil
}

// Rules возвращает копию правил
func (s Set) Rules() []Rule {
	cp := make([]Rule, len(s.rules))
	copy(cp, s.rules)
	return cp
}

// MaxOutliers возвращает допустимую долю выбросов
func (s Set) MaxOutliers() float64 {
	return s.maxOutliers
}

// Len возвращает количество правил
func (s Set) Len() int {
	return len(s.rules)
}

// Has проверяет наличие правила указанного вида
func (s Set) Has(kind string) bool {
	for _, r := range s.rules {
		if r.Criterion.Kind() == kind {
			return true
		}
	}
	return false
}

// Adapt возвращает набор, пригодный для применения к отдельным записям:
// все глобальные правила удаляются, доля выбросов становится 0.
// Исходный набор не изменяется.
func (s Set) Adapt() Set {
	kept := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Scope == DatasetGlobal {
			continue
		}
		kept = append(kept, r)
	}
	return Set{rules: kept, maxOutliers: 0}
}

// String возвращает описание набора, например "[min_generalization map[...]] outliers=0"
func (s Set) String() string {
	parts := make([]string, len(s.rules))
	for i, r := range s.rules {
		parts[i] = r.String()
	}
	return fmt.Sprintf("[%s] outliers=%g", strings.Join(parts, ", "), s.maxOutliers)
}
