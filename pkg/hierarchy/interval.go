package hierarchy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Interval обобщает числа в интервалы заданной ширины.
// Для widths [10, 20]: уровень 0 - исходное значение, 1 - "30-39", 2 - "20-39", 3 - "*".
type Interval struct {
	widths  []int64
	min     *float64
	max     *float64
	missing missing
}

// NewInterval создает интервальную иерархию. Ширины должны быть положительными и не убывать.
func NewInterval(widths []int64, missingLabel string) (*Interval, error) {
	if len(widths) == 0 {
		return nil, fmt.Errorf("interval hierarchy requires at least one width")
	}
	for i, w := range widths {
		if w <= 0 {
			return nil, fmt.Errorf("interval width %d must be positive, got %d", i, w)
		}
		if i > 0 && w < widths[i-1] {
			return nil, fmt.Errorf("interval widths must not decrease: %d < %d", w, widths[i-1])
		}
	}
	cp := make([]int64, len(widths))
	copy(cp, widths)
	return &Interval{widths: cp, missing: missing{label: missingLabel}}, nil
}

// Height реализует Hierarchy: исходное значение, интервалы и верхний уровень "*"
func (h *Interval) Height() int {
	return len(h.widths) + 2
}

// Generalize реализует Hierarchy
func (h *Interval) Generalize(value string, level int) (string, error) {
	if out, done, err := h.missing.handle(value, level, h.Height()); done {
		return out, err
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: '%s' is not a number", ErrOutOfDomain, value)
	}
	if (h.min != nil && v < *h.min) || (h.max != nil && v > *h.max) {
		return "", fmt.Errorf("%w: %s", ErrOutOfDomain, value)
	}

	switch {
	case level == 0:
		return value, nil
	case level == h.Height()-1:
		return "*", nil
	}

	w := h.widths[level-1]
	lo := int64(math.Floor(v/float64(w))) * w
	return fmt.Sprintf("%d-%d", lo, lo+w-1), nil
}

// NewIntervalFromConfig создает интервальную иерархию.
// Параметры: widths (список), необязательные min и max.
func NewIntervalFromConfig(params map[string]any) (Hierarchy, error) {
	raw, ok := params["widths"].([]any)
	if !ok {
		if ints, ok := params["widths"].([]int); ok {
			for _, i := range ints {
				raw = append(raw, i)
			}
		} else {
			return nil, fmt.Errorf("interval hierarchy requires 'widths' list")
		}
	}

	widths := make([]int64, len(raw))
	for i, r := range raw {
		n, err := toInt(r)
		if err != nil {
			return nil, fmt.Errorf("widths[%d]: %w", i, err)
		}
		widths[i] = int64(n)
	}

	h, err := NewInterval(widths, newMissing(params).label)
	if err != nil {
		return nil, err
	}

	if v, ok := params["min"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("min: %w", err)
		}
		h.min = &f
	}
	if v, ok := params["max"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("max: %w", err)
		}
		h.max = &f
	}

	return h, nil
}
