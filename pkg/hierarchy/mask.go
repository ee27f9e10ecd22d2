package hierarchy

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Mask заменяет на каждом уровне еще один символ с конца на маскирующий.
// Уровень 2 для "94110" дает "941**".
type Mask struct {
	levels  int
	length  int // 0 - длина значений не проверяется
	char    string
	missing missing
}

// NewMask создает маскирующую иерархию с levels уровнями маскирования
func NewMask(levels, length int, char, missingLabel string) (*Mask, error) {
	if levels < 1 {
		return nil, fmt.Errorf("mask hierarchy requires levels >= 1, got %d", levels)
	}
	if length < 0 {
		return nil, fmt.Errorf("mask length must be >= 0, got %d", length)
	}
	if utf8.RuneCountInString(char) != 1 {
		return nil, fmt.Errorf("mask char must be a single character, got '%s'", char)
	}
	return &Mask{levels: levels, length: length, char: char, missing: missing{label: missingLabel}}, nil
}

// Height реализует Hierarchy
func (h *Mask) Height() int {
	return h.levels + 1
}

// Generalize реализует Hierarchy
func (h *Mask) Generalize(value string, level int) (string, error) {
	if out, done, err := h.missing.handle(value, level, h.Height()); done {
		return out, err
	}

	runes := []rune(value)
	if h.length > 0 && len(runes) != h.length {
		return "", fmt.Errorf("%w: '%s' has length %d, expected %d", ErrOutOfDomain, value, len(runes), h.length)
	}

	n := level
	if n > len(runes) {
		n = len(runes)
	}
	keep := len(runes) - n
	return string(runes[:keep]) + strings.Repeat(h.char, n), nil
}

// NewMaskFromConfig создает маскирующую иерархию.
// Параметры: levels (по умолчанию length), length, char (по умолчанию '*').
func NewMaskFromConfig(params map[string]any) (Hierarchy, error) {
	length := 0
	if v, ok := params["length"]; ok {
		n, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("length: %w", err)
		}
		length = n
	}

	levels := length
	if v, ok := params["levels"]; ok {
		n, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("levels: %w", err)
		}
		levels = n
	}

	char := "*"
	if v, ok := params["char"].(string); ok {
		char = v
	}

	return NewMask(levels, length, char, newMissing(params).label)
}
