package hierarchy

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Table - иерархия, заданная явной таблицей: первый столбец - исходное значение,
// столбец i - значение на уровне i. Формат совпадает с CSV-иерархиями ARX.
type Table struct {
	height  int
	levels  map[string][]string
	missing missing
}

// NewTable строит иерархию из строк. Все строки должны иметь одинаковую длину.
func NewTable(rows [][]string, missingLabel string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("table hierarchy has no rows")
	}

	h := &Table{
		height:  len(rows[0]),
		levels:  make(map[string][]string, len(rows)),
		missing: missing{label: missingLabel},
	}
	if h.height == 0 {
		return nil, fmt.Errorf("table hierarchy row 0 is empty")
	}

	for i, row := range rows {
		if len(row) != h.height {
			return nil, fmt.Errorf("table hierarchy row %d has %d levels, expected %d", i, len(row), h.height)
		}
		if _, dup := h.levels[row[0]]; dup {
			return nil, fmt.Errorf("table hierarchy has duplicate value '%s'", row[0])
		}
		cp := make([]string, len(row))
		copy(cp, row)
		h.levels[row[0]] = cp
	}

	return h, nil
}

// Height реализует Hierarchy
func (h *Table) Height() int {
	return h.height
}

// Generalize реализует Hierarchy
func (h *Table) Generalize(value string, level int) (string, error) {
	if out, done, err := h.missing.handle(value, level, h.height); done {
		return out, err
	}
	row, ok := h.levels[value]
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrOutOfDomain, value)
	}
	return row[level], nil
}

// NewTableFromConfig создает табличную иерархию.
// Параметры: rows ([][]string) либо file (путь к CSV) и delimiter (по умолчанию ';').
func NewTableFromConfig(params map[string]any) (Hierarchy, error) {
	label := newMissing(params).label

	if raw, ok := params["rows"]; ok {
		rows, err := toRows(raw)
		if err != nil {
			return nil, err
		}
		return NewTable(rows, label)
	}

	path, ok := params["file"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("table hierarchy requires 'rows' or 'file'")
	}

	delimiter := ';'
	if d, ok := params["delimiter"].(string); ok && d != "" {
		delimiter = []rune(d)[0]
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hierarchy file: %w", err)
	}
	defer f.Close()

	rows, err := readCSV(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy file %s: %w", path, err)
	}
	return NewTable(rows, label)
}

func readCSV(r io.Reader, delimiter rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

// toRows приводит [][]any из YAML к [][]string
func toRows(raw any) ([][]string, error) {
	switch v := raw.(type) {
	case [][]string:
		return v, nil
	case []any:
		rows := make([][]string, len(v))
		for i, r := range v {
			cells, ok := r.([]any)
			if !ok {
				return nil, fmt.Errorf("rows[%d] must be a list", i)
			}
			row := make([]string, len(cells))
			for j, c := range cells {
				row[j] = fmt.Sprint(c)
			}
			rows[i] = row
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("'rows' must be a list of lists, got %T", raw)
	}
}
