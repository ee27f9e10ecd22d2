package hierarchy

import (
	"fmt"

	"github.com/ruslano69/tdtp-deid/pkg/xlsx"
)

// NewXLSXFromConfig создает табличную иерархию из листа Excel.
// Параметры: file, sheet (по умолчанию первый лист), header (пропустить первую строку).
func NewXLSXFromConfig(params map[string]any) (Hierarchy, error) {
	path, ok := params["file"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("xlsx hierarchy requires 'file'")
	}
	sheet, _ := params["sheet"].(string)

	rows, err := xlsx.ReadRows(path, sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx hierarchy %s: %w", path, err)
	}

	if skip, _ := params["header"].(bool); skip && len(rows) > 0 {
		rows = rows[1:]
	}

	// excelize обрезает пустые ячейки в конце строки
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for i, r := range rows {
		if len(r) < width {
			padded := make([]string, width)
			copy(padded, r)
			rows[i] = padded
		}
	}

	return NewTable(rows, newMissing(params).label)
}
