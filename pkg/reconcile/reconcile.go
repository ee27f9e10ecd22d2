// Package reconcile собирает выходные записи из строк, возвращенных движком.
package reconcile

import (
	"fmt"

	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
	"github.com/ruslano69/tdtp-deid/pkg/record"
)

// RowCountMismatchError - движок вернул не столько строк, сколько получил
type RowCountMismatchError struct {
	Expected int
	Got      int
}

func (e *RowCountMismatchError) Error() string {
	return fmt.Sprintf("row count mismatch: expected %d rows, got %d", e.Expected, e.Got)
}

// SchemaMismatchError - ширина строки или заголовка не совпадает с заголовком плана
type SchemaMismatchError struct {
	Row      int // -1 для заголовка
	Expected int
	Got      int
}

func (e *SchemaMismatchError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("schema mismatch: expected %d columns, got %d", e.Expected, e.Got)
	}
	return fmt.Sprintf("schema mismatch at row %d: expected %d values, got %d", e.Row, e.Expected, e.Got)
}

// Reconcile соединяет строки с метаданными по позиции.
// Строка i превращается в {_id: metadata[i]} плюс {header[j]: rows[i][j]}.
// Несоответствия не исправляются, а возвращаются как ошибки.
func Reconcile(header []string, rows [][]string, metadata []record.Metadata) (record.Batch, error) {
	if len(rows) != len(metadata) {
		return nil, &RowCountMismatchError{Expected: len(metadata), Got: len(rows)}
	}

	out := make(record.Batch, len(rows))
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, &SchemaMismatchError{Row: i, Expected: len(header), Got: len(row)}
		}

		rec := make(record.Record, len(header)+1)
		if metadata[i].Present {
			rec[schema.IdentifierField] = metadata[i].ID
		}
		for j, name := range header {
			rec[name] = row[j]
		}
		out[i] = rec
	}

	return out, nil
}
