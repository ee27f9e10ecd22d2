// Package convert проецирует пакет записей на заголовок плана.
package convert

import (
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/ruslano69/tdtp-deid/pkg/plan"
	"github.com/ruslano69/tdtp-deid/pkg/record"
)

// ToTable строит таблицу по входной схеме плана (столбцы, которые читает движок).
// Выходной заголовок плана может переименовывать атрибуты, поэтому для
// проекции он не подходит. Никогда не завершается ошибкой:
// отсутствующие поля становятся NULL, лишние поля игнорируются.
// metadata[i] относится к строке i таблицы.
func ToTable(p *plan.Plan, batch record.Batch) (table.Table, []record.Metadata) {
	return Project(p.InputSchema().Names(), batch)
}

// Project строит таблицу по произвольному заголовку
func Project(header []string, batch record.Batch) (table.Table, []record.Metadata) {
	tbl := table.New(header)
	tbl.Rows = make([][]string, len(batch))
	meta := make([]record.Metadata, len(batch))

	for i, rec := range batch {
		row := make([]string, len(header))
		for j, name := range header {
			v, ok := rec[name]
			if !ok {
				row[j] = table.Null
				continue
			}
			row[j] = Coerce(v)
		}
		tbl.Rows[i] = row
		meta[i] = rec.ID()
	}

	return tbl, meta
}
