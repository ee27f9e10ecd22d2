// Package record описывает записи, которыми обмениваются вызывающая сторона и сервис.
package record

import (
	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
)

// Record - одна запись: имя поля -> значение.
// Поля с префиксом "_" - служебные, в схему не входят.
type Record map[string]any

// Batch - упорядоченная последовательность записей
type Batch []Record

// Metadata - служебные данные одной строки, которые возвращаются в выходную запись
type Metadata struct {
	ID      any
	Present bool
}

// IsMetadata проверяет, является ли поле служебным
func IsMetadata(field string) bool {
	return schema.IsReserved(field)
}

// ID извлекает идентификатор записи
func (r Record) ID() Metadata {
	id, ok := r[schema.IdentifierField]
	return Metadata{ID: id, Present: ok}
}
