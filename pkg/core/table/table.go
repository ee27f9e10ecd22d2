// Package table описывает табличное представление пакета записей,
// которое передается движку деидентификации.
package table

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Null - маркер отсутствующего значения.
// Пустая строка трактуется как NULL, как и в остальных форматах фреймворка.
const Null = ""

// Table - заголовок и строки значений в каноническом строковом виде.
// Длина каждой строки равна длине заголовка.
type Table struct {
	Header []string
	Rows   [][]string
}

// New создает пустую таблицу с копией заголовка
func New(header []string) Table {
	h := make([]string, len(header))
	copy(h, header)
	return Table{Header: h, Rows: [][]string{}}
}

// Len возвращает количество строк
func (t Table) Len() int {
	return len(t.Rows)
}

// Width возвращает количество столбцов
func (t Table) Width() int {
	return len(t.Header)
}

// Column возвращает индекс столбца или -1
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Clone возвращает глубокую копию таблицы
func (t Table) Clone() Table {
	out := New(t.Header)
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Fingerprint вычисляет xxh3 от заголовка и всех ячеек.
// Каждая ячейка предваряется длиной, поэтому ("ab","c") и ("a","bc") различаются.
func Fingerprint(t Table) uint64 {
	h := xxh3.New()
	var lenBuf [8]byte

	writeCell := func(s string) {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.WriteString(s)
	}

	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(t.Header)))
	_, _ = h.Write(lenBuf[:])
	for _, c := range t.Header {
		writeCell(c)
	}

	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(t.Rows)))
	_, _ = h.Write(lenBuf[:])
	for _, row := range t.Rows {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(row)))
		_, _ = h.Write(lenBuf[:])
		for _, c := range row {
			writeCell(c)
		}
	}

	return h.Sum64()
}
