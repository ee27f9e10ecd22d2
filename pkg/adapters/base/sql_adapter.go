// Package base содержит общую часть адаптеров поверх database/sql.
package base

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ruslano69/tdtp-deid/pkg/convert"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
)

// SQLAdapter реализует Query/Ping/Close для драйверов database/sql
type SQLAdapter struct {
	DB           *sql.DB
	VersionQuery string
}

// Open открывает и проверяет подключение
func Open(ctx context.Context, driver, dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Close закрывает соединение с БД
func (a *SQLAdapter) Close(ctx context.Context) error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// Ping проверяет соединение с БД
func (a *SQLAdapter) Ping(ctx context.Context) error {
	if a.DB == nil {
		return fmt.Errorf("not connected")
	}
	return a.DB.PingContext(ctx)
}

// Query выполняет запрос и читает все строки
func (a *SQLAdapter) Query(ctx context.Context, query string) (table.Table, error) {
	if a.DB == nil {
		return table.Table{}, fmt.Errorf("not connected")
	}
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return table.Table{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return ReadRows(rows)
}

// GetDatabaseVersion выполняет VersionQuery
func (a *SQLAdapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	if a.DB == nil {
		return "", fmt.Errorf("not connected")
	}
	var version string
	if err := a.DB.QueryRowContext(ctx, a.VersionQuery).Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

// ReadRows читает *sql.Rows в таблицу строк
func ReadRows(rows *sql.Rows) (table.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to read columns: %w", err)
	}

	out := table.New(cols)
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return table.Table{}, fmt.Errorf("failed to scan row %d: %w", out.Len(), err)
		}
		out.Rows = append(out.Rows, CoerceRow(values))
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return out, nil
}

// CoerceRow приводит значения строки к каноническому тексту
func CoerceRow(values []any) []string {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = convert.Coerce(v)
	}
	return row
}
