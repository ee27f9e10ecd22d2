package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ruslano69/tdtp-deid/pkg/adapters"
	"github.com/ruslano69/tdtp-deid/pkg/adapters/base"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
)

// AdapterType идентификатор адаптера PostgreSQL
const AdapterType = "postgres"

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter читает выборку из PostgreSQL через пул pgx
type Adapter struct {
	pool *pgxpool.Pool
}

// Connect устанавливает подключение к PostgreSQL
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		config.MaxConns = int32(cfg.MaxConns)
	} else {
		config.MaxConns = 4 // выборка читается один раз при старте
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.pool = pool
	return nil
}

// Close закрывает пул
func (a *Adapter) Close(ctx context.Context) error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Ping проверяет соединение с БД
func (a *Adapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return fmt.Errorf("not connected")
	}
	return a.pool.Ping(ctx)
}

// Query выполняет запрос; значения берутся из rows.Values() (уже декодированные pgx)
func (a *Adapter) Query(ctx context.Context, query string) (table.Table, error) {
	if a.pool == nil {
		return table.Table{}, fmt.Errorf("not connected")
	}

	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return table.Table{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}

	out := table.New(header)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return table.Table{}, fmt.Errorf("failed to read row %d: %w", out.Len(), err)
		}
		out.Rows = append(out.Rows, base.CoerceRow(values))
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return out, nil
}

// GetDatabaseVersion возвращает версию PostgreSQL
func (a *Adapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	if a.pool == nil {
		return "", fmt.Errorf("not connected")
	}
	var version string
	if err := a.pool.QueryRow(ctx, "SHOW server_version").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

// GetDatabaseType возвращает тип СУБД
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}
