// Package sample загружает репрезентативную выборку, на которой разрешается план.
package sample

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ruslano69/tdtp-deid/pkg/adapters"
	_ "github.com/ruslano69/tdtp-deid/pkg/adapters/mssql"
	_ "github.com/ruslano69/tdtp-deid/pkg/adapters/mysql"
	_ "github.com/ruslano69/tdtp-deid/pkg/adapters/postgres"
	_ "github.com/ruslano69/tdtp-deid/pkg/adapters/sqlite"
	"github.com/ruslano69/tdtp-deid/pkg/convert"
	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/ruslano69/tdtp-deid/pkg/xlsx"
)

// Виды источников выборки
const (
	TypeCSV  = "csv"
	TypeXLSX = "xlsx"
	TypeSQL  = "sql"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config описывает источник выборки
type Config struct {
	Type      string          `yaml:"type"`      // csv, xlsx, sql
	Path      string          `yaml:"path"`      // Файл для csv/xlsx
	Sheet     string          `yaml:"sheet"`     // Лист xlsx (по умолчанию первый)
	Delimiter string          `yaml:"delimiter"` // Разделитель csv (по умолчанию ',')
	Database  adapters.Config `yaml:"database"`  // Подключение для sql
	Query     string          `yaml:"query"`     // SQL-запрос выборки
	Table     string          `yaml:"table"`     // Либо имя таблицы (SELECT *)
	Limit     int             `yaml:"limit"`     // Максимум строк (0 = все)
}

// FromLocation строит Config по пути к файлу (DEID_SAMPLE): тип по расширению
func FromLocation(location string) Config {
	cfg := Config{Type: TypeCSV, Path: location}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".xlsx", ".xlsm":
		cfg.Type = TypeXLSX
	case ".tsv":
		cfg.Delimiter = "\t"
	}
	return cfg
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	switch c.Type {
	case TypeCSV, TypeXLSX:
		if c.Path == "" {
			return fmt.Errorf("sample.path is required for type '%s'", c.Type)
		}
	case TypeSQL:
		if c.Database.Type == "" || c.Database.DSN == "" {
			return fmt.Errorf("sample.database.type and sample.database.dsn are required for type 'sql'")
		}
		if c.Query == "" && c.Table == "" {
			return fmt.Errorf("sample.query or sample.table is required for type 'sql'")
		}
		if c.Query == "" && !tableNameRe.MatchString(c.Table) {
			return fmt.Errorf("invalid sample.table '%s'", c.Table)
		}
	case "":
		return fmt.Errorf("sample.type is required")
	default:
		return fmt.Errorf("unsupported sample type '%s' (supported: csv, xlsx, sql)", c.Type)
	}
	if c.Limit < 0 {
		return fmt.Errorf("sample.limit must be >= 0")
	}
	return nil
}

// Load читает выборку и проецирует ее на порядок атрибутов схемы
func Load(ctx context.Context, cfg Config, s schema.Schema) (table.Table, error) {
	if err := cfg.Validate(); err != nil {
		return table.Table{}, err
	}

	var (
		raw table.Table
		err error
	)
	switch cfg.Type {
	case TypeCSV:
		raw, err = loadCSV(cfg.Path, cfg.Delimiter)
	case TypeXLSX:
		raw, err = xlsx.ReadTable(cfg.Path, cfg.Sheet)
	case TypeSQL:
		raw, err = loadSQL(ctx, cfg)
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to load sample: %w", err)
	}

	if cfg.Limit > 0 && raw.Len() > cfg.Limit {
		raw.Rows = raw.Rows[:cfg.Limit]
	}

	return Project(raw, s)
}

// Project переставляет столбцы в порядок схемы. Лишние столбцы отбрасываются,
// отсутствие столбца схемы - ошибка.
func Project(raw table.Table, s schema.Schema) (table.Table, error) {
	names := s.Names()
	cols := make([]int, len(names))
	for i, name := range names {
		c := raw.Column(name)
		if c < 0 {
			return table.Table{}, fmt.Errorf("sample has no column '%s' (columns: %v)", name, raw.Header)
		}
		cols[i] = c
	}

	out := table.New(names)
	out.Rows = make([][]string, len(raw.Rows))
	for r, row := range raw.Rows {
		if len(row) != raw.Width() {
			return table.Table{}, fmt.Errorf("sample row %d has %d values, header has %d", r, len(row), raw.Width())
		}
		projected := make([]string, len(cols))
		for i, c := range cols {
			projected[i] = row[c]
		}
		out.Rows[r] = projected
	}
	return out, nil
}

func loadCSV(path, delimiter string) (table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return table.Table{}, err
	}
	defer f.Close()

	return ReadCSV(f, delimiter)
}

// ReadCSV читает CSV с заголовком. Значения нормализуются так же, как поля записей.
func ReadCSV(r io.Reader, delimiter string) (table.Table, error) {
	cr := csv.NewReader(r)
	if delimiter != "" {
		cr.Comma = []rune(delimiter)[0]
	}
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return table.Table{}, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to read csv header: %w", err)
	}

	out := table.New(header)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.Table{}, fmt.Errorf("failed to read csv row %d: %w", out.Len()+1, err)
		}
		row := make([]string, len(rec))
		for i, v := range rec {
			row[i] = convert.Coerce(v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func loadSQL(ctx context.Context, cfg Config) (table.Table, error) {
	if cfg.Database.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Database.Timeout)
		defer cancel()
	}

	a, err := adapters.New(ctx, cfg.Database)
	if err != nil {
		return table.Table{}, err
	}
	defer a.Close(ctx)

	query := cfg.Query
	if query == "" {
		query = "SELECT * FROM " + cfg.Table
	}
	return a.Query(ctx, query)
}
