package sample

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ruslano69/tdtp-deid/pkg/adapters"
	"github.com/ruslano69/tdtp-deid/pkg/adapters/base"
	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/ruslano69/tdtp-deid/pkg/xlsx"
)

func testSchema() schema.Schema {
	return schema.NewBuilder().
		AddQuasiIdentifier("age", "age").
		AddQuasiIdentifier("zip", "zip").
		Build()
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.csv")
	content := "zip,name,age\n94110,Ann,34\n10001,Bob,\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	tbl, err := Load(context.Background(), FromLocation(path), testSchema())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if strings.Join(tbl.Header, ",") != "age,zip" {
		t.Errorf("header = %v", tbl.Header)
	}
	if tbl.Rows[0][0] != "34" || tbl.Rows[0][1] != "94110" {
		t.Errorf("row 0 = %v", tbl.Rows[0])
	}
	if tbl.Rows[1][0] != table.Null {
		t.Errorf("empty cell = %q, want null marker", tbl.Rows[1][0])
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.xlsx")
	src := table.Table{
		Header: []string{"age", "zip"},
		Rows:   [][]string{{"34", "94110"}, {"51", "10001"}, {"36", "94117"}},
	}
	if err := xlsx.WriteTable(src, path, "Sample"); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	cfg := FromLocation(path)
	cfg.Limit = 2
	tbl, err := Load(context.Background(), cfg, testSchema())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 2 || tbl.Rows[1][1] != "10001" {
		t.Errorf("table = %+v", tbl)
	}
}

func TestLoadSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "sample.db")

	db, err := base.Open(ctx, "sqlite", dsn, 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, stmt := range []string{
		"CREATE TABLE patients (id INTEGER, age INTEGER, zip TEXT)",
		"INSERT INTO patients VALUES (1, 34, '94110')",
		"INSERT INTO patients VALUES (2, NULL, '10001')",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	db.Close()

	cfg := Config{
		Type:     TypeSQL,
		Database: adapters.Config{Type: "sqlite", DSN: dsn},
		Table:    "patients",
	}
	tbl, err := Load(ctx, cfg, testSchema())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 2 || tbl.Rows[0][0] != "34" || tbl.Rows[1][0] != table.Null {
		t.Errorf("table = %+v", tbl)
	}
}

func TestProjectMissingColumn(t *testing.T) {
	raw := table.Table{Header: []string{"age"}, Rows: [][]string{{"1"}}}
	if _, err := Project(raw, testSchema()); err == nil || !strings.Contains(err.Error(), "zip") {
		t.Errorf("Project() error = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"csv", Config{Type: TypeCSV, Path: "a.csv"}, false},
		{"csv no path", Config{Type: TypeCSV}, true},
		{"no type", Config{}, true},
		{"unknown type", Config{Type: "parquet", Path: "x"}, true},
		{"sql query", Config{Type: TypeSQL, Database: adapters.Config{Type: "sqlite", DSN: "x.db"}, Query: "SELECT 1"}, false},
		{"sql table", Config{Type: TypeSQL, Database: adapters.Config{Type: "sqlite", DSN: "x.db"}, Table: "public.patients"}, false},
		{"sql injection", Config{Type: TypeSQL, Database: adapters.Config{Type: "sqlite", DSN: "x.db"}, Table: "a; DROP TABLE b"}, true},
		{"sql no dsn", Config{Type: TypeSQL, Database: adapters.Config{Type: "sqlite"}, Table: "a"}, true},
		{"negative limit", Config{Type: TypeCSV, Path: "a.csv", Limit: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromLocation(t *testing.T) {
	if c := FromLocation("data/sample.XLSX"); c.Type != TypeXLSX {
		t.Errorf("type = %s", c.Type)
	}
	if c := FromLocation("sample.tsv"); c.Type != TypeCSV || c.Delimiter != "\t" {
		t.Errorf("config = %+v", c)
	}
}
