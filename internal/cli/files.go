package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruslano69/tdtp-deid/pkg/convert"
	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/ruslano69/tdtp-deid/pkg/record"
	"github.com/ruslano69/tdtp-deid/pkg/sample"
	"github.com/ruslano69/tdtp-deid/pkg/xlsx"
)

// readBatch reads records from a .json, .csv, .tsv or .xlsx file; "-" or "" is JSON on stdin.
func readBatch(path, sheet string, stdin io.Reader) (record.Batch, error) {
	if path == "" || path == "-" {
		return record.DecodeBatch(stdin)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		tbl, err := xlsx.ReadTable(path, sheet)
		if err != nil {
			return nil, err
		}
		return tableToBatch(tbl), nil
	case ".csv", ".tsv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		delim := ","
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			delim = "\t"
		}
		tbl, err := sample.ReadCSV(f, delim)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return tableToBatch(tbl), nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		batch, err := record.DecodeBatch(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return batch, nil
	}
}

// tableToBatch turns rows into records; NULL cells become JSON null.
func tableToBatch(tbl table.Table) record.Batch {
	batch := make(record.Batch, len(tbl.Rows))
	for i, row := range tbl.Rows {
		rec := make(record.Record, len(tbl.Header))
		for j, name := range tbl.Header {
			if j >= len(row) || row[j] == table.Null {
				rec[name] = nil
				continue
			}
			rec[name] = row[j]
		}
		batch[i] = rec
	}
	return batch
}

// writeBatch writes records as JSON (stdout for "" or "-"), CSV or XLSX by extension.
// Tabular outputs use header, preceded by the identifier column when any record carries one.
func writeBatch(path string, header []string, batch record.Batch, stdout io.Writer) error {
	if path == "" || path == "-" {
		return writeJSON(stdout, batch)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".csv" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := writeJSON(f, batch); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	for _, rec := range batch {
		if rec.ID().Present {
			header = append([]string{schema.IdentifierField}, header...)
			break
		}
	}
	tbl, _ := convert.Project(header, batch)

	if ext == ".xlsx" {
		return xlsx.WriteTable(tbl, path, "Deidentified")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	_ = w.Write(tbl.Header)
	_ = w.WriteAll(tbl.Rows)
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, batch record.Batch) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(batch)
}
