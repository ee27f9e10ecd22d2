package xlsx

import (
	"fmt"
	"strconv"

	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/xuri/excelize/v2"
)

// WriteTable - write a table to an XLSX file
//
// Creates an Excel file with a styled header row and one row per table row.
// Null cells are written as empty cells.
//
// Example:
//
//	err := xlsx.WriteTable(tbl, "output.xlsx", "Deidentified")
func WriteTable(tbl table.Table, filePath string, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Sheet1"
	}

	// Create/rename sheet
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for col, name := range tbl.Header {
		cell := columnName(col+1) + "1"
		f.SetCellValue(sheetName, cell, name)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	// Generalized values like "30-39" must stay text, so every cell is written as a string
	for rowIdx, row := range tbl.Rows {
		for col := range tbl.Header {
			if col >= len(row) {
				continue
			}
			cell := columnName(col+1) + strconv.Itoa(rowIdx+2)
			f.SetCellStr(sheetName, cell, row[col])
		}
	}

	for col := range tbl.Header {
		colName := columnName(col + 1)
		f.SetColWidth(sheetName, colName, colName, 15)
	}

	return f.SaveAs(filePath)
}

// ReadRows - read all rows of a sheet as strings
//
// An empty sheetName selects the first sheet. Short rows are returned as-is;
// excelize trims trailing empty cells.
func ReadRows(filePath string, sheetName string) ([][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

// ReadTable - read a sheet whose first row is the header
//
// Every data row is padded with null cells to the header width.
func ReadTable(filePath string, sheetName string) (table.Table, error) {
	rows, err := ReadRows(filePath, sheetName)
	if err != nil {
		return table.Table{}, err
	}
	if len(rows) < 2 {
		return table.Table{}, fmt.Errorf("file must have header and at least one data row")
	}

	tbl := table.New(rows[0])
	for _, dataRow := range rows[1:] {
		values := make([]string, len(tbl.Header))
		for col := range values {
			if col < len(dataRow) {
				values[col] = dataRow[col]
			} else {
				values[col] = table.Null
			}
		}
		tbl.Rows = append(tbl.Rows, values)
	}

	return tbl, nil
}

// columnName - convert column index to Excel column name (1 → A, 27 → AA)
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
