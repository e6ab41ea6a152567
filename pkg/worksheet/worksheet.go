// Package worksheet abstracts read-only access to one sheet of a spreadsheet
// workbook. The pipeline never writes back to the source file.
package worksheet

import "github.com/xuri/excelize/v2"

// Sheet is a read-only grid of cells addressed by 1-indexed row and column
// letter. Empty and out-of-bounds cells read as "".
type Sheet interface {
	// CellValue returns the formatted value of a cell, "" when empty.
	CellValue(row int, col string) string

	// HighestColumn returns the letter of the rightmost column that holds
	// data anywhere in the sheet, e.g. "F".
	HighestColumn() string

	// MaxRow returns the highest row index that holds data.
	MaxRow() int
}

// ColumnLetters returns the column letters from "A" through highest inclusive.
func ColumnLetters(highest string) []string {
	n, err := excelize.ColumnNameToNumber(highest)
	if err != nil || n < 1 {
		return nil
	}
	letters := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		name, err := excelize.ColumnNumberToName(i)
		if err != nil {
			return letters
		}
		letters = append(letters, name)
	}
	return letters
}

// RowValues reads one row across the given columns. Missing cells read as "".
func RowValues(s Sheet, row int, columns []string) map[string]string {
	values := make(map[string]string, len(columns))
	for _, col := range columns {
		values[col] = s.CellValue(row, col)
	}
	return values
}
