package worksheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/smetalab/estimate-engine/pkg/apperrors"
)

// ExcelizeSheet adapts one sheet of an excelize workbook to the Sheet
// interface. All cells are materialized up front so reads never fail.
type ExcelizeSheet struct {
	grid *Grid
}

// OpenSheet opens an .xlsx workbook and wraps the named sheet. An empty name
// selects the first sheet.
func OpenSheet(path, sheetName string) (*ExcelizeSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrSheetNotFound, sheetName)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	grid := NewGrid()
	for r, cells := range rows {
		for c, value := range cells {
			if value == "" {
				continue
			}
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				continue
			}
			grid.Set(r+1, col, value)
		}
	}

	return &ExcelizeSheet{grid: grid}, nil
}

// CellValue implements Sheet.
func (s *ExcelizeSheet) CellValue(row int, col string) string {
	return s.grid.CellValue(row, col)
}

// HighestColumn implements Sheet.
func (s *ExcelizeSheet) HighestColumn() string {
	return s.grid.HighestColumn()
}

// MaxRow implements Sheet.
func (s *ExcelizeSheet) MaxRow() int {
	return s.grid.MaxRow()
}
