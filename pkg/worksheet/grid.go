package worksheet

import "github.com/xuri/excelize/v2"

// Grid is an in-memory Sheet, used by tests and as the backing store for the
// excelize adapter.
type Grid struct {
	cells      map[int]map[string]string
	maxRow     int
	highestCol int // 1-indexed column number
}

// NewGrid creates an empty grid.
func NewGrid() *Grid {
	return &Grid{cells: make(map[int]map[string]string)}
}

// NewGridFromRows builds a grid from row slices: rows[0] becomes worksheet
// row 1, cell 0 becomes column A. Convenient for table-driven tests.
func NewGridFromRows(rows [][]string) *Grid {
	g := NewGrid()
	for r, cells := range rows {
		for c, value := range cells {
			if value == "" {
				continue
			}
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				continue
			}
			g.Set(r+1, col, value)
		}
	}
	return g
}

// Set stores a cell value.
func (g *Grid) Set(row int, col string, value string) {
	if row < 1 || value == "" {
		return
	}
	if g.cells[row] == nil {
		g.cells[row] = make(map[string]string)
	}
	g.cells[row][col] = value
	if row > g.maxRow {
		g.maxRow = row
	}
	if n, err := excelize.ColumnNameToNumber(col); err == nil && n > g.highestCol {
		g.highestCol = n
	}
}

// CellValue implements Sheet.
func (g *Grid) CellValue(row int, col string) string {
	return g.cells[row][col]
}

// HighestColumn implements Sheet.
func (g *Grid) HighestColumn() string {
	if g.highestCol == 0 {
		return "A"
	}
	name, err := excelize.ColumnNumberToName(g.highestCol)
	if err != nil {
		return "A"
	}
	return name
}

// MaxRow implements Sheet.
func (g *Grid) MaxRow() int {
	return g.maxRow
}

var _ Sheet = (*Grid)(nil)
var _ Sheet = (*ExcelizeSheet)(nil)
