package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CellRef is a zero-based cell coordinate.
type CellRef struct {
	Row int
	Col int
}

// ParseCellRef parses A1 notation ("b10", "$C$7") into zero-based row and column.
func ParseCellRef(s string) (CellRef, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "$", ""))
	if name == "" {
		return CellRef{}, fmt.Errorf("%w: empty", ErrInvalidCellRef)
	}

	i := 0
	for i < len(name) && name[i] >= 'A' && name[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(name) {
		return CellRef{}, fmt.Errorf("%w: %q", ErrInvalidCellRef, s)
	}

	col := 0
	for _, ch := range name[:i] {
		col = col*26 + int(ch-'A') + 1
	}
	row := 0
	for _, ch := range name[i:] {
		if ch < '0' || ch > '9' {
			return CellRef{}, fmt.Errorf("%w: %q", ErrInvalidCellRef, s)
		}
		row = row*10 + int(ch-'0')
		if row > excelize.TotalRows {
			return CellRef{}, fmt.Errorf("%w: row out of range in %q", ErrInvalidCellRef, s)
		}
	}
	if row < 1 {
		return CellRef{}, fmt.Errorf("%w: %q", ErrInvalidCellRef, s)
	}
	if col > excelize.MaxColumns {
		return CellRef{}, fmt.Errorf("%w: column out of range in %q", ErrInvalidCellRef, s)
	}
	return CellRef{Row: row - 1, Col: col - 1}, nil
}

// Name renders the reference back to A1 notation.
func (c CellRef) Name() string {
	name, err := excelize.CoordinatesToCellName(c.Col+1, c.Row+1)
	if err != nil {
		return ""
	}
	return name
}
