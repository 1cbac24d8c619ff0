package report

import (
	"SheetReports/internal/logger"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

type containerFormat int

const (
	formatUnknown containerFormat = iota
	formatXLSX
	formatXLS
)

func detectFormat(b []byte) containerFormat {
	switch {
	case bytes.HasPrefix(b, zipMagic):
		return formatXLSX
	case bytes.HasPrefix(b, ole2Magic):
		return formatXLS
	}
	return formatUnknown
}

var legacyLog = logger.New("xls")

// importLegacyWorkbook copies the cell values of a BIFF (.xls) workbook into a
// new excelize workbook. Only values survive; BIFF styling is not carried over.
func importLegacyWorkbook(data []byte) (f *excelize.File, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("read xls: %v", r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}

	f = excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	copied, skipped := 0, 0

	for i := 0; i < book.NumSheets(); i++ {
		src := book.GetSheet(i)
		if src == nil {
			continue
		}
		name := sheetTitle(src.Name, i)
		if copied == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
		copied++

		for r := 0; r <= int(src.MaxRow); r++ {
			row := legacyRow(src, r)
			if row == nil {
				continue
			}
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				raw := legacyCol(row, c)
				if raw == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					skipped++
					continue
				}
				if n, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64); perr == nil {
					err = f.SetCellFloat(name, cell, n, -1, 64)
				} else {
					err = f.SetCellStr(name, cell, raw)
				}
				if err != nil {
					legacyLog.Warnf("skipping %s!%s: %v", name, cell, err)
					skipped++
				}
			}
		}
	}
	if skipped > 0 {
		legacyLog.Warnf("imported %d sheets, %d cells skipped", copied, skipped)
	}
	return f, nil
}

// legacyRow returns nil for rows the sheet does not store; xls.WorkSheet.Row
// dereferences the missing entry.
func legacyRow(src *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return src.Row(r)
}

// legacyCol returns "" for a column outside the row's stored ranges.
func legacyCol(row *xls.Row, c int) (v string) {
	defer func() {
		if recover() != nil {
			v = ""
		}
	}()
	return row.Col(c)
}

func sheetTitle(name string, idx int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("Sheet%d", idx+1)
	}
	if len([]rune(name)) > excelize.MaxSheetNameLength {
		name = string([]rune(name)[:excelize.MaxSheetNameLength])
	}
	return name
}
