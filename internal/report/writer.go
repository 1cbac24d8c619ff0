package report

import (
	"SheetReports/internal/logger"
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	fallbackSheetName = "Report"
	// built-in number format 4 is "#,##0.00"
	thousandsNumFmt = 4
	errorFillColor  = "FF0000"
)

var thousand = decimal.NewFromInt(1000)

// SpreadsheetWriter writes evaluated cells into a copy of a template.
type SpreadsheetWriter struct {
	log *logger.Logger
}

func NewSpreadsheetWriter() *SpreadsheetWriter {
	return &SpreadsheetWriter{log: logger.New("writer")}
}

// Write opens template, writes every cell into its first sheet and returns
// the serialized workbook. Bad references and per-cell failures are skipped.
func (w *SpreadsheetWriter) Write(template []byte, cells *OrderedCells) ([]byte, error) {
	f, err := openWorkbook(template)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		if _, err := f.NewSheet(fallbackSheetName); err != nil {
			return nil, fmt.Errorf("create %s sheet: %w", fallbackSheetName, err)
		}
		sheet = fallbackSheetName
	}

	styles := newStyleCache(f)
	written := 0
	for _, entry := range cells.Entries() {
		if err := w.writeCell(f, styles, sheet, entry.Cell, entry.Value); err != nil {
			w.log.Warnf("failed to update cell %s: %v", entry.Cell, err)
			continue
		}
		written++
	}
	w.log.Infof("updated %d of %d cells on sheet %q", written, cells.Len(), sheet)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyOutput
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	w.log.Infof("generated workbook size: %d bytes", len(out))
	return out, nil
}

func openWorkbook(data []byte) (*excelize.File, error) {
	switch detectFormat(data) {
	case formatXLSX:
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTemplateUnreadable, err)
		}
		return f, nil
	case formatXLS:
		f, err := importLegacyWorkbook(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTemplateUnreadable, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: unsupported spreadsheet container", ErrTemplateUnreadable)
}

func (w *SpreadsheetWriter) writeCell(f *excelize.File, styles *styleCache, sheet, ref string, v CellValue) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while writing: %v", r)
		}
	}()

	coord, err := ParseCellRef(ref)
	if err != nil {
		return err
	}
	cell := coord.Name()

	switch v.Kind {
	case KindNull:
		return f.SetCellValue(sheet, cell, nil)
	case KindNumber:
		n := v.Number.InexactFloat64()
		if err := f.SetCellFloat(sheet, cell, n, -1, 64); err != nil {
			return err
		}
		if v.Number.Abs().GreaterThanOrEqual(thousand) {
			return styles.apply(sheet, cell, styleThousands)
		}
		return nil
	case KindError:
		if err := f.SetCellStr(sheet, cell, v.Text); err != nil {
			return err
		}
		return styles.apply(sheet, cell, styleError)
	case KindText:
		return f.SetCellStr(sheet, cell, v.Text)
	case KindBool:
		return f.SetCellBool(sheet, cell, v.Bool)
	case KindTime:
		return f.SetCellValue(sheet, cell, v.Time)
	}
	return f.SetCellStr(sheet, cell, v.String())
}

type styleVariant int

const (
	styleThousands styleVariant = iota
	styleError
)

type styleKey struct {
	base    int
	variant styleVariant
}

// styleCache derives variants of the template's existing cell styles so the
// original font, borders and alignment survive.
type styleCache struct {
	f    *excelize.File
	seen map[styleKey]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, seen: make(map[styleKey]int)}
}

func (c *styleCache) apply(sheet, cell string, variant styleVariant) error {
	base, err := c.f.GetCellStyle(sheet, cell)
	if err != nil {
		return err
	}
	key := styleKey{base: base, variant: variant}
	id, ok := c.seen[key]
	if !ok {
		style := &excelize.Style{}
		if base != 0 {
			if existing, err := c.f.GetStyle(base); err == nil && existing != nil {
				style = existing
			}
		}
		switch variant {
		case styleThousands:
			style.NumFmt = thousandsNumFmt
			style.CustomNumFmt = nil
		case styleError:
			style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{errorFillColor}}
		}
		id, err = c.f.NewStyle(style)
		if err != nil {
			return err
		}
		c.seen[key] = id
	}
	return c.f.SetCellStyle(sheet, cell, cell, id)
}
