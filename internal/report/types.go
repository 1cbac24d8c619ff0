package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MappingRecord binds one template cell to the SQL that fills it.
type MappingRecord struct {
	TargetCell   string `json:"targetCell" yaml:"target_cell"`
	ElementLabel string `json:"elementName" yaml:"element_label"`
	AccountName  string `json:"coaName" yaml:"account_name"`
	AccountCode  string `json:"coaCode" yaml:"account_code"`
	SQLScript    string `json:"sqlScript" yaml:"sql_script"`
	MappingID    int64  `json:"mappingId" yaml:"mapping_id"`
	SheetName    string `json:"sheetName" yaml:"sheet_name"`
}

// TemplateFile is one uploaded spreadsheet as recorded by the upload catalog.
type TemplateFile struct {
	ID             int64     `json:"id" yaml:"id"`
	StoredFileName string    `json:"fileName" yaml:"file_name"`
	FilePath       string    `json:"filePath" yaml:"file_path"`
	UploadedAt     time.Time `json:"uploadDate" yaml:"uploaded_at"`
	IsMultiSheet   bool      `json:"isWorkbook" yaml:"is_multi_sheet"`
}

// TemplateDetails is a TemplateFile with what the store knows about its bytes.
type TemplateDetails struct {
	TemplateFile
	SheetName  string `json:"sheetName"`
	FileExists bool   `json:"fileExists"`
	FileSize   int64  `json:"fileSize"`
	Checksum   string `json:"checksum,omitempty"`
}

type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
	KindBool
	KindTime
	KindError
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const (
	ErrorPrefix = "ERROR: "
	NoSQLMarker = "NO_SQL"
)

// CellValue is the evaluated content of one mapped cell. Error values are
// text carrying ErrorPrefix so the failure shows up inside the workbook.
type CellValue struct {
	Kind   ValueKind
	Number decimal.Decimal
	Text   string
	Bool   bool
	Time   time.Time
}

func NullValue() CellValue { return CellValue{Kind: KindNull} }

func NumberValue(d decimal.Decimal) CellValue { return CellValue{Kind: KindNumber, Number: d} }

func FloatValue(f float64) CellValue { return NumberValue(decimal.NewFromFloat(f)) }

// TextValue returns an error value when s carries the error prefix.
func TextValue(s string) CellValue {
	if strings.HasPrefix(s, strings.TrimSpace(ErrorPrefix)) {
		return CellValue{Kind: KindError, Text: s}
	}
	return CellValue{Kind: KindText, Text: s}
}

func BoolValue(b bool) CellValue { return CellValue{Kind: KindBool, Bool: b} }

func TimeValue(t time.Time) CellValue { return CellValue{Kind: KindTime, Time: t} }

func ErrorValue(msg string) CellValue {
	return CellValue{Kind: KindError, Text: ErrorPrefix + msg}
}

func (v CellValue) IsError() bool { return v.Kind == KindError }

// Interface returns the plain Go value, used for JSON previews.
func (v CellValue) Interface() interface{} {
	switch v.Kind {
	case KindNumber:
		return v.Number.InexactFloat64()
	case KindText, KindError:
		return v.Text
	case KindBool:
		return v.Bool
	case KindTime:
		return v.Time.Format(time.RFC3339)
	}
	return nil
}

func (v CellValue) String() string {
	switch v.Kind {
	case KindNull:
		return "<null>"
	case KindNumber:
		return v.Number.String()
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindTime:
		return v.Time.Format(time.RFC3339)
	}
	return v.Text
}

func (v CellValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		return []byte(v.Number.String()), nil
	case KindBool:
		return []byte(fmt.Sprintf("%t", v.Bool)), nil
	}
	return []byte(fmt.Sprintf("%q", v.String())), nil
}

// CellEntry is one evaluated mapping in report order.
type CellEntry struct {
	Cell      string    `json:"cell"`
	Value     CellValue `json:"value"`
	MappingID int64     `json:"mappingId"`
}

// OrderedCells keeps cell values in first-insertion order; a repeated cell
// keeps its original position and takes the later value.
type OrderedCells struct {
	entries []CellEntry
	index   map[string]int
}

func NewOrderedCells(capacity int) *OrderedCells {
	return &OrderedCells{
		entries: make([]CellEntry, 0, capacity),
		index:   make(map[string]int, capacity),
	}
}

func (c *OrderedCells) Put(cell string, v CellValue, mappingID int64) {
	if i, ok := c.index[cell]; ok {
		c.entries[i].Value = v
		c.entries[i].MappingID = mappingID
		return
	}
	c.index[cell] = len(c.entries)
	c.entries = append(c.entries, CellEntry{Cell: cell, Value: v, MappingID: mappingID})
}

func (c *OrderedCells) Get(cell string) (CellValue, bool) {
	i, ok := c.index[cell]
	if !ok {
		return CellValue{}, false
	}
	return c.entries[i].Value, true
}

func (c *OrderedCells) Len() int { return len(c.entries) }

func (c *OrderedCells) Entries() []CellEntry {
	out := make([]CellEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// ReportResult is what GenerateReport and PreviewReport hand back.
type ReportResult struct {
	RunID     uuid.UUID
	SheetName string
	Template  *TemplateFile
	Cells     *OrderedCells
	Content   []byte
	Verbatim  bool
}
