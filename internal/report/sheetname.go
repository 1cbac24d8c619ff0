package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// uploadPrefix matches the "20240115_093000_ab12cd34_" prefix added at upload time.
var uploadPrefix = regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-fA-F]+_`)

// StripExtension removes a trailing .xlsx or .xls, ignoring case.
func StripExtension(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".xlsx", ".xls"} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// Normalize turns a stored file name into its logical sheet name. It never
// returns an empty string for a name that only consists of the upload prefix.
func Normalize(raw string) string {
	base := StripExtension(raw)
	stripped := uploadPrefix.ReplaceAllString(base, "")
	if stripped == "" {
		return base
	}
	return stripped
}

// IsSpreadsheetName reports whether name carries a spreadsheet extension.
func IsSpreadsheetName(name string) bool {
	return StripExtension(name) != name
}

// DownloadFileName builds "<sheet>_<YYYYMMDD>_to_<YYYYMMDD>.xlsx".
func DownloadFileName(sheet string, start, end time.Time) string {
	return downloadName(sheet, start, end, ".xlsx")
}

func downloadName(sheet string, start, end time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_to_%s%s", Normalize(sheet), start.Format("20060102"), end.Format("20060102"), ext)
}

// FileName is the download name for the result. A legacy template returned
// unchanged keeps its .xls extension.
func (r *ReportResult) FileName(sheet string, start, end time.Time) string {
	if r.Verbatim && detectFormat(r.Content) == formatXLS {
		return downloadName(sheet, start, end, ".xls")
	}
	return DownloadFileName(sheet, start, end)
}
