package report

import (
	"strconv"
	"strings"
	"time"
)

const sqlDateLayout = "2006-01-02"

// Substitute inlines the reporting period into mapping SQL. Dates become
// quoted ISO literals and year placeholders the bare year of start.
// Unrecognized placeholders are left untouched.
func Substitute(sqlText string, start, end time.Time) string {
	if strings.TrimSpace(sqlText) == "" {
		return ""
	}
	s := "'" + start.Format(sqlDateLayout) + "'"
	e := "'" + end.Format(sqlDateLayout) + "'"
	y := strconv.Itoa(start.Year())

	r := strings.NewReplacer(
		"${startDate}", s,
		"${endDate}", e,
		":startDate", s,
		":endDate", e,
		":year", y,
		"@startDate", s,
		"@endDate", e,
		"@year", y,
	)
	return r.Replace(sqlText)
}
