package report

import (
	"SheetReports/internal/logger"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var aggregateMarkers = []string{"SUM(", "AVG(", "COUNT(", "MAX(", "MIN("}

var numericColumnTypes = map[string]bool{
	"NUMERIC": true,
	"DECIMAL": true,
	"MONEY":   true,
}

// QueryExecutor evaluates one mapping statement into a CellValue. Every
// failure is returned in-band as an error value.
type QueryExecutor struct {
	store DataStore
	log   *logger.Logger
}

func NewQueryExecutor(store DataStore) *QueryExecutor {
	return &QueryExecutor{store: store, log: logger.New("executor")}
}

// IsAggregate reports whether the statement uses one of the recognized aggregates.
func IsAggregate(query string) bool {
	upper := strings.ToUpper(query)
	for _, m := range aggregateMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// IsReadOnly accepts statements that start with SELECT, WITH, VALUES or a
// parenthesis once leading whitespace and comments are skipped.
func IsReadOnly(query string) bool {
	q := skipLeadingComments(query)
	if strings.HasPrefix(q, "(") {
		return true
	}
	end := strings.IndexFunc(q, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		end = len(q)
	}
	switch strings.ToUpper(q[:end]) {
	case "SELECT", "WITH", "VALUES":
		return true
	}
	return false
}

func skipLeadingComments(q string) string {
	for {
		q = strings.TrimSpace(q)
		switch {
		case strings.HasPrefix(q, "--"):
			nl := strings.IndexByte(q, '\n')
			if nl < 0 {
				return ""
			}
			q = q[nl+1:]
		case strings.HasPrefix(q, "/*"):
			end := strings.Index(q, "*/")
			if end < 0 {
				return ""
			}
			q = q[end+2:]
		default:
			return q
		}
	}
}

func (e *QueryExecutor) Execute(ctx context.Context, query string, start, end time.Time) CellValue {
	if strings.TrimSpace(query) == "" {
		return NullValue()
	}
	if !IsReadOnly(query) {
		e.log.Warnf("rejected non-query statement: %s", preview(query))
		return ErrorValue(ErrNotReadOnly.Error())
	}

	var args []interface{}
	if strings.Contains(query, "?") {
		args = []interface{}{start.Format(sqlDateLayout), end.Format(sqlDateLayout)}
	}
	aggregate := IsAggregate(query)

	value, dbType, err := e.store.QueryScalar(ctx, query, args...)
	if err != nil {
		return e.failure(query, err, aggregate)
	}

	if aggregate {
		d, err := toDecimal(value)
		if err != nil {
			e.log.Errorf("aggregate result not numeric for %s: %v", preview(query), err)
			return ErrorValue(err.Error())
		}
		return NumberValue(d)
	}
	return scalarValue(value, dbType)
}

func (e *QueryExecutor) failure(query string, err error, aggregate bool) CellValue {
	var bad *BadSQLError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		e.log.Warnf("no results returned for SQL: %s", preview(query))
		if aggregate {
			return NumberValue(decimal.Zero)
		}
		return NullValue()
	case errors.As(err, &bad):
		e.log.Errorf("bad SQL grammar: %s: %s", preview(query), bad.Cause)
		return ErrorValue("Bad SQL - " + bad.Cause)
	default:
		e.log.Errorf("SQL execution failed: %s: %v", preview(query), err)
		return ErrorValue(err.Error())
	}
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return t, nil
	case int64:
		return decimal.NewFromInt(t), nil
	case int32:
		return decimal.NewFromInt32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case []byte:
		return parseDecimal(string(t))
	case string:
		return parseDecimal(t)
	}
	return decimal.Zero, fmt.Errorf("cannot convert %T to a decimal", v)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot convert %q to a decimal", s)
	}
	return d, nil
}

func scalarValue(v interface{}, dbType string) CellValue {
	switch t := v.(type) {
	case nil:
		return NullValue()
	case decimal.Decimal:
		return NumberValue(t)
	case int64:
		return NumberValue(decimal.NewFromInt(t))
	case int32:
		return NumberValue(decimal.NewFromInt32(t))
	case int:
		return NumberValue(decimal.NewFromInt(int64(t)))
	case float64:
		return NumberValue(decimal.NewFromFloat(t))
	case float32:
		return NumberValue(decimal.NewFromFloat32(t))
	case bool:
		return BoolValue(t)
	case time.Time:
		return TimeValue(t)
	case []byte:
		return textOrNumber(string(t), dbType)
	case string:
		return textOrNumber(t, dbType)
	}
	return TextValue(fmt.Sprintf("%v", v))
}

func textOrNumber(s, dbType string) CellValue {
	if numericColumnTypes[strings.ToUpper(baseType(dbType))] {
		if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
			return NumberValue(d)
		}
	}
	return TextValue(s)
}

// baseType drops a precision suffix such as NUMERIC(12,2).
func baseType(t string) string {
	if i := strings.IndexByte(t, '('); i >= 0 {
		return strings.TrimSpace(t[:i])
	}
	return strings.TrimSpace(t)
}

func preview(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > 100 {
		return q[:100] + "..."
	}
	return q
}
