package catalog

import (
	"SheetReports/internal/report"
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows serves fixed rows; a nil value scans as SQL NULL.
type fakeRows struct {
	data [][]interface{}
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]interface{}, error) {
	return r.data[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	return scanInto(r.data[r.pos-1], dest)
}

func scanInto(row []interface{}, dest []interface{}) error {
	if len(row) != len(dest) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		rv := reflect.ValueOf(row[i])
		if dv.Kind() == reflect.Ptr && rv.Type() != dv.Type() {
			p := reflect.New(rv.Type())
			p.Elem().Set(rv)
			dv.Set(p)
			continue
		}
		dv.Set(rv)
	}
	return nil
}

type fakeRow struct {
	data []interface{}
	err  error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.data, dest)
}

type call struct {
	sql  string
	args []interface{}
}

type fakeQuerier struct {
	rows     [][]interface{}
	row      fakeRow
	queryErr error
	calls    []call
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	q.calls = append(q.calls, call{sql: sql, args: args})
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return &fakeRows{data: q.rows}, nil
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	q.calls = append(q.calls, call{sql: sql, args: args})
	return q.row
}

func TestPostgres_ListAllUploadsNullableColumns(t *testing.T) {
	uploaded := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	q := &fakeQuerier{rows: [][]interface{}{
		{int64(2), "20240115_093000_ab12cd34_BalanceSheet.xlsx", "/uploads/a.xlsx", uploaded, true},
		{int64(1), "Legacy.xls", "/uploads/Legacy.xls", nil, nil},
	}}

	got, err := NewPostgres(q).ListAllUploads(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uploaded, got[0].UploadedAt)
	assert.True(t, got[0].IsMultiSheet)
	assert.Equal(t, "Legacy.xls", got[1].StoredFileName)
	assert.True(t, got[1].UploadedAt.IsZero())
	assert.False(t, got[1].IsMultiSheet)
	assert.Equal(t, qAllUploads, q.calls[0].sql)
}

func TestPostgres_FindByExactFileName(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{data: []interface{}{int64(9), "Ratios.xlsx", "/uploads/Ratios.xlsx", nil, false}}}
	tf, err := NewPostgres(q).FindByExactFileName(context.Background(), "Ratios.xlsx")
	require.NoError(t, err)
	assert.Equal(t, int64(9), tf.ID)
	assert.Equal(t, []interface{}{"Ratios.xlsx"}, q.calls[0].args)

	q = &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	_, err = NewPostgres(q).FindByExactFileName(context.Background(), "Missing.xlsx")
	assert.ErrorIs(t, err, report.ErrTemplateNotFound)

	q = &fakeQuerier{row: fakeRow{err: errors.New("conn closed")}}
	_, err = NewPostgres(q).FindByExactFileName(context.Background(), "Ratios.xlsx")
	require.Error(t, err)
	assert.NotErrorIs(t, err, report.ErrTemplateNotFound)
}

func TestPostgres_SheetNameByID(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{data: []interface{}{"BalanceSheet"}}}
	name, err := NewPostgres(q).SheetNameByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "BalanceSheet", name)

	q = &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	_, err = NewPostgres(q).SheetNameByID(context.Background(), 99)
	assert.ErrorIs(t, err, report.ErrSheetNotFound)
}

func TestPostgres_Mappings(t *testing.T) {
	q := &fakeQuerier{rows: [][]interface{}{
		{"B2", "Cash", "Cash at bank", "1001", "SELECT 1", int64(11), "BalanceSheet"},
		{"B3", "", "", "", "", int64(12), "Income"},
	}}
	cat := NewPostgres(q)

	got, err := cat.ListMappingsForSheets(context.Background(), []string{"BalanceSheet", "Income"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, report.MappingRecord{
		TargetCell: "B2", ElementLabel: "Cash", AccountName: "Cash at bank", AccountCode: "1001",
		SQLScript: "SELECT 1", MappingID: 11, SheetName: "BalanceSheet",
	}, got[0])
	require.Len(t, q.calls, 1)
	assert.Equal(t, qMappingsForSheets, q.calls[0].sql)
	assert.Equal(t, []interface{}{pq.Array([]string{"BalanceSheet", "Income"})}, q.calls[0].args)

	none, err := cat.ListMappingsForSheets(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Len(t, q.calls, 1)

	q.queryErr = errors.New("timeout")
	_, err = cat.ListMappingsForSheet(context.Background(), "BalanceSheet")
	assert.ErrorContains(t, err, "query mappings")
}

func TestPostgres_ListDistinctSheetNames(t *testing.T) {
	q := &fakeQuerier{rows: [][]interface{}{{"BalanceSheet"}, {"Income"}}}
	got, err := NewPostgres(q).ListDistinctSheetNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BalanceSheet", "Income"}, got)
}
