package catalog

import (
	"SheetReports/internal/report"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const mappingColumns = `
	SELECT
		COALESCE(e.exel_cell_value, ''),
		COALESCE(e.excel_element, ''),
		COALESCE(c.coa_name, ''),
		COALESCE(c.coa_code, ''),
		COALESCE(c.sql_script, ''),
		m.mapping_id,
		s.excell_sheet_name
	FROM excel_elements e
	JOIN mapped_cell_info m ON e.element_id = m.element_id
	JOIN coa c ON m.coa_id = c.coa_id
	JOIN excel_sheets s ON e.sheet_id = s.sheet_id`

const (
	qMappingsForSheet  = mappingColumns + ` WHERE s.excell_sheet_name = $1 ORDER BY e.exel_cell_value`
	qMappingsForSheets = mappingColumns + ` WHERE s.excell_sheet_name = ANY($1) ORDER BY s.excell_sheet_name, e.exel_cell_value`
	qAllMappings       = mappingColumns + ` ORDER BY s.excell_sheet_name, e.exel_cell_value`
	qDistinctSheets    = `SELECT DISTINCT excell_sheet_name FROM excel_sheets ORDER BY excell_sheet_name`
	qSheetNameByID     = `SELECT excell_sheet_name FROM excel_sheets WHERE sheet_id = $1`

	uploadColumns = `SELECT id, file_name, file_path, download_date, is_workbook FROM excel_downloads`
	qUploadByName = uploadColumns + ` WHERE file_name = $1 ORDER BY download_date DESC LIMIT 1`
	qAllUploads   = uploadColumns + ` ORDER BY download_date DESC`
)

// Postgres reads mappings and upload records from the shared schema.
type Postgres struct {
	db Querier
}

func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) ListMappingsForSheet(ctx context.Context, sheetName string) ([]report.MappingRecord, error) {
	return p.queryMappings(ctx, qMappingsForSheet, sheetName)
}

// ListMappingsForSheets fetches the mappings of several sheets in one round trip.
func (p *Postgres) ListMappingsForSheets(ctx context.Context, sheetNames []string) ([]report.MappingRecord, error) {
	if len(sheetNames) == 0 {
		return nil, nil
	}
	return p.queryMappings(ctx, qMappingsForSheets, pq.Array(sheetNames))
}

func (p *Postgres) ListAllMappings(ctx context.Context) ([]report.MappingRecord, error) {
	return p.queryMappings(ctx, qAllMappings)
}

func (p *Postgres) queryMappings(ctx context.Context, query string, args ...interface{}) ([]report.MappingRecord, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	var out []report.MappingRecord
	for rows.Next() {
		var m report.MappingRecord
		if err := rows.Scan(&m.TargetCell, &m.ElementLabel, &m.AccountName, &m.AccountCode, &m.SQLScript, &m.MappingID, &m.SheetName); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) ListDistinctSheetNames(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, qDistinctSheets)
	if err != nil {
		return nil, fmt.Errorf("query sheet names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (p *Postgres) SheetNameByID(ctx context.Context, sheetID int64) (string, error) {
	var name string
	err := p.db.QueryRow(ctx, qSheetNameByID, sheetID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: id %d", report.ErrSheetNotFound, sheetID)
	}
	if err != nil {
		return "", fmt.Errorf("query sheet %d: %w", sheetID, err)
	}
	return name, nil
}

func (p *Postgres) FindByExactFileName(ctx context.Context, name string) (report.TemplateFile, error) {
	tf, err := scanUpload(p.db.QueryRow(ctx, qUploadByName, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return report.TemplateFile{}, report.ErrTemplateNotFound
	}
	if err != nil {
		return report.TemplateFile{}, fmt.Errorf("query upload %q: %w", name, err)
	}
	return tf, nil
}

func (p *Postgres) ListAllUploads(ctx context.Context) ([]report.TemplateFile, error) {
	rows, err := p.db.Query(ctx, qAllUploads)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var out []report.TemplateFile
	for rows.Next() {
		tf, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tf)
	}
	return out, rows.Err()
}

func scanUpload(row pgx.Row) (report.TemplateFile, error) {
	var (
		tf         report.TemplateFile
		uploadedAt *time.Time
		isWorkbook *bool
	)
	if err := row.Scan(&tf.ID, &tf.StoredFileName, &tf.FilePath, &uploadedAt, &isWorkbook); err != nil {
		return report.TemplateFile{}, err
	}
	if uploadedAt != nil {
		tf.UploadedAt = *uploadedAt
	}
	if isWorkbook != nil {
		tf.IsMultiSheet = *isWorkbook
	}
	return tf, nil
}
