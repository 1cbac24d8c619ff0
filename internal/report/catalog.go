package report

import (
	"context"
	"io/fs"
)

// MappingCatalog is the read side of the mapping management service.
type MappingCatalog interface {
	ListMappingsForSheet(ctx context.Context, sheetName string) ([]MappingRecord, error)
	ListAllMappings(ctx context.Context) ([]MappingRecord, error)
	ListDistinctSheetNames(ctx context.Context) ([]string, error)
	SheetNameByID(ctx context.Context, sheetID int64) (string, error)
}

// BatchMappingCatalog is implemented by catalogs that can fetch the mappings
// of several sheets at once.
type BatchMappingCatalog interface {
	ListMappingsForSheets(ctx context.Context, sheetNames []string) ([]MappingRecord, error)
}

// UploadCatalog is the read side of upload bookkeeping. FindByExactFileName
// returns ErrTemplateNotFound when nothing is recorded under name.
type UploadCatalog interface {
	FindByExactFileName(ctx context.Context, name string) (TemplateFile, error)
	ListAllUploads(ctx context.Context) ([]TemplateFile, error)
}

// TemplateStore is the durable storage behind TemplateFile.FilePath.
// List returns the paths of spreadsheet files under the upload root.
type TemplateStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Stat(ctx context.Context, path string) (fs.FileInfo, error)
	Read(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

// DataStore runs one read-only statement and returns the first column of
// the first row along with the column's database type name. No rows is
// reported as sql.ErrNoRows.
type DataStore interface {
	QueryScalar(ctx context.Context, query string, args ...interface{}) (value interface{}, dbType string, err error)
}
