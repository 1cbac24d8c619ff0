package report

import (
	"SheetReports/internal/checksum"
	"SheetReports/internal/logger"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type runState string

const (
	stateResolving         runState = "Resolving"
	stateMappingLookup     runState = "MappingLookup"
	stateNoMappings        runState = "NoMappings"
	stateEvaluating        runState = "Evaluating"
	stateWriting           runState = "Writing"
	stateDone              runState = "Done"
	stateAbortedNoTemplate runState = "AbortedNoTemplate"
)

type Options struct {
	// Workers bounds concurrent mapping evaluations. Zero means GOMAXPROCS.
	Workers int
}

// Engine turns a sheet name and a reporting period into a filled workbook.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	mappings MappingCatalog
	uploads  UploadCatalog
	store    TemplateStore

	locator  *TemplateLocator
	resolver *MappingResolver
	executor *QueryExecutor
	writer   *SpreadsheetWriter

	workers int
	log     *logger.Logger
}

func New(mappings MappingCatalog, uploads UploadCatalog, store TemplateStore, data DataStore, opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		mappings: mappings,
		uploads:  uploads,
		store:    store,
		locator:  NewTemplateLocator(uploads, store),
		resolver: NewMappingResolver(mappings),
		executor: NewQueryExecutor(data),
		writer:   NewSpreadsheetWriter(),
		workers:  workers,
		log:      logger.New("engine"),
	}
}

func (e *Engine) enter(run uuid.UUID, s runState, format string, args ...interface{}) {
	e.log.With("run", run).With("state", s).Infof(format, args...)
}

// GenerateReport locates the template for sheetName, evaluates its mappings
// for [start, end] and writes the values into a copy of the template. A sheet
// without mappings yields the template bytes unchanged.
func (e *Engine) GenerateReport(ctx context.Context, sheetName string, start, end time.Time) (*ReportResult, error) {
	run := uuid.New()
	e.enter(run, stateResolving, "sheet=%q period=%s..%s", sheetName, start.Format(sqlDateLayout), end.Format(sqlDateLayout))

	tf, err := e.locate(ctx, sheetName)
	if err != nil {
		e.enter(run, stateAbortedNoTemplate, "%v", err)
		return nil, err
	}
	content, err := e.store.Read(ctx, tf.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateUnreadable, tf.FilePath, err)
	}

	mappingSheet := Normalize(tf.StoredFileName)
	e.enter(run, stateMappingLookup, "template=%q mappings for %q", tf.StoredFileName, mappingSheet)
	mappings, err := e.resolver.Resolve(ctx, mappingSheet)
	if err != nil {
		return nil, err
	}

	result := &ReportResult{RunID: run, SheetName: mappingSheet, Template: &tf}
	if len(mappings) == 0 {
		e.enter(run, stateNoMappings, "returning template unchanged (%d bytes)", len(content))
		result.Cells = NewOrderedCells(0)
		result.Content = content
		result.Verbatim = true
		e.enter(run, stateDone, "verbatim")
		return result, nil
	}

	e.enter(run, stateEvaluating, "%d mappings with %d workers", len(mappings), e.workers)
	cells, err := e.evaluate(ctx, mappings, start, end)
	if err != nil {
		return nil, err
	}

	e.enter(run, stateWriting, "%d cells", cells.Len())
	out, err := e.writer.Write(content, cells)
	if err != nil {
		return nil, err
	}
	result.Cells = cells
	result.Content = out
	e.enter(run, stateDone, "%d bytes", len(out))
	return result, nil
}

// PreviewReport evaluates the mappings of sheetName without touching any
// template.
func (e *Engine) PreviewReport(ctx context.Context, sheetName string, start, end time.Time) (*ReportResult, error) {
	run := uuid.New()
	normalized := Normalize(sheetName)
	e.enter(run, stateMappingLookup, "preview sheet=%q normalized=%q", sheetName, normalized)

	mappings, err := e.resolver.Resolve(ctx, normalized)
	if err != nil {
		return nil, err
	}
	result := &ReportResult{RunID: run, SheetName: normalized}
	if len(mappings) == 0 {
		e.enter(run, stateNoMappings, "nothing to preview")
		result.Cells = NewOrderedCells(0)
		return result, nil
	}

	e.enter(run, stateEvaluating, "%d mappings with %d workers", len(mappings), e.workers)
	cells, err := e.evaluate(ctx, mappings, start, end)
	if err != nil {
		return nil, err
	}
	result.Cells = cells
	e.enter(run, stateDone, "%d cells", cells.Len())
	return result, nil
}

// evaluate runs every actionable mapping on a bounded pool. Values are
// collected by index so the result keeps mapping order.
func (e *Engine) evaluate(ctx context.Context, mappings []MappingRecord, start, end time.Time) (*OrderedCells, error) {
	values := make([]CellValue, len(mappings))
	skip := make([]bool, len(mappings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, m := range mappings {
		if strings.TrimSpace(m.TargetCell) == "" {
			e.log.Warnf("mapping %d (%s) has no target cell, skipping", m.MappingID, m.ElementLabel)
			skip[i] = true
			continue
		}
		if strings.TrimSpace(m.SQLScript) == "" {
			values[i] = TextValue(NoSQLMarker)
			continue
		}
		i, m := i, m
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			query := Substitute(m.SQLScript, start, end)
			values[i] = e.executor.Execute(gctx, query, start, end)
			e.log.Debugf("cell %s <- %s", m.TargetCell, values[i])
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cells := NewOrderedCells(len(mappings))
	for i, m := range mappings {
		if skip[i] {
			continue
		}
		cells.Put(strings.TrimSpace(m.TargetCell), values[i], m.MappingID)
	}
	return cells, nil
}

// locate tries the name as given, then its normalized form.
func (e *Engine) locate(ctx context.Context, name string) (TemplateFile, error) {
	tf, err := e.locator.Locate(ctx, name)
	if err == nil {
		return tf, nil
	}
	normalized := Normalize(name)
	if errors.Is(err, ErrTemplateNotFound) && normalized != name {
		return e.locator.Locate(ctx, normalized)
	}
	return TemplateFile{}, err
}

// ListSheetNames returns the mapped sheet names, falling back to the names of
// uploaded spreadsheets when nothing is mapped yet.
func (e *Engine) ListSheetNames(ctx context.Context) ([]string, error) {
	names, err := e.mappings.ListDistinctSheetNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheet names: %w", err)
	}
	if len(names) > 0 {
		return names, nil
	}

	uploads, err := e.uploads.ListAllUploads(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	seen := make(map[string]bool)
	for _, up := range uploads {
		if IsSpreadsheetName(up.StoredFileName) && !seen[up.StoredFileName] {
			seen[up.StoredFileName] = true
			names = append(names, up.StoredFileName)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListTemplates reports every upload along with what storage knows about it.
func (e *Engine) ListTemplates(ctx context.Context) ([]TemplateDetails, error) {
	uploads, err := e.uploads.ListAllUploads(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	out := make([]TemplateDetails, 0, len(uploads))
	for _, up := range uploads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e.details(ctx, up))
	}
	return out, nil
}

// TemplateInfo looks an upload up by its exact stored name.
func (e *Engine) TemplateInfo(ctx context.Context, fileName string) (TemplateDetails, error) {
	up, err := e.uploads.FindByExactFileName(ctx, fileName)
	if err != nil {
		return TemplateDetails{}, err
	}
	return e.details(ctx, up), nil
}

func (e *Engine) details(ctx context.Context, up TemplateFile) TemplateDetails {
	d := TemplateDetails{TemplateFile: up, SheetName: Normalize(up.StoredFileName)}
	if up.FilePath == "" {
		return d
	}
	exists, err := e.store.Exists(ctx, up.FilePath)
	if err != nil {
		e.log.Warnf("checking %s failed: %v", up.FilePath, err)
		return d
	}
	if !exists {
		return d
	}
	d.FileExists = true
	if info, err := e.store.Stat(ctx, up.FilePath); err == nil {
		d.FileSize = info.Size()
	}
	if data, err := e.store.Read(ctx, up.FilePath); err == nil {
		d.Checksum = checksum.Sum(data)
	} else {
		e.log.Warnf("reading %s for checksum failed: %v", up.FilePath, err)
	}
	return d
}

func (e *Engine) MappingsForSheet(ctx context.Context, sheetName string) ([]MappingRecord, error) {
	return e.resolver.Resolve(ctx, sheetName)
}

// MappingsForSheets returns the exact-name mappings of several sheets, grouped
// by sheet name.
func (e *Engine) MappingsForSheets(ctx context.Context, sheetNames []string) (map[string][]MappingRecord, error) {
	out := make(map[string][]MappingRecord, len(sheetNames))
	if batch, ok := e.mappings.(BatchMappingCatalog); ok {
		records, err := batch.ListMappingsForSheets(ctx, sheetNames)
		if err != nil {
			return nil, fmt.Errorf("list mappings: %w", err)
		}
		for _, m := range records {
			out[m.SheetName] = append(out[m.SheetName], m)
		}
		return out, nil
	}
	for _, name := range sheetNames {
		records, err := e.mappings.ListMappingsForSheet(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("list mappings for %q: %w", name, err)
		}
		if len(records) > 0 {
			out[name] = records
		}
	}
	return out, nil
}

func (e *Engine) MappingsForSheetID(ctx context.Context, sheetID int64) ([]MappingRecord, error) {
	name, err := e.mappings.SheetNameByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	return e.resolver.Resolve(ctx, name)
}

// TemplateForSheetID returns the raw template registered for a sheet id.
func (e *Engine) TemplateForSheetID(ctx context.Context, sheetID int64) (TemplateFile, []byte, error) {
	name, err := e.mappings.SheetNameByID(ctx, sheetID)
	if err != nil {
		return TemplateFile{}, nil, err
	}
	tf, err := e.locate(ctx, name)
	if err != nil {
		return TemplateFile{}, nil, err
	}
	data, err := e.store.Read(ctx, tf.FilePath)
	if err != nil {
		return TemplateFile{}, nil, fmt.Errorf("%w: %s: %v", ErrTemplateUnreadable, tf.FilePath, err)
	}
	return tf, data, nil
}
