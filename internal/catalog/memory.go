package catalog

import (
	"SheetReports/internal/report"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Sheet is one logical sheet and its cell mappings as written in a catalog file.
type Sheet struct {
	ID       int64                  `yaml:"id"`
	Name     string                 `yaml:"name"`
	Mappings []report.MappingRecord `yaml:"mappings"`
}

// Document is the on-disk layout of a YAML catalog.
type Document struct {
	Sheets  []Sheet               `yaml:"sheets"`
	Uploads []report.TemplateFile `yaml:"uploads"`
}

// Memory is an in-process mapping and upload catalog, loaded from YAML for
// local runs and populated directly in tests.
type Memory struct {
	mu      sync.RWMutex
	sheets  map[int64]Sheet
	uploads []report.TemplateFile
}

func NewMemory() *Memory {
	return &Memory{sheets: make(map[int64]Sheet)}
}

// LoadYAML reads a catalog document from path.
func LoadYAML(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseYAML(data)
}

func ParseYAML(data []byte) (*Memory, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	m := NewMemory()
	for i, s := range doc.Sheets {
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("sheet #%d has no name", i+1)
		}
		if s.ID == 0 {
			s.ID = int64(i + 1)
		}
		if _, dup := m.sheets[s.ID]; dup {
			return nil, fmt.Errorf("duplicate sheet id %d", s.ID)
		}
		m.AddSheet(s)
	}
	for _, up := range doc.Uploads {
		m.AddUpload(up)
	}
	return m, nil
}

// AddSheet registers or replaces a sheet. Mapping records inherit the sheet
// name and are kept in target cell order.
func (m *Memory) AddSheet(s Sheet) {
	records := make([]report.MappingRecord, len(s.Mappings))
	copy(records, s.Mappings)
	for i := range records {
		records[i].SheetName = s.Name
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TargetCell < records[j].TargetCell
	})
	s.Mappings = records

	m.mu.Lock()
	m.sheets[s.ID] = s
	m.mu.Unlock()
}

func (m *Memory) AddUpload(tf report.TemplateFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tf.ID == 0 {
		tf.ID = int64(len(m.uploads) + 1)
	}
	m.uploads = append(m.uploads, tf)
}

func (m *Memory) ListMappingsForSheet(ctx context.Context, sheetName string) ([]report.MappingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []report.MappingRecord
	for _, s := range m.sortedSheets() {
		if s.Name == sheetName {
			out = append(out, s.Mappings...)
		}
	}
	return out, nil
}

func (m *Memory) ListMappingsForSheets(ctx context.Context, sheetNames []string) ([]report.MappingRecord, error) {
	want := make(map[string]bool, len(sheetNames))
	for _, n := range sheetNames {
		want[n] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []report.MappingRecord
	for _, s := range m.sortedSheets() {
		if want[s.Name] {
			out = append(out, s.Mappings...)
		}
	}
	return out, nil
}

func (m *Memory) ListAllMappings(ctx context.Context) ([]report.MappingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []report.MappingRecord
	for _, s := range m.sortedSheets() {
		out = append(out, s.Mappings...)
	}
	return out, nil
}

func (m *Memory) ListDistinctSheetNames(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for _, s := range m.sortedSheets() {
		if len(names) == 0 || names[len(names)-1] != s.Name {
			names = append(names, s.Name)
		}
	}
	return names, nil
}

func (m *Memory) SheetNameByID(ctx context.Context, sheetID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sheets[sheetID]
	if !ok {
		return "", fmt.Errorf("%w: id %d", report.ErrSheetNotFound, sheetID)
	}
	return s.Name, nil
}

// FindByExactFileName returns the most recent upload stored under name.
func (m *Memory) FindByExactFileName(ctx context.Context, name string) (report.TemplateFile, error) {
	for _, up := range m.uploadsByDate() {
		if up.StoredFileName == name {
			return up, nil
		}
	}
	return report.TemplateFile{}, report.ErrTemplateNotFound
}

// ListAllUploads returns uploads newest first.
func (m *Memory) ListAllUploads(ctx context.Context) ([]report.TemplateFile, error) {
	return m.uploadsByDate(), nil
}

// sortedSheets orders by name then id; callers hold the read lock.
func (m *Memory) sortedSheets() []Sheet {
	out := make([]Sheet, 0, len(m.sheets))
	for _, s := range m.sheets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) uploadsByDate() []report.TemplateFile {
	m.mu.RLock()
	out := make([]report.TemplateFile, len(m.uploads))
	copy(out, m.uploads)
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out
}
