package report

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"sort"
	"time"
)

type fakeUploads struct {
	files   []TemplateFile
	listErr error
}

func (f *fakeUploads) FindByExactFileName(ctx context.Context, name string) (TemplateFile, error) {
	for _, tf := range f.files {
		if tf.StoredFileName == name {
			return tf, nil
		}
	}
	return TemplateFile{}, ErrTemplateNotFound
}

func (f *fakeUploads) ListAllUploads(ctx context.Context) ([]TemplateFile, error) {
	return f.files, f.listErr
}

// fakeStore keeps template bytes in memory keyed by path.
type fakeStore struct {
	files     map[string][]byte
	existsErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (s *fakeStore) Exists(ctx context.Context, p string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.files[p]
	return ok, nil
}

func (s *fakeStore) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	data, ok := s.files[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return fakeInfo{name: path.Base(p), size: int64(len(data))}, nil
}

func (s *fakeStore) Read(ctx context.Context, p string) ([]byte, error) {
	data, ok := s.files[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (s *fakeStore) List(ctx context.Context) ([]string, error) {
	var out []string
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

type fakeInfo struct {
	name string
	size int64
}

func (i fakeInfo) Name() string       { return i.name }
func (i fakeInfo) Size() int64        { return i.size }
func (i fakeInfo) Mode() fs.FileMode  { return 0o644 }
func (i fakeInfo) ModTime() time.Time { return time.Time{} }
func (i fakeInfo) IsDir() bool        { return false }
func (i fakeInfo) Sys() interface{}   { return nil }

type fakeMappings struct {
	bySheet  map[string][]MappingRecord
	sheetErr map[string]error
	allErr   error
	queried  []string
}

func (f *fakeMappings) ListMappingsForSheet(ctx context.Context, sheetName string) ([]MappingRecord, error) {
	f.queried = append(f.queried, sheetName)
	if err := f.sheetErr[sheetName]; err != nil {
		return nil, err
	}
	return f.bySheet[sheetName], nil
}

func (f *fakeMappings) ListAllMappings(ctx context.Context) ([]MappingRecord, error) {
	if f.allErr != nil {
		return nil, f.allErr
	}
	var names []string
	for n := range f.bySheet {
		names = append(names, n)
	}
	sort.Strings(names)
	var out []MappingRecord
	for _, n := range names {
		out = append(out, f.bySheet[n]...)
	}
	return out, nil
}

func (f *fakeMappings) ListDistinctSheetNames(ctx context.Context) ([]string, error) {
	var names []string
	for n := range f.bySheet {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeMappings) SheetNameByID(ctx context.Context, sheetID int64) (string, error) {
	return "", errors.New("not supported")
}
