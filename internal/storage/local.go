package storage

import (
	"SheetReports/internal/report"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Local serves templates from a directory on disk. Relative paths recorded
// in the upload catalog are resolved against Root.
type Local struct {
	Root string
}

func NewLocal(root string) *Local {
	return &Local{Root: root}
}

func (l *Local) resolve(path string) string {
	if filepath.IsAbs(path) || l.Root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(l.Root, path)
}

// Exists reports whether path is a readable regular file.
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(l.resolve(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (l *Local) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	return os.Stat(l.resolve(path))
}

func (l *Local) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return data, nil
}

// List returns the spreadsheet files directly under Root, sorted by name.
func (l *Local) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.Root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.Root, err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && report.IsSpreadsheetName(e.Name()) {
			out = append(out, filepath.Join(l.Root, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
