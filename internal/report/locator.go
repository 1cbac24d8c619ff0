package report

import (
	"SheetReports/internal/logger"
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// TemplateLocator finds the physical template for a logical sheet name.
type TemplateLocator struct {
	uploads UploadCatalog
	store   TemplateStore
	log     *logger.Logger
}

func NewTemplateLocator(uploads UploadCatalog, store TemplateStore) *TemplateLocator {
	return &TemplateLocator{uploads: uploads, store: store, log: logger.New("locator")}
}

// Locate tries, in order: exact stored name, extension-stripped stored name,
// normalized name, then a scan of the storage root. Each candidate must exist
// on storage; stale catalog rows are logged and skipped.
func (l *TemplateLocator) Locate(ctx context.Context, name string) (TemplateFile, error) {
	normalized := Normalize(name)
	l.log.Infof("looking for template %q (normalized %q)", name, normalized)

	exact, err := l.uploads.FindByExactFileName(ctx, name)
	switch {
	case err == nil:
		if l.usable(ctx, exact, "exact") {
			return exact, nil
		}
	case errors.Is(err, ErrTemplateNotFound):
	default:
		l.log.Warnf("exact lookup for %q failed: %v", name, err)
	}
	if err := ctx.Err(); err != nil {
		return TemplateFile{}, err
	}

	all, err := l.uploads.ListAllUploads(ctx)
	if err != nil {
		l.log.Warnf("listing uploads failed, falling back to storage scan: %v", err)
	}

	for _, up := range all {
		stripped := StripExtension(up.StoredFileName)
		if strings.EqualFold(stripped, name) || strings.EqualFold(stripped, normalized) {
			if l.usable(ctx, up, "stripped") {
				return up, nil
			}
		}
	}

	for _, up := range all {
		if strings.EqualFold(Normalize(up.StoredFileName), normalized) {
			if l.usable(ctx, up, "normalized") {
				return up, nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return TemplateFile{}, err
	}

	paths, err := l.store.List(ctx)
	if err != nil {
		l.log.Errorf("scanning template storage failed: %v", err)
	}
	for _, p := range paths {
		base := baseName(p)
		if !strings.EqualFold(Normalize(base), normalized) {
			continue
		}
		tf := TemplateFile{StoredFileName: base, FilePath: p}
		if l.usable(ctx, tf, "scan") {
			return tf, nil
		}
	}

	l.log.Errorf("could not find template for %q", name)
	return TemplateFile{}, &TemplateNotFoundError{Name: name, Normalized: normalized}
}

func (l *TemplateLocator) usable(ctx context.Context, tf TemplateFile, tier string) bool {
	if tf.FilePath == "" {
		l.log.Warnf("%s match %q has no file path", tier, tf.StoredFileName)
		return false
	}
	ok, err := l.store.Exists(ctx, tf.FilePath)
	if err != nil {
		l.log.Warnf("%s match %q: checking %s failed: %v", tier, tf.StoredFileName, tf.FilePath, err)
		return false
	}
	if !ok {
		l.log.Warnf("%s match %q is recorded at %s but the file does not exist", tier, tf.StoredFileName, tf.FilePath)
		return false
	}
	l.log.Infof("%s match: %q at %s", tier, tf.StoredFileName, tf.FilePath)
	return true
}

// baseName handles both OS paths and slash-separated object keys.
func baseName(p string) string {
	if strings.Contains(p, "/") {
		return path.Base(p)
	}
	return filepath.Base(p)
}
