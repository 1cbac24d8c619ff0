package jobs

import (
	"SheetReports/internal/checksum"
	"SheetReports/internal/config"
	"SheetReports/internal/logger"
	"SheetReports/internal/report"
	"context"
	"fmt"
	"sync"
	"time"
)

// AuditConfig controls the template audit job.
type AuditConfig struct {
	Schedule string
	TimeZone string
	Timeout  time.Duration
}

func NewDefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Schedule: config.DefaultAuditSchedule,
		TimeZone: config.DefaultTimeZone,
		Timeout:  5 * time.Minute,
	}
}

// AuditResult summarizes one pass over the upload catalog.
type AuditResult struct {
	Total   int
	Missing []string
	Changed []string
	Failed  []string
}

// TemplateAuditor checks every recorded upload against template storage and
// reports stale records and templates whose bytes changed since the previous
// pass. It never modifies the catalog.
type TemplateAuditor struct {
	uploads report.UploadCatalog
	store   report.TemplateStore
	log     *logger.Logger

	mu   sync.Mutex
	seen map[string]string
}

func NewTemplateAuditor(uploads report.UploadCatalog, store report.TemplateStore) *TemplateAuditor {
	return &TemplateAuditor{
		uploads: uploads,
		store:   store,
		log:     logger.New("audit"),
		seen:    make(map[string]string),
	}
}

func (a *TemplateAuditor) Run(ctx context.Context) (AuditResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	uploads, err := a.uploads.ListAllUploads(ctx)
	if err != nil {
		return AuditResult{}, fmt.Errorf("list uploads: %w", err)
	}

	res := AuditResult{Total: len(uploads)}
	for _, up := range uploads {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ok, err := a.store.Exists(ctx, up.FilePath)
		if err != nil {
			res.Failed = append(res.Failed, up.StoredFileName)
			a.log.Warnf("checking %s failed: %v", up.FilePath, err)
			continue
		}
		if !ok {
			res.Missing = append(res.Missing, up.StoredFileName)
			logger.Audit(fmt.Sprintf("[TemplateAudit] stale upload record id=%d file=%s path=%s", up.ID, up.StoredFileName, up.FilePath))
			continue
		}

		data, err := a.store.Read(ctx, up.FilePath)
		if err != nil {
			res.Failed = append(res.Failed, up.StoredFileName)
			a.log.Warnf("reading %s failed: %v", up.FilePath, err)
			continue
		}
		if prev, ok := a.seen[up.FilePath]; ok {
			if same, _ := checksum.NewMatcher(prev).Match(data); !same {
				res.Changed = append(res.Changed, up.StoredFileName)
				logger.Audit(fmt.Sprintf("[TemplateAudit] template content changed id=%d file=%s", up.ID, up.StoredFileName))
			}
		}
		a.seen[up.FilePath] = checksum.Sum(data)
	}

	a.log.Infof("audited %d uploads: %d missing, %d changed, %d failed", res.Total, len(res.Missing), len(res.Changed), len(res.Failed))
	return res, nil
}
