package jobs

import (
	"SheetReports/internal/logger"
	"SheetReports/internal/serviceiface"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type CronService struct {
	config  map[string]interface{}
	auditor *TemplateAuditor
	cron    *cron.Cron
}

func NewCronService(cfg map[string]interface{}, auditor *TemplateAuditor) serviceiface.Service {
	return &CronService{
		config:  cfg,
		auditor: auditor,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	auditConfig := NewDefaultAuditConfig()

	// Override from services.yaml if provided
	if s.config != nil {
		if schedule, ok := s.config["audit_schedule"].(string); ok && schedule != "" {
			auditConfig.Schedule = schedule
		}
		if tz, ok := s.config["timezone"].(string); ok && tz != "" {
			auditConfig.TimeZone = tz
		}
		if secs, ok := s.config["audit_timeout_seconds"].(int); ok && secs > 0 {
			auditConfig.Timeout = time.Duration(secs) * time.Second
		}
	}

	c, err := RunTemplateAudit(auditConfig, s.auditor)
	if err != nil {
		return fmt.Errorf("failed to start template audit: %v", err)
	}
	s.cron = c

	logger.Audit("Cron service started with template audit")
	log.Println("Cron service started, template audit scheduled:", auditConfig.Schedule)
	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	log.Println("Cron service stopped.")
	return nil
}

// RunTemplateAudit schedules the auditor and starts the cron runner.
func RunTemplateAudit(cfg *AuditConfig, auditor *TemplateAuditor) (*cron.Cron, error) {
	defaults := NewDefaultAuditConfig()
	if cfg.Schedule == "" {
		cfg.Schedule = defaults.Schedule
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = defaults.TimeZone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if _, err := auditor.Run(ctx); err != nil {
			logger.Audit(fmt.Sprintf("Template audit failed: %v", err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule template audit: %v", err)
	}

	c.Start()
	return c, nil
}
