package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/render/xlsx"
	"github.com/mamadbah2/dairy/internal/service/notify"
	"github.com/mamadbah2/dairy/internal/service/reporting"
)

// SummarySource produces the loan summary rows.
type SummarySource interface {
	LoanSummaries(ctx context.Context) ([]models.LoanSummary, error)
}

// SummaryExporter pushes the rows to an external spreadsheet.
type SummaryExporter interface {
	Export(ctx context.Context, rows []models.LoanSummary) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	source   SummarySource
	exporter SummaryExporter
	notifier notify.Notifier
	cfg      config.ReportingConfig
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. The exporter may be nil
// when no spreadsheet is configured.
func NewScheduler(cfg config.ReportingConfig, source SummarySource, exporter SummaryExporter, notifier notify.Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		source:   source,
		exporter: exporter,
		notifier: notifier,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Start registers the weekly loan summary and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule), zap.String("timezone", s.loc.String()))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.weeklySummary); err != nil {
		return fmt.Errorf("schedule weekly loan summary: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) weeklySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.RunWeeklySummary(ctx); err != nil {
		s.logger.Error("weekly loan summary failed", zap.Error(err))
		return
	}
	s.logger.Info("weekly loan summary completed")
}

// RunWeeklySummary builds the loan summary, writes it as a workbook, pushes it
// to the spreadsheet and messages the manager. Every step runs; their errors
// are joined.
func (s *Scheduler) RunWeeklySummary(ctx context.Context) error {
	rows, err := s.source.LoanSummaries(ctx)
	if err != nil {
		return err
	}

	var errs []error
	if path, err := s.writeWorkbook(rows); err != nil {
		errs = append(errs, err)
	} else {
		s.logger.Info("loan summary workbook written", zap.String("path", path))
	}

	if s.exporter != nil {
		if err := s.exporter.Export(ctx, rows); err != nil {
			errs = append(errs, fmt.Errorf("export loan summary: %w", err))
		}
	}

	if err := s.notifier.NotifyManager(ctx, reporting.SummaryMessage(rows, s.now().In(s.loc))); err != nil {
		errs = append(errs, fmt.Errorf("notify manager: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Scheduler) writeWorkbook(rows []models.LoanSummary) (string, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("loan-summary-%s.xlsx", s.now().In(s.loc).Format("2006-01-02")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := xlsx.LoanSummaries(f, rows); err != nil {
		return "", err
	}
	return path, nil
}
