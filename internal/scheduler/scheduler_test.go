package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
)

type staticSource struct {
	rows []models.LoanSummary
	err  error
}

func (s staticSource) LoanSummaries(context.Context) ([]models.LoanSummary, error) {
	return s.rows, s.err
}

type recordingExporter struct {
	rows []models.LoanSummary
	err  error
}

func (e *recordingExporter) Export(_ context.Context, rows []models.LoanSummary) error {
	e.rows = rows
	return e.err
}

type managerInbox struct {
	messages []string
}

func (m *managerInbox) LoanCleared(context.Context, *models.Farmer, models.Loan) error { return nil }

func (m *managerInbox) NotifyManager(_ context.Context, msg string) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *managerInbox) SendOutbound(context.Context, models.OutboundMessageRequest) error { return nil }

func reportingConfig(t *testing.T) config.ReportingConfig {
	return config.ReportingConfig{CronSchedule: "0 20 * * 0", Timezone: "UTC", OutputDir: filepath.Join(t.TempDir(), "reports")}
}

var rows = []models.LoanSummary{{OwnerID: "owner", FarmerID: 1, FarmerName: "Asha", TotalLoan: decimal.NewFromInt(100), TotalLoanRemaining: decimal.NewFromInt(100), OpenLoans: 1}}

func TestRunWeeklySummary(t *testing.T) {
	cfg := reportingConfig(t)
	exporter := &recordingExporter{}
	inbox := &managerInbox{}

	s, err := NewScheduler(cfg, staticSource{rows: rows}, exporter, inbox, zaptest.NewLogger(t))
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 3, 16, 20, 0, 0, 0, time.UTC) }

	require.NoError(t, s.RunWeeklySummary(context.Background()))

	assert.Equal(t, rows, exporter.rows)
	require.Len(t, inbox.messages, 1)
	assert.Contains(t, inbox.messages[0], "1 farmers, 1 open loans")

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "loan-summary-2025-03-16.xlsx"))
	assert.NoError(t, err)
}

func TestRunWeeklySummary_ExportFailureStillNotifies(t *testing.T) {
	inbox := &managerInbox{}
	s, err := NewScheduler(reportingConfig(t), staticSource{rows: rows}, &recordingExporter{err: errors.New("sheet down")}, inbox, nil)
	require.NoError(t, err)

	err = s.RunWeeklySummary(context.Background())
	assert.ErrorContains(t, err, "sheet down")
	assert.Len(t, inbox.messages, 1)
}

func TestRunWeeklySummary_SourceFailure(t *testing.T) {
	inbox := &managerInbox{}
	s, err := NewScheduler(reportingConfig(t), staticSource{err: errors.New("db down")}, nil, inbox, nil)
	require.NoError(t, err)

	assert.ErrorContains(t, s.RunWeeklySummary(context.Background()), "db down")
	assert.Empty(t, inbox.messages)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := reportingConfig(t)
	cfg.CronSchedule = "every sunday"
	s, err := NewScheduler(cfg, staticSource{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())

	cfg.Timezone = "Mars/Olympus"
	_, err = NewScheduler(cfg, staticSource{}, nil, nil, nil)
	assert.Error(t, err)
}
