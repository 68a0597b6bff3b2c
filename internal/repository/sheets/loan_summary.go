package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

const summaryDateLayout = "2006-01-02"

var summaryHeader = []interface{}{
	"Generated At", "Owner ID", "Farmer ID", "Farmer Name", "Mobile Number",
	"Total Loan", "Loan Paid Back", "Loan Remaining", "Open Loans",
}

// SummaryExporter appends weekly loan summary rows to one tab.
type SummaryExporter struct {
	repo   Repository
	sheet  string
	logger *zap.Logger
}

// NewSummaryExporter wires an exporter writing to the given tab.
func NewSummaryExporter(repo Repository, sheet string, logger *zap.Logger) *SummaryExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryExporter{repo: repo, sheet: sheet, logger: logger}
}

// Export appends one row per summary, writing the header first on an empty tab.
func (e *SummaryExporter) Export(ctx context.Context, rows []models.LoanSummary) error {
	existing, err := e.repo.ReadRange(ctx, e.sheet+"!A1:I1")
	if err != nil {
		return fmt.Errorf("read %s header: %w", e.sheet, err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	if len(existing) == 0 {
		values = append(values, summaryHeader)
	}
	for _, r := range rows {
		values = append(values, SummaryRow(r))
	}

	if err := e.repo.AppendRows(ctx, e.sheet+"!A:I", values); err != nil {
		return err
	}
	e.logger.Info("loan summary exported", zap.String("sheet", e.sheet), zap.Int("rows", len(rows)))
	return nil
}

// SummaryRow maps a summary to its spreadsheet cells. Money is sent as
// fixed two-decimal strings so the sheet parses them as numbers.
func SummaryRow(r models.LoanSummary) []interface{} {
	return []interface{}{
		r.GeneratedAt.Format(summaryDateLayout),
		r.OwnerID,
		r.FarmerID,
		r.FarmerName,
		r.MobileNumber,
		r.TotalLoan.StringFixed(2),
		r.TotalLoanPaidBack.StringFixed(2),
		r.TotalLoanRemaining.StringFixed(2),
		r.OpenLoans,
	}
}
