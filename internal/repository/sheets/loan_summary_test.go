package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

type fakeRepo struct {
	header   [][]interface{}
	readErr  error
	appended map[string][][]interface{}
}

func (f *fakeRepo) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	if f.appended == nil {
		f.appended = map[string][][]interface{}{}
	}
	f.appended[sheetRange] = append(f.appended[sheetRange], rows...)
	return nil
}

func (f *fakeRepo) ReadRange(context.Context, string) ([][]interface{}, error) {
	return f.header, f.readErr
}

var summary = models.LoanSummary{
	OwnerID:            "owner",
	FarmerID:           9,
	FarmerName:         "Geeta",
	MobileNumber:       "9000000009",
	TotalLoan:          decimal.NewFromInt(1200),
	TotalLoanPaidBack:  decimal.RequireFromString("450.5"),
	TotalLoanRemaining: decimal.RequireFromString("749.5"),
	OpenLoans:          2,
	GeneratedAt:        time.Date(2025, 3, 16, 20, 0, 0, 0, time.UTC),
}

func TestSummaryRow(t *testing.T) {
	assert.Equal(t, []interface{}{"2025-03-16", "owner", int64(9), "Geeta", "9000000009", "1200.00", "450.50", "749.50", 2}, SummaryRow(summary))
}

func TestExport_WritesHeaderOnEmptyTab(t *testing.T) {
	repo := &fakeRepo{}
	require.NoError(t, NewSummaryExporter(repo, "LoanSummary", nil).Export(context.Background(), []models.LoanSummary{summary}))

	rows := repo.appended["LoanSummary!A:I"]
	require.Len(t, rows, 2)
	assert.Equal(t, "Generated At", rows[0][0])
	assert.Equal(t, "Geeta", rows[1][3])
}

func TestExport_AppendsBelowExistingHeader(t *testing.T) {
	repo := &fakeRepo{header: [][]interface{}{summaryHeader}}
	require.NoError(t, NewSummaryExporter(repo, "LoanSummary", nil).Export(context.Background(), []models.LoanSummary{summary}))
	assert.Len(t, repo.appended["LoanSummary!A:I"], 1)
}

func TestExport_ReadFailure(t *testing.T) {
	repo := &fakeRepo{readErr: errors.New("quota")}
	err := NewSummaryExporter(repo, "LoanSummary", nil).Export(context.Background(), nil)
	assert.ErrorContains(t, err, "quota")
	assert.Empty(t, repo.appended)
}
