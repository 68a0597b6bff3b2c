// Package xlsx renders farmer, loan and retail projections as workbooks.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/retail"
)

// ContentType is the MIME type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateLayout = "2006-01-02"

// Sheet names used by the renderers.
const (
	SheetFarmer  = "Farmer"
	SheetMilk    = "Milk"
	SheetLoans   = "Loans"
	SheetRetail  = "Retail"
	SheetSummary = "LoanSummary"
)

type table struct {
	name   string
	header []string
	rows   [][]any
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// write renders tables as sheets, in order, and streams the workbook to w.
func write(w io.Writer, tables ...table) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", t.name, err)
		}

		header := make([]any, len(t.header))
		for j, h := range t.header {
			header[j] = h
		}
		if err := f.SetSheetRow(t.name, "A1", &header); err != nil {
			return fmt.Errorf("write %s header: %w", t.name, err)
		}
		if err := f.SetRowStyle(t.name, 1, 1, bold); err != nil {
			return fmt.Errorf("style %s header: %w", t.name, err)
		}

		for r, row := range t.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			row := row
			if err := f.SetSheetRow(t.name, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", t.name, r+2, err)
			}
		}

		last, err := excelize.ColumnNumberToName(len(t.header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(t.name, "A", last, 18); err != nil {
			return fmt.Errorf("size %s columns: %w", t.name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

var farmerHeader = []string{"Farmer ID", "Farmer Name", "Mobile Number", "Address", "Milk Type", "Total Loan", "Loan Paid Back", "Loan Remaining"}

func farmerRow(f *models.Farmer) []any {
	return []any{f.FarmerID, f.Name, f.MobileNumber, f.Address, f.MilkType,
		money(f.TotalLoan), money(f.TotalLoanPaidBack), money(f.TotalLoanRemaining)}
}

// FarmerDetails writes the profile of one farmer with its three loan totals.
func FarmerDetails(w io.Writer, f *models.Farmer) error {
	return write(w, table{name: SheetFarmer, header: farmerHeader, rows: [][]any{farmerRow(f)}})
}

// FarmerWorkbook writes the profile, every milk delivery and every loan of a
// farmer. Loan rows carry their history flattened into one cell.
func FarmerWorkbook(w io.Writer, f *models.Farmer) error {
	milk := table{
		name:   SheetMilk,
		header: []string{"Transaction ID", "Date", "Slot", "Milk Type", "Quantity", "Fat", "SNF", "Price Per Litre", "Amount"},
	}
	for _, tx := range f.Transactions {
		milk.rows = append(milk.rows, []any{
			tx.ID, tx.TransactionDate.Format(dateLayout), tx.Slot(), tx.MilkType,
			tx.MilkQuantity.InexactFloat64(), tx.Fat.InexactFloat64(), tx.SNF.InexactFloat64(),
			money(tx.PricePerLitre), money(tx.TransactionAmount),
		})
	}

	loans := table{
		name:   SheetLoans,
		header: []string{"Loan ID", "Loan Date", "Original Amount", "Remaining", "Status", "History"},
	}
	for _, loan := range f.Loans {
		loans.rows = append(loans.rows, []any{
			loan.ID, loan.LoanDate.Format(dateLayout), money(loan.OriginalAmount), money(loan.LoanAmount),
			loanStatus(loan), History(loan.History),
		})
	}

	return write(w, table{name: SheetFarmer, header: farmerHeader, rows: [][]any{farmerRow(f)}}, milk, loans)
}

// LoanReport writes one row per loan across the given farmers.
func LoanReport(w io.Writer, farmers []*models.Farmer) error {
	t := table{
		name:   SheetLoans,
		header: []string{"Farmer ID", "Farmer Name", "Mobile Number", "Loan ID", "Loan Date", "Original Amount", "Remaining", "Status"},
	}
	for _, f := range farmers {
		for _, loan := range f.Loans {
			t.rows = append(t.rows, []any{
				f.FarmerID, f.Name, f.MobileNumber, loan.ID, loan.LoanDate.Format(dateLayout),
				money(loan.OriginalAmount), money(loan.LoanAmount), loanStatus(loan),
			})
		}
	}
	return write(w, t)
}

// LoanSummaries writes the weekly loan summary rows.
func LoanSummaries(w io.Writer, rows []models.LoanSummary) error {
	t := table{
		name:   SheetSummary,
		header: []string{"Owner ID", "Farmer ID", "Farmer Name", "Mobile Number", "Total Loan", "Loan Paid Back", "Loan Remaining", "Open Loans"},
	}
	for _, r := range rows {
		t.rows = append(t.rows, []any{
			r.OwnerID, r.FarmerID, r.FarmerName, r.MobileNumber,
			money(r.TotalLoan), money(r.TotalLoanPaidBack), money(r.TotalLoanRemaining), r.OpenLoans,
		})
	}
	return write(w, t)
}

// RetailReport writes one row per product line followed by a total row.
func RetailReport(w io.Writer, r retail.Report) error {
	t := table{
		name:   SheetRetail,
		header: []string{"Date", "Customer Name", "Mobile Number", "Channel", "Product", "Quantity", "Amount"},
	}
	for _, tx := range r.Transactions {
		for _, it := range tx.Items {
			t.rows = append(t.rows, []any{
				tx.Time.Format(dateLayout), tx.CustomerName, tx.MobileNumber, tx.Channel,
				it.ProductName, it.Quantity.InexactFloat64(), money(it.Amount),
			})
		}
	}
	t.rows = append(t.rows, []any{"Total", "", "", "", "", "", money(r.Total)})
	return write(w, t)
}

// History flattens loan history rows into "date op balance (delta)" entries.
func History(events []models.LoanEvent) string {
	parts := make([]string, 0, len(events))
	for _, ev := range events {
		parts = append(parts, fmt.Sprintf("%s %s %s (%s)",
			ev.ChangedAt.Format(dateLayout), ev.Operation, ev.LoanAmount.StringFixed(2), signed(ev.Delta)))
	}
	return strings.Join(parts, "; ")
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

func loanStatus(loan models.Loan) string {
	switch {
	case loan.IsDeleted:
		return "closed"
	case loan.LoanAmount.IsPositive():
		return "open"
	}
	return "settled"
}
