// Package pdf renders farmer statements as printable PDF documents.
package pdf

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/mamadbah2/dairy/internal/service/reporting"
)

// ContentType is the MIME type of the produced documents.
const ContentType = "application/pdf"

const (
	dateLayout = "02 Jan 2006"
	rowHeight  = 7.0
)

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 34, "L"},
	{"Quantity (L)", 30, "R"},
	{"Fat", 22, "R"},
	{"SNF", 22, "R"},
	{"Rate", 30, "R"},
	{"Amount", 42, "R"},
}

// Statement writes a single farmer statement.
func Statement(w io.Writer, st reporting.Statement) error {
	return Statements(w, "Farmer Statement", []reporting.Statement{st})
}

// Statements writes one or more statements, each starting on a new page.
func Statements(w io.Writer, title string, sts []reporting.Statement) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont("Helvetica", "I", 8)
		doc.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	if len(sts) == 0 {
		doc.AddPage()
		doc.SetFont("Helvetica", "B", 14)
		doc.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, 8, "No farmers found.", "", 1, "L", false, 0, "")
	}
	for _, st := range sts {
		writeStatement(doc, title, st)
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeStatement(doc *fpdf.Fpdf, title string, st reporting.Statement) {
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 10, title, "", 1, "C", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, fmt.Sprintf("Farmer: %s (ID %d)", st.FarmerName, st.FarmerID), "", 1, "L", false, 0, "")
	if st.MobileNumber != "" {
		doc.CellFormat(0, 6, "Mobile: "+st.MobileNumber, "", 1, "L", false, 0, "")
	}
	doc.CellFormat(0, 6, "Period: "+period(st.Window), "", 1, "L", false, 0, "")
	doc.Ln(4)

	if len(st.Groups) == 0 {
		doc.CellFormat(0, 8, "No milk transactions in this period.", "", 1, "L", false, 0, "")
	}
	for _, g := range st.Groups {
		writeGroup(doc, g)
	}

	doc.Ln(2)
	doc.SetFont("Helvetica", "B", 10)
	summary := [][2]string{
		{"Total Milk (L)", st.TotalLitres.StringFixed(2)},
		{"Total Amount", "Rs " + st.TotalAmount.StringFixed(2)},
		{"Total Loan", "Rs " + st.TotalLoan.StringFixed(2)},
		{"Loan Paid Back", "Rs " + st.TotalLoanPaidBack.StringFixed(2)},
		{"Loan Remaining", "Rs " + st.TotalLoanRemaining.StringFixed(2)},
	}
	for _, line := range summary {
		doc.CellFormat(60, rowHeight, line[0], "1", 0, "L", false, 0, "")
		doc.CellFormat(50, rowHeight, line[1], "1", 1, "R", false, 0, "")
	}
}

func writeGroup(doc *fpdf.Fpdf, g reporting.Group) {
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 8, g.Title(), "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(230, 230, 230)
	for _, c := range columns {
		doc.CellFormat(c.width, rowHeight, c.title, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 9)
	for _, tx := range g.Rows {
		cells := []string{
			tx.TransactionDate.Format(dateLayout),
			tx.MilkQuantity.StringFixed(2),
			tx.Fat.StringFixed(1),
			tx.SNF.StringFixed(1),
			tx.PricePerLitre.StringFixed(2),
			tx.TransactionAmount.StringFixed(2),
		}
		for i, c := range columns {
			doc.CellFormat(c.width, rowHeight, cells[i], "1", 0, c.align, false, 0, "")
		}
		doc.Ln(-1)
	}

	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(columns[0].width, rowHeight, "Total", "1", 0, "L", false, 0, "")
	doc.CellFormat(columns[1].width, rowHeight, g.TotalLitres.StringFixed(2), "1", 0, "R", false, 0, "")
	rest := columns[2].width + columns[3].width + columns[4].width
	doc.CellFormat(rest, rowHeight, "", "1", 0, "R", false, 0, "")
	doc.CellFormat(columns[5].width, rowHeight, g.TotalAmount.StringFixed(2), "1", 1, "R", false, 0, "")
	doc.Ln(3)
}

func period(w reporting.Window) string {
	switch {
	case w.From.IsZero() && w.To.IsZero():
		return "All transactions"
	case w.To.IsZero():
		return "From " + w.From.Format(dateLayout)
	case w.From.IsZero():
		return "Until " + w.To.AddDate(0, 0, -1).Format(dateLayout)
	}
	return w.From.Format(dateLayout) + " - " + w.To.AddDate(0, 0, -1).Format(dateLayout)
}
