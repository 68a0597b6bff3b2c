package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

const dateLayout = "2006-01-02"

// Milk kinds used to group statement rows. Anything that is not cow milk
// is reported as buffalo milk.
const (
	MilkCow     = "cow"
	MilkBuffalo = "buffalo"
)

// Window is a half-open date range [From, To). A zero bound is open.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// Group is one slot x milk kind table of a statement.
type Group struct {
	Slot        string                   `json:"slot"`
	MilkType    string                   `json:"milkType"`
	Rows        []models.MilkTransaction `json:"rows"`
	TotalLitres decimal.Decimal          `json:"totalLitres"`
	TotalAmount decimal.Decimal          `json:"totalAmount"`
}

// Title is the heading printed above the group table.
func (g Group) Title() string {
	return fmt.Sprintf("%s - %s MILK", strings.ToUpper(g.Slot), strings.ToUpper(g.MilkType))
}

// Statement is the read-only projection of one farmer over a window.
type Statement struct {
	OwnerID      string `json:"ownerId"`
	FarmerID     int64  `json:"farmerId"`
	FarmerName   string `json:"farmerName"`
	MobileNumber string `json:"mobileNumber"`
	Address      string `json:"address"`
	Window       Window `json:"window"`

	Groups      []Group         `json:"groups"`
	TotalLitres decimal.Decimal `json:"totalLitres"`
	TotalAmount decimal.Decimal `json:"totalAmount"`

	TotalLoan          decimal.Decimal `json:"totalLoan"`
	TotalLoanPaidBack  decimal.Decimal `json:"totalLoanPaidBack"`
	TotalLoanRemaining decimal.Decimal `json:"totalLoanRemaining"`

	GeneratedAt time.Time `json:"generatedAt"`
}

var groupOrder = []struct{ slot, milk string }{
	{models.SlotMorning, MilkCow},
	{models.SlotMorning, MilkBuffalo},
	{models.SlotEvening, MilkCow},
	{models.SlotEvening, MilkBuffalo},
}

// MilkKind folds a free-form milk type into cow or buffalo.
func MilkKind(milkType string) string {
	if strings.EqualFold(strings.TrimSpace(milkType), MilkCow) {
		return MilkCow
	}
	return MilkBuffalo
}

// BuildStatement groups the farmer's deliveries inside w by slot and milk
// kind. Amounts are the recorded payment amounts. The farmer is not modified.
func BuildStatement(f *models.Farmer, w Window, now time.Time) Statement {
	st := Statement{
		OwnerID:            f.OwnerID,
		FarmerID:           f.FarmerID,
		FarmerName:         f.Name,
		MobileNumber:       f.MobileNumber,
		Address:            f.Address,
		Window:             w,
		TotalLitres:        decimal.Zero,
		TotalAmount:        decimal.Zero,
		TotalLoan:          f.TotalLoan,
		TotalLoanPaidBack:  f.TotalLoanPaidBack,
		TotalLoanRemaining: f.TotalLoanRemaining,
		GeneratedAt:        now,
	}

	buckets := make(map[[2]string][]models.MilkTransaction, len(groupOrder))
	for _, tx := range f.Transactions {
		if !w.Contains(tx.TransactionDate) {
			continue
		}
		key := [2]string{tx.Slot(), MilkKind(tx.MilkType)}
		buckets[key] = append(buckets[key], tx)
	}

	for _, g := range groupOrder {
		rows := buckets[[2]string{g.slot, g.milk}]
		if len(rows) == 0 {
			continue
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].TransactionDate.Before(rows[j].TransactionDate)
		})

		group := Group{Slot: g.slot, MilkType: g.milk, Rows: rows, TotalLitres: decimal.Zero, TotalAmount: decimal.Zero}
		for _, tx := range rows {
			group.TotalLitres = group.TotalLitres.Add(tx.MilkQuantity)
			group.TotalAmount = group.TotalAmount.Add(tx.TransactionAmount)
		}
		st.TotalLitres = st.TotalLitres.Add(group.TotalLitres)
		st.TotalAmount = st.TotalAmount.Add(group.TotalAmount)
		st.Groups = append(st.Groups, group)
	}
	return st
}

// TenDayWindow returns the billing window that starts on day 1, 11 or 21 of
// the month containing now and spans ten calendar days.
func TenDayWindow(startDay int, now time.Time, loc *time.Location) (Window, error) {
	switch startDay {
	case 1, 11, 21:
	default:
		return Window{}, models.Invalid("day", "must be 1, 11 or 21")
	}
	now = now.In(loc)
	from := time.Date(now.Year(), now.Month(), startDay, 0, 0, 0, 0, loc)
	return Window{From: from, To: from.AddDate(0, 0, 10)}, nil
}

// DayEntry is a delivery of the day with the farmer it came from.
type DayEntry struct {
	FarmerID    int64                  `json:"farmerId"`
	FarmerName  string                 `json:"farmerName"`
	Transaction models.MilkTransaction `json:"transaction"`
}

// Service exposes the read-only report queries.
type Service struct {
	store  repository.FarmerStore
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(store repository.FarmerStore, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, loc: loc, now: time.Now, logger: logger}
}

// Location is the timezone reports are cut in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Statement builds the statement of one farmer over w.
func (s *Service) Statement(ctx context.Context, ownerID string, farmerID int64, w Window) (Statement, error) {
	f, err := s.store.FindFarmerByOwnerAndID(ctx, ownerID, farmerID)
	if err != nil {
		return Statement{}, err
	}
	return BuildStatement(f, w, s.now()), nil
}

// TenDayStatement builds the statement of one farmer for a ten-day window of
// the current month.
func (s *Service) TenDayStatement(ctx context.Context, ownerID string, farmerID int64, startDay int) (Statement, error) {
	w, err := TenDayWindow(startDay, s.now(), s.loc)
	if err != nil {
		return Statement{}, err
	}
	return s.Statement(ctx, ownerID, farmerID, w)
}

// AllStatements builds an all-time statement for every farmer of the owner.
func (s *Service) AllStatements(ctx context.Context, ownerID string) ([]Statement, error) {
	farmers, err := s.store.ListFarmers(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Statement, 0, len(farmers))
	for _, f := range farmers {
		out = append(out, BuildStatement(f, Window{}, now))
	}
	return out, nil
}

// Farmer returns the stored farmer for the workbook exports.
func (s *Service) Farmer(ctx context.Context, ownerID string, farmerID int64) (*models.Farmer, error) {
	return s.store.FindFarmerByOwnerAndID(ctx, ownerID, farmerID)
}

// Farmers returns every farmer of the owner for the workbook exports.
func (s *Service) Farmers(ctx context.Context, ownerID string) ([]*models.Farmer, error) {
	return s.store.ListFarmers(ctx, ownerID)
}

// TodayEntries lists the deliveries recorded today across the owner's farmers.
func (s *Service) TodayEntries(ctx context.Context, ownerID string) ([]DayEntry, error) {
	farmers, err := s.store.ListFarmers(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	today := Window{From: from, To: from.AddDate(0, 0, 1)}

	var out []DayEntry
	for _, f := range farmers {
		for _, tx := range f.Transactions {
			if today.Contains(tx.TransactionDate) {
				out = append(out, DayEntry{FarmerID: f.FarmerID, FarmerName: f.Name, Transaction: tx})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Transaction.TransactionDate.Before(out[j].Transaction.TransactionDate)
	})
	return out, nil
}

// LoanSummaries returns one row per farmer across all owners.
func (s *Service) LoanSummaries(ctx context.Context) ([]models.LoanSummary, error) {
	farmers, err := s.store.ListAllFarmers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load farmers: %w", err)
	}

	now := s.now()
	out := make([]models.LoanSummary, 0, len(farmers))
	for _, f := range farmers {
		open := 0
		for _, loan := range f.Loans {
			if loan.Active() {
				open++
			}
		}
		out = append(out, models.LoanSummary{
			OwnerID:            f.OwnerID,
			FarmerID:           f.FarmerID,
			FarmerName:         f.Name,
			MobileNumber:       f.MobileNumber,
			TotalLoan:          f.TotalLoan,
			TotalLoanPaidBack:  f.TotalLoanPaidBack,
			TotalLoanRemaining: f.TotalLoanRemaining,
			OpenLoans:          open,
			GeneratedAt:        now,
		})
	}
	s.logger.Debug("loan summaries built", zap.Int("farmers", len(out)))
	return out, nil
}

// SummaryMessage renders the loan summaries as a short text message.
func SummaryMessage(rows []models.LoanSummary, now time.Time) string {
	if len(rows) == 0 {
		return fmt.Sprintf("Loan summary (%s): no farmers registered.", now.Format(dateLayout))
	}

	lent, repaid, outstanding := decimal.Zero, decimal.Zero, decimal.Zero
	open := 0
	for _, r := range rows {
		lent = lent.Add(r.TotalLoan)
		repaid = repaid.Add(r.TotalLoanPaidBack)
		outstanding = outstanding.Add(r.TotalLoanRemaining)
		open += r.OpenLoans
	}
	return fmt.Sprintf("Loan summary (%s): %d farmers, %d open loans. Lent Rs %s, repaid Rs %s, outstanding Rs %s.",
		now.Format(dateLayout), len(rows), open, lent.StringFixed(2), repaid.StringFixed(2), outstanding.StringFixed(2))
}
