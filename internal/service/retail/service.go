// Package retail records counter and online sales of a branch and builds
// period reports over them.
package retail

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

// Report periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// Input is a sale as entered by the operator.
type Input struct {
	CustomerName string
	MobileNumber string
	Channel      string
	Items        []models.RetailItem
	// Time defaults to now on save and is required on update.
	Time time.Time
}

func (in Input) validate() (decimal.Decimal, error) {
	if strings.TrimSpace(in.CustomerName) == "" {
		return decimal.Zero, models.Required("customerName")
	}
	if strings.TrimSpace(in.MobileNumber) == "" {
		return decimal.Zero, models.Required("mobileNumber")
	}
	if len(in.Items) == 0 {
		return decimal.Zero, models.Required("items")
	}

	total := decimal.Zero
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductName) == "" {
			return decimal.Zero, models.Required("productName")
		}
		if it.Amount.IsNegative() || it.Quantity.IsNegative() {
			return decimal.Zero, models.AmountInvalid("items", "must not be negative")
		}
		total = total.Add(it.Amount)
	}
	if !total.IsPositive() {
		return decimal.Zero, models.AmountInvalid("amount", "total amount must be greater than zero")
	}
	return total, nil
}

// Service manages retail transactions.
type Service struct {
	store  repository.RetailStore
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewService builds a Service. Days, weeks and months are cut in loc.
func NewService(store repository.RetailStore, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, loc: loc, now: time.Now, logger: logger}
}

// Save stores a new sale. Its amount is the sum of the item amounts.
func (s *Service) Save(ctx context.Context, ownerID string, in Input) (*models.RetailTransaction, error) {
	total, err := in.validate()
	if err != nil {
		return nil, err
	}

	at := in.Time
	if at.IsZero() {
		at = s.now()
	}

	tx := &models.RetailTransaction{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		CustomerName: strings.TrimSpace(in.CustomerName),
		MobileNumber: strings.TrimSpace(in.MobileNumber),
		Channel:      models.NormalizeChannel(in.Channel),
		Items:        in.Items,
		Amount:       total,
		Time:         at,
	}
	if err := s.store.InsertRetail(ctx, tx); err != nil {
		return nil, err
	}
	s.logger.Info("retail transaction saved",
		zap.String("owner_id", ownerID),
		zap.String("channel", tx.Channel),
		zap.String("amount", total.String()))
	return tx, nil
}

// ListToday returns the owner's sales of the current day.
func (s *Service) ListToday(ctx context.Context, ownerID string) ([]models.RetailTransaction, error) {
	from, to, err := Window(PeriodDaily, s.now(), s.loc)
	if err != nil {
		return nil, err
	}
	return s.store.ListRetail(ctx, ownerID, from, to)
}

// Update replaces a sale and recomputes its amount.
func (s *Service) Update(ctx context.Context, ownerID, id string, in Input) (*models.RetailTransaction, error) {
	if in.Time.IsZero() {
		return nil, models.Required("time")
	}
	total, err := in.validate()
	if err != nil {
		return nil, err
	}

	tx, err := s.store.FindRetail(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	tx.CustomerName = strings.TrimSpace(in.CustomerName)
	tx.MobileNumber = strings.TrimSpace(in.MobileNumber)
	if in.Channel != "" {
		tx.Channel = models.NormalizeChannel(in.Channel)
	}
	tx.Items = in.Items
	tx.Amount = total
	tx.Time = in.Time

	if err := s.store.UpdateRetail(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteRetail(ctx, ownerID, id)
}

// CustomerTransactions returns every sale made to one mobile number.
func (s *Service) CustomerTransactions(ctx context.Context, ownerID, mobileNumber string) ([]models.RetailTransaction, error) {
	all, err := s.store.ListRetail(ctx, ownerID, time.Unix(0, 0), s.now().AddDate(100, 0, 0))
	if err != nil {
		return nil, err
	}
	var out []models.RetailTransaction
	for _, tx := range all {
		if tx.MobileNumber == mobileNumber {
			out = append(out, tx)
		}
	}
	if len(out) == 0 {
		return nil, models.NotFound("customer", mobileNumber)
	}
	return out, nil
}

// Report is the result of a period query.
type Report struct {
	Period       string                     `json:"period"`
	From         time.Time                  `json:"from"`
	To           time.Time                  `json:"to"`
	Transactions []models.RetailTransaction `json:"transactions"`
	Total        decimal.Decimal            `json:"total"`
}

// Report collects the sales of the period containing now.
func (s *Service) Report(ctx context.Context, ownerID, period string) (Report, error) {
	from, to, err := Window(period, s.now(), s.loc)
	if err != nil {
		return Report{}, err
	}
	txs, err := s.store.ListRetail(ctx, ownerID, from, to)
	if err != nil {
		return Report{}, err
	}

	r := Report{Period: period, From: from, To: to, Transactions: txs, Total: decimal.Zero}
	for _, tx := range txs {
		r.Total = r.Total.Add(tx.Amount)
	}
	return r, nil
}

// Window returns the half-open range [from, to) of the period containing
// now. Weeks start on Monday.
func Window(period string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	now = now.In(loc)
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch period {
	case PeriodDaily:
		return day, day.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		offset := (int(now.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case PeriodMonthly:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), nil
	case PeriodYearly:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0), nil
	}
	return time.Time{}, time.Time{}, models.Invalid("reportType", "must be daily, weekly, monthly or yearly")
}
