package milk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/ledger"
	"github.com/mamadbah2/dairy/internal/repository/memory"
)

const owner = "owner-1"

var day = time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func delivery(qty, price string) ledger.MilkInput {
	return ledger.MilkInput{
		TransactionDate: day,
		TransactionTime: models.SlotMorning,
		MilkType:        "cow",
		MilkQuantity:    d(qty),
		PricePerLitre:   d(price),
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (n *recordingNotifier) LoanCleared(_ context.Context, _ *models.Farmer, loan models.Loan) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleared = append(n.cleared, loan.ID)
	return n.err
}

func (n *recordingNotifier) NotifyManager(context.Context, string) error { return nil }

func (n *recordingNotifier) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return nil
}

func setup(t *testing.T) (*Service, *memory.FarmerStore, *recordingNotifier) {
	t.Helper()
	store := memory.NewFarmerStore()
	require.NoError(t, store.InsertFarmer(context.Background(), &models.Farmer{
		ID: "f-1", OwnerID: owner, FarmerID: 1, Name: "Ravi", MobileNumber: "9000000001",
	}))
	n := &recordingNotifier{}
	return NewService(store, ledger.NewEngine(), n, 3, zaptest.NewLogger(t)), store, n
}

func TestRecordMilkTransaction_ClearsLoanAndNotifies(t *testing.T) {
	ctx := context.Background()
	svc, store, n := setup(t)

	f, err := svc.CreateLoan(ctx, owner, 1, d("1000"), day)
	require.NoError(t, err)
	loanID := f.Loans[0].ID

	f, err = svc.RecordMilkTransaction(ctx, owner, 1, delivery("10", "30"))
	require.NoError(t, err)
	assert.True(t, f.TotalLoanRemaining.Equal(d("700")))
	assert.Empty(t, n.cleared)

	f, err = svc.RecordMilkTransaction(ctx, owner, 1, delivery("7", "100"))
	require.NoError(t, err)
	assert.True(t, f.TotalLoanRemaining.IsZero())
	assert.True(t, f.TotalLoanPaidBack.Equal(d("1000")))
	assert.Equal(t, []string{loanID}, n.cleared)

	stored, err := store.FindFarmerByOwnerAndID(ctx, owner, 1)
	require.NoError(t, err)
	assert.Len(t, stored.Transactions, 2)
	assert.Equal(t, f.Version, stored.Version)
	require.NoError(t, ledger.Verify(stored))
}

func TestRecordMilkTransaction_InvalidInputLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setup(t)
	_, err := svc.CreateLoan(ctx, owner, 1, d("1000"), day)
	require.NoError(t, err)
	before, err := store.FindFarmerByOwnerAndID(ctx, owner, 1)
	require.NoError(t, err)

	_, err = svc.RecordMilkTransaction(ctx, owner, 1, delivery("-1", "30"))
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.CodeAmountInvalid, verr.Code)

	after, err := store.FindFarmerByOwnerAndID(ctx, owner, 1)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReviseAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	_, err := svc.CreateLoan(ctx, owner, 1, d("1000"), day)
	require.NoError(t, err)
	f, err := svc.RecordMilkTransaction(ctx, owner, 1, delivery("10", "30"))
	require.NoError(t, err)
	txID := f.Transactions[0].ID

	f, err = svc.ReviseMilkTransaction(ctx, owner, 1, txID, ledger.MilkEdit{
		TransactionDate: day,
		MilkQuantity:    d("10"),
		PricePerLitre:   d("10"),
	})
	require.NoError(t, err)
	assert.True(t, f.TotalLoanRemaining.Equal(d("900")))
	assert.True(t, f.TotalLoanPaidBack.Equal(d("100")))

	f, err = svc.DeleteMilkTransaction(ctx, owner, 1, txID)
	require.NoError(t, err)
	assert.Empty(t, f.Transactions)
	assert.True(t, f.TotalLoanRemaining.Equal(d("900")))

	_, err = svc.DeleteMilkTransaction(ctx, owner, 1, txID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReviseMilkTransaction_NotifiesWhenIncreaseClears(t *testing.T) {
	ctx := context.Background()
	svc, _, n := setup(t)
	f, err := svc.CreateLoan(ctx, owner, 1, d("300"), day)
	require.NoError(t, err)
	loanID := f.Loans[0].ID
	f, err = svc.RecordMilkTransaction(ctx, owner, 1, delivery("1", "100"))
	require.NoError(t, err)

	_, err = svc.ReviseMilkTransaction(ctx, owner, 1, f.Transactions[0].ID, ledger.MilkEdit{
		TransactionDate: day,
		MilkQuantity:    d("4"),
		PricePerLitre:   d("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{loanID}, n.cleared)
}

func TestLoanOperations(t *testing.T) {
	ctx := context.Background()
	svc, _, n := setup(t)

	f, err := svc.CreateLoan(ctx, owner, 1, d("500"), day)
	require.NoError(t, err)
	id := f.Loans[0].ID

	f, err = svc.UpdateLoan(ctx, owner, 1, id, d("800"), time.Time{})
	require.NoError(t, err)
	assert.True(t, f.TotalLoan.Equal(d("800")))

	f, err = svc.DeductLoan(ctx, owner, 1, id, d("800"))
	require.NoError(t, err)
	assert.True(t, f.Loans[0].IsDeleted)
	assert.Equal(t, []string{id}, n.cleared)

	_, err = svc.DeleteLoan(ctx, owner, 1, id)
	assert.ErrorIs(t, err, models.ErrValidation)

	f, err = svc.CreateLoan(ctx, owner, 1, d("200"), day)
	require.NoError(t, err)
	f, err = svc.DeleteLoan(ctx, owner, 1, f.Loans[1].ID)
	require.NoError(t, err)
	assert.True(t, f.TotalLoan.Equal(d("800")))
	assert.True(t, f.TotalLoanRemaining.IsZero())

	all, err := svc.ListLoans(ctx, owner, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := svc.ListLoans(ctx, owner, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUnknownFarmer(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.RecordMilkTransaction(context.Background(), owner, 99, delivery("1", "1"))
	assert.ErrorIs(t, err, models.ErrNotFound)

	// another owner cannot reach farmer 1
	_, err = svc.CreateLoan(context.Background(), "owner-2", 1, d("10"), day)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	svc, _, n := setup(t)
	n.err = errors.New("whatsapp down")

	_, err := svc.CreateLoan(ctx, owner, 1, d("100"), day)
	require.NoError(t, err)
	f, err := svc.RecordMilkTransaction(ctx, owner, 1, delivery("1", "100"))
	require.NoError(t, err)
	assert.True(t, f.TotalLoanRemaining.IsZero())
}

// interferingStore lets another writer save the farmer right before the
// service's first save, so that save hits a version conflict.
type interferingStore struct {
	*memory.FarmerStore
	mu        sync.Mutex
	remaining int
	saves     int
}

func (s *interferingStore) SaveFarmer(ctx context.Context, f *models.Farmer) error {
	s.mu.Lock()
	interfere := s.remaining > 0
	if interfere {
		s.remaining--
	}
	s.saves++
	s.mu.Unlock()

	if interfere {
		other, err := s.FarmerStore.FindFarmerByOwnerAndID(ctx, f.OwnerID, f.FarmerID)
		if err != nil {
			return err
		}
		if _, err := ledger.NewEngine().CreateLoan(other, d("100"), day); err != nil {
			return err
		}
		if err := s.FarmerStore.SaveFarmer(ctx, other); err != nil {
			return err
		}
	}
	return s.FarmerStore.SaveFarmer(ctx, f)
}

func TestRetryOnConflictKeepsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	base := memory.NewFarmerStore()
	require.NoError(t, base.InsertFarmer(ctx, &models.Farmer{ID: "f-1", OwnerID: owner, FarmerID: 1}))
	store := &interferingStore{FarmerStore: base, remaining: 1}
	svc := NewService(store, ledger.NewEngine(), nil, 3, zaptest.NewLogger(t))

	f, err := svc.RecordMilkTransaction(ctx, owner, 1, delivery("1", "30"))
	require.NoError(t, err)

	// the loan created by the other writer survived and absorbed the payment
	require.Len(t, f.Loans, 1)
	assert.True(t, f.Loans[0].LoanAmount.Equal(d("70")))
	assert.Len(t, f.Transactions, 1)
	assert.Equal(t, 2, store.saves)
	require.NoError(t, ledger.Verify(f))
}

func TestRetryGivesUp(t *testing.T) {
	ctx := context.Background()
	base := memory.NewFarmerStore()
	require.NoError(t, base.InsertFarmer(ctx, &models.Farmer{ID: "f-1", OwnerID: owner, FarmerID: 1}))
	store := &interferingStore{FarmerStore: base, remaining: 10}
	svc := NewService(store, ledger.NewEngine(), nil, 2, nil)

	_, err := svc.RecordMilkTransaction(ctx, owner, 1, delivery("1", "30"))
	assert.ErrorIs(t, err, models.ErrConflict)

	stored, err := base.FindFarmerByOwnerAndID(ctx, owner, 1)
	require.NoError(t, err)
	assert.Empty(t, stored.Transactions)
	assert.Len(t, stored.Loans, 2)
}

func TestConcurrentDeliveriesConserveMoney(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFarmerStore()
	require.NoError(t, store.InsertFarmer(ctx, &models.Farmer{ID: "f-1", OwnerID: owner, FarmerID: 1}))

	// two services share the store but not their locks, as two processes would
	a := NewService(store, ledger.NewEngine(), nil, 100, nil)
	b := NewService(store, ledger.NewEngine(), nil, 100, nil)

	_, err := a.CreateLoan(ctx, owner, 1, d("5000"), day)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		svc := a
		if i%2 == 1 {
			svc = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordMilkTransaction(ctx, owner, 1, delivery("2", "25"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	f, err := store.FindFarmerByOwnerAndID(ctx, owner, 1)
	require.NoError(t, err)
	assert.Len(t, f.Transactions, 40)
	assert.True(t, f.TotalLoanPaidBack.Equal(d("2000")))
	assert.True(t, f.TotalLoanRemaining.Equal(d("3000")))
	require.NoError(t, ledger.Verify(f))
	assert.Zero(t, a.locks.size())
}

func TestContextCanceled(t *testing.T) {
	svc, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateLoan(ctx, owner, 1, d("10"), day)
	assert.ErrorIs(t, err, context.Canceled)
}
