package mongodb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

func TestCodec_PreservesScale(t *testing.T) {
	var c codec
	for _, s := range []string{"0.1", "1234.567", "-700", "0.0001", "99999999999.99"} {
		in := decimal.RequireFromString(s)
		out := c.dec(c.enc(in))
		require.NoError(t, c.err)
		assert.True(t, in.Equal(out), "want %s got %s", in, out)
	}

	assert.True(t, c.dec(primitive.Decimal128{}).IsZero())
}

func TestFarmerDoc_SurvivesBSON(t *testing.T) {
	at := time.Date(2025, time.March, 10, 6, 30, 0, 0, time.UTC)
	f := &models.Farmer{
		ID:                 "f-1",
		OwnerID:            "owner-1",
		FarmerID:           12,
		Name:               "Lakshmi",
		TotalLoan:          decimal.RequireFromString("1000"),
		TotalLoanPaidBack:  decimal.RequireFromString("300.25"),
		TotalLoanRemaining: decimal.RequireFromString("699.75"),
		Loans: []models.Loan{{
			ID:             "l-1",
			OriginalAmount: decimal.RequireFromString("1000"),
			LoanAmount:     decimal.RequireFromString("699.75"),
			LoanDate:       at,
			History: []models.LoanEvent{
				{ChangedAt: at, LoanDate: at, LoanAmount: decimal.RequireFromString("1000"), Delta: decimal.RequireFromString("1000"), Operation: models.LoanOpCreate},
				{ChangedAt: at, LoanDate: at, LoanAmount: decimal.RequireFromString("699.75"), Delta: decimal.RequireFromString("-300.25"), Operation: models.LoanOpDeduct},
			},
		}},
		Transactions: []models.MilkTransaction{{
			ID:                "t-1",
			TransactionDate:   at,
			TransactionTime:   models.SlotMorning,
			MilkType:          "cow",
			MilkQuantity:      decimal.RequireFromString("8.5"),
			PricePerLitre:     decimal.RequireFromString("35.3235"),
			TransactionAmount: decimal.RequireFromString("300.25"),
		}},
		Version: 3,
	}

	doc, err := toFarmerDoc(f)
	require.NoError(t, err)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded farmerDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got, err := fromFarmerDoc(decoded)
	require.NoError(t, err)

	assert.Equal(t, f.FarmerID, got.FarmerID)
	assert.Equal(t, f.Version, got.Version)
	assert.True(t, got.TotalLoanPaidBack.Equal(f.TotalLoanPaidBack))
	require.Len(t, got.Loans, 1)
	require.Len(t, got.Loans[0].History, 2)
	assert.Equal(t, models.LoanOpDeduct, got.Loans[0].History[1].Operation)
	assert.True(t, got.Loans[0].History[1].Delta.Equal(decimal.RequireFromString("-300.25")))
	require.Len(t, got.Transactions, 1)
	assert.True(t, got.Transactions[0].PricePerLitre.Equal(decimal.RequireFromString("35.3235")))
	assert.True(t, at.Equal(got.Transactions[0].TransactionDate))

	// the stored field names are the ones the collection indexes use
	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Contains(t, m, "ownerId")
	assert.Contains(t, m, "farmerId")
	assert.Contains(t, m, "version")
}
