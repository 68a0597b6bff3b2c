package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// Money is stored as Decimal128 so balances survive the round trip exactly.

type farmerDoc struct {
	ID           string    `bson:"_id"`
	OwnerID      string    `bson:"ownerId"`
	FarmerID     int64     `bson:"farmerId"`
	Name         string    `bson:"farmerName"`
	MobileNumber string    `bson:"mobileNumber"`
	Address      string    `bson:"address"`
	MilkType     string    `bson:"milkType"`
	Gender       string    `bson:"gender"`
	JoiningDate  time.Time `bson:"joiningDate"`

	TotalLoan          primitive.Decimal128 `bson:"totalLoan"`
	TotalLoanPaidBack  primitive.Decimal128 `bson:"totalLoanPaidBack"`
	TotalLoanRemaining primitive.Decimal128 `bson:"totalLoanRemaining"`

	Loans        []loanDoc `bson:"loan"`
	Transactions []milkDoc `bson:"transaction"`

	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type loanDoc struct {
	ID             string               `bson:"id"`
	OriginalAmount primitive.Decimal128 `bson:"originalAmount"`
	LoanAmount     primitive.Decimal128 `bson:"loanAmount"`
	LoanDate       time.Time            `bson:"loanDate"`
	IsDeleted      bool                 `bson:"isDeleted"`
	History        []loanEventDoc       `bson:"history"`
}

type loanEventDoc struct {
	ChangedAt  time.Time            `bson:"changedAt"`
	LoanDate   time.Time            `bson:"loanDate"`
	LoanAmount primitive.Decimal128 `bson:"loanAmount"`
	Delta      primitive.Decimal128 `bson:"delta"`
	Operation  string               `bson:"operation"`
}

type milkDoc struct {
	ID                string               `bson:"id"`
	TransactionDate   time.Time            `bson:"transactionDate"`
	TransactionTime   string               `bson:"transactionTime"`
	MilkType          string               `bson:"milkType"`
	MilkQuantity      primitive.Decimal128 `bson:"milkQuantity"`
	Fat               primitive.Decimal128 `bson:"fat"`
	SNF               primitive.Decimal128 `bson:"snf"`
	PricePerLitre     primitive.Decimal128 `bson:"pricePerLitre"`
	TransactionAmount primitive.Decimal128 `bson:"transactionAmount"`
}

type retailDoc struct {
	ID           string               `bson:"_id"`
	OwnerID      string               `bson:"ownerId"`
	CustomerName string               `bson:"customerName"`
	MobileNumber string               `bson:"mobileNumber"`
	Channel      string               `bson:"channel"`
	Items        []retailItemDoc      `bson:"items"`
	Amount       primitive.Decimal128 `bson:"amount"`
	Time         time.Time            `bson:"time"`
}

type retailItemDoc struct {
	ProductName string               `bson:"productName"`
	Quantity    primitive.Decimal128 `bson:"quantity"`
	Amount      primitive.Decimal128 `bson:"pamount"`
}

// codec converts between decimal.Decimal and Decimal128 and keeps the first
// failure so mapping code can stay linear.
type codec struct {
	err error
}

func (c *codec) enc(d decimal.Decimal) primitive.Decimal128 {
	if c.err != nil {
		return primitive.Decimal128{}
	}
	v, ok := primitive.ParseDecimal128FromBigInt(d.Coefficient(), int(d.Exponent()))
	if !ok {
		c.err = fmt.Errorf("decimal %s does not fit decimal128", d)
	}
	return v
}

func (c *codec) dec(v primitive.Decimal128) decimal.Decimal {
	if c.err != nil {
		return decimal.Zero
	}
	if v.IsZero() {
		return decimal.Zero
	}
	bi, exp, err := v.BigInt()
	if err != nil {
		c.err = fmt.Errorf("decode decimal128 %s: %w", v, err)
		return decimal.Zero
	}
	return decimal.NewFromBigInt(bi, int32(exp))
}

func toFarmerDoc(f *models.Farmer) (farmerDoc, error) {
	var c codec
	doc := farmerDoc{
		ID:                 f.ID,
		OwnerID:            f.OwnerID,
		FarmerID:           f.FarmerID,
		Name:               f.Name,
		MobileNumber:       f.MobileNumber,
		Address:            f.Address,
		MilkType:           f.MilkType,
		Gender:             f.Gender,
		JoiningDate:        f.JoiningDate,
		TotalLoan:          c.enc(f.TotalLoan),
		TotalLoanPaidBack:  c.enc(f.TotalLoanPaidBack),
		TotalLoanRemaining: c.enc(f.TotalLoanRemaining),
		Loans:              make([]loanDoc, 0, len(f.Loans)),
		Transactions:       make([]milkDoc, 0, len(f.Transactions)),
		Version:            f.Version,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}

	for _, loan := range f.Loans {
		ld := loanDoc{
			ID:             loan.ID,
			OriginalAmount: c.enc(loan.OriginalAmount),
			LoanAmount:     c.enc(loan.LoanAmount),
			LoanDate:       loan.LoanDate,
			IsDeleted:      loan.IsDeleted,
			History:        make([]loanEventDoc, 0, len(loan.History)),
		}
		for _, ev := range loan.History {
			ld.History = append(ld.History, loanEventDoc{
				ChangedAt:  ev.ChangedAt,
				LoanDate:   ev.LoanDate,
				LoanAmount: c.enc(ev.LoanAmount),
				Delta:      c.enc(ev.Delta),
				Operation:  string(ev.Operation),
			})
		}
		doc.Loans = append(doc.Loans, ld)
	}

	for _, tx := range f.Transactions {
		doc.Transactions = append(doc.Transactions, milkDoc{
			ID:                tx.ID,
			TransactionDate:   tx.TransactionDate,
			TransactionTime:   tx.TransactionTime,
			MilkType:          tx.MilkType,
			MilkQuantity:      c.enc(tx.MilkQuantity),
			Fat:               c.enc(tx.Fat),
			SNF:               c.enc(tx.SNF),
			PricePerLitre:     c.enc(tx.PricePerLitre),
			TransactionAmount: c.enc(tx.TransactionAmount),
		})
	}

	if c.err != nil {
		return farmerDoc{}, fmt.Errorf("farmer %d: %w", f.FarmerID, c.err)
	}
	return doc, nil
}

func fromFarmerDoc(doc farmerDoc) (*models.Farmer, error) {
	var c codec
	f := &models.Farmer{
		ID:                 doc.ID,
		OwnerID:            doc.OwnerID,
		FarmerID:           doc.FarmerID,
		Name:               doc.Name,
		MobileNumber:       doc.MobileNumber,
		Address:            doc.Address,
		MilkType:           doc.MilkType,
		Gender:             doc.Gender,
		JoiningDate:        doc.JoiningDate,
		TotalLoan:          c.dec(doc.TotalLoan),
		TotalLoanPaidBack:  c.dec(doc.TotalLoanPaidBack),
		TotalLoanRemaining: c.dec(doc.TotalLoanRemaining),
		Version:            doc.Version,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}

	for _, ld := range doc.Loans {
		loan := models.Loan{
			ID:             ld.ID,
			OriginalAmount: c.dec(ld.OriginalAmount),
			LoanAmount:     c.dec(ld.LoanAmount),
			LoanDate:       ld.LoanDate,
			IsDeleted:      ld.IsDeleted,
		}
		for _, ev := range ld.History {
			loan.History = append(loan.History, models.LoanEvent{
				ChangedAt:  ev.ChangedAt,
				LoanDate:   ev.LoanDate,
				LoanAmount: c.dec(ev.LoanAmount),
				Delta:      c.dec(ev.Delta),
				Operation:  models.LoanOperation(ev.Operation),
			})
		}
		f.Loans = append(f.Loans, loan)
	}

	for _, md := range doc.Transactions {
		f.Transactions = append(f.Transactions, models.MilkTransaction{
			ID:                md.ID,
			TransactionDate:   md.TransactionDate,
			TransactionTime:   md.TransactionTime,
			MilkType:          md.MilkType,
			MilkQuantity:      c.dec(md.MilkQuantity),
			Fat:               c.dec(md.Fat),
			SNF:               c.dec(md.SNF),
			PricePerLitre:     c.dec(md.PricePerLitre),
			TransactionAmount: c.dec(md.TransactionAmount),
		})
	}

	if c.err != nil {
		return nil, fmt.Errorf("farmer %d: %w", doc.FarmerID, c.err)
	}
	return f, nil
}

func toRetailDoc(tx *models.RetailTransaction) (retailDoc, error) {
	var c codec
	doc := retailDoc{
		ID:           tx.ID,
		OwnerID:      tx.OwnerID,
		CustomerName: tx.CustomerName,
		MobileNumber: tx.MobileNumber,
		Channel:      tx.Channel,
		Items:        make([]retailItemDoc, 0, len(tx.Items)),
		Amount:       c.enc(tx.Amount),
		Time:         tx.Time,
	}
	for _, it := range tx.Items {
		doc.Items = append(doc.Items, retailItemDoc{
			ProductName: it.ProductName,
			Quantity:    c.enc(it.Quantity),
			Amount:      c.enc(it.Amount),
		})
	}
	if c.err != nil {
		return retailDoc{}, fmt.Errorf("retail transaction %s: %w", tx.ID, c.err)
	}
	return doc, nil
}

func fromRetailDoc(doc retailDoc) (models.RetailTransaction, error) {
	var c codec
	tx := models.RetailTransaction{
		ID:           doc.ID,
		OwnerID:      doc.OwnerID,
		CustomerName: doc.CustomerName,
		MobileNumber: doc.MobileNumber,
		Channel:      doc.Channel,
		Amount:       c.dec(doc.Amount),
		Time:         doc.Time,
	}
	for _, it := range doc.Items {
		tx.Items = append(tx.Items, models.RetailItem{
			ProductName: it.ProductName,
			Quantity:    c.dec(it.Quantity),
			Amount:      c.dec(it.Amount),
		})
	}
	if c.err != nil {
		return models.RetailTransaction{}, fmt.Errorf("retail transaction %s: %w", doc.ID, c.err)
	}
	return tx, nil
}
