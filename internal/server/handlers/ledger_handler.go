package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/ledger"
	"github.com/mamadbah2/dairy/internal/render/xlsx"
	"github.com/mamadbah2/dairy/internal/server/middleware"
	"github.com/mamadbah2/dairy/internal/service/milk"
	"github.com/mamadbah2/dairy/internal/service/reporting"
)

type milkRequest struct {
	TransactionDate   time.Time        `json:"transactionDate"`
	TransactionTime   string           `json:"transactionTime"`
	MilkType          string           `json:"milkType"`
	MilkQuantity      decimal.Decimal  `json:"milkQuantity"`
	Fat               *decimal.Decimal `json:"fatPercentage"`
	SNF               *decimal.Decimal `json:"snfPercentage"`
	PricePerLitre     decimal.Decimal  `json:"pricePerLitre"`
	TransactionAmount *decimal.Decimal `json:"transactionAmount"`
}

func (r milkRequest) input() ledger.MilkInput {
	in := ledger.MilkInput{
		TransactionDate:   r.TransactionDate,
		TransactionTime:   r.TransactionTime,
		MilkType:          r.MilkType,
		MilkQuantity:      r.MilkQuantity,
		PricePerLitre:     r.PricePerLitre,
		TransactionAmount: r.TransactionAmount,
	}
	if r.Fat != nil {
		in.Fat = *r.Fat
	}
	if r.SNF != nil {
		in.SNF = *r.SNF
	}
	return in
}

func (r milkRequest) edit() ledger.MilkEdit {
	return ledger.MilkEdit{
		TransactionDate: r.TransactionDate,
		TransactionTime: r.TransactionTime,
		MilkType:        r.MilkType,
		MilkQuantity:    r.MilkQuantity,
		PricePerLitre:   r.PricePerLitre,
		Fat:             r.Fat,
		SNF:             r.SNF,
	}
}

type loanRequest struct {
	LoanAmount decimal.Decimal `json:"loanAmount"`
	LoanDate   time.Time       `json:"loanDate"`
}

type deductRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// LedgerHandler serves milk deliveries and loans, the operations that move
// loan balances.
type LedgerHandler struct {
	svc     *milk.Service
	reports *reporting.Service
	logger  *zap.Logger
}

// NewLedgerHandler constructs the ledger HTTP adapter.
func NewLedgerHandler(svc *milk.Service, reports *reporting.Service, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{svc: svc, reports: reports, logger: logger}
}

// farmerOp runs fn for the :farmerId of the request and writes the updated farmer.
func (h *LedgerHandler) farmerOp(c *gin.Context, status int, message string, fn func(owner string, id int64) (*models.Farmer, error)) {
	id, err := farmerIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	f, err := fn(middleware.OwnerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, status, message, f)
}

func (h *LedgerHandler) RecordMilk(c *gin.Context) {
	var req milkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.farmerOp(c, http.StatusCreated, "milk transaction recorded", func(owner string, id int64) (*models.Farmer, error) {
		return h.svc.RecordMilkTransaction(c.Request.Context(), owner, id, req.input())
	})
}

func (h *LedgerHandler) ReviseMilk(c *gin.Context) {
	var req milkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.farmerOp(c, http.StatusOK, "milk transaction updated", func(owner string, id int64) (*models.Farmer, error) {
		return h.svc.ReviseMilkTransaction(c.Request.Context(), owner, id, c.Param("transactionId"), req.edit())
	})
}

func (h *LedgerHandler) DeleteMilk(c *gin.Context) {
	h.farmerOp(c, http.StatusOK, "milk transaction deleted", func(owner string, id int64) (*models.Farmer, error) {
		return h.svc.DeleteMilkTransaction(c.Request.Context(), owner, id, c.Param("transactionId"))
	})
}

// TodayMilk lists the deliveries recorded today for every farmer of the owner.
func (h *LedgerHandler) TodayMilk(c *gin.Context) {
	entries, err := h.reports.TodayEntries(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "today's milk transactions", entries)
}

func (h *LedgerHandler) CreateLoan(c *gin.Context) {
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.farmerOp(c, http.StatusCreated, "loan created", func(owner string, id int64) (*models.Farmer, error) {
		return h.svc.CreateLoan(c.Request.Context(), owner, id, req.LoanAmount, req.LoanDate)
	})
}

func (h *LedgerHandler) UpdateLoan(c *gin.Context) {
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.farmerOp(c, http.StatusOK, "loan updated", func(owner string, id int64) (*models.Farmer, error) {
		return h.svc.UpdateLoan(c.Request.Context(), owner, id, c.Param("loanId"), req.LoanAmount, req.LoanDate)
	})
}

func (h *LedgerHandler) DeleteLoan(c *gin.Context) {
	h.farmerOp(c, http.StatusOK, "loan deleted", func(owner string, id int64) (*models.Farmer, error) {
		return h.svc.DeleteLoan(c.Request.Context(), owner, id, c.Param("loanId"))
	})
}

func (h *LedgerHandler) DeductLoan(c *gin.Context) {
	var req deductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.farmerOp(c, http.StatusOK, "loan repayment recorded", func(owner string, id int64) (*models.Farmer, error) {
		return h.svc.DeductLoan(c.Request.Context(), owner, id, c.Param("loanId"), req.Amount)
	})
}

// ListLoans lists the owner's loans; ?active=true skips closed ones.
func (h *LedgerHandler) ListLoans(c *gin.Context) {
	active, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	loans, err := h.svc.ListLoans(c.Request.Context(), middleware.OwnerID(c), active)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "loans fetched", loans)
}

// LoanReport downloads every loan of the owner as a workbook.
func (h *LedgerHandler) LoanReport(c *gin.Context) {
	list, err := h.reports.Farmers(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.LoanReport(&buf, list); err != nil {
		respondError(c, h.logger, err)
		return
	}
	sendFile(c, xlsx.ContentType, "loan-report.xlsx", &buf)
}
