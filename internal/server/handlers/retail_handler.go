package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/render/xlsx"
	"github.com/mamadbah2/dairy/internal/server/middleware"
	"github.com/mamadbah2/dairy/internal/service/retail"
)

type retailRequest struct {
	CustomerName string              `json:"customerName"`
	MobileNumber string              `json:"mobileNumber"`
	Channel      string              `json:"channel"`
	Items        []models.RetailItem `json:"items"`
	Time         time.Time           `json:"time"`
}

func (r retailRequest) input() retail.Input {
	return retail.Input{
		CustomerName: r.CustomerName,
		MobileNumber: r.MobileNumber,
		Channel:      r.Channel,
		Items:        r.Items,
		Time:         r.Time,
	}
}

// RetailHandler serves counter and online sales.
type RetailHandler struct {
	svc    *retail.Service
	logger *zap.Logger
}

// NewRetailHandler constructs the retail HTTP adapter.
func NewRetailHandler(svc *retail.Service, logger *zap.Logger) *RetailHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetailHandler{svc: svc, logger: logger}
}

func (h *RetailHandler) Create(c *gin.Context) {
	var req retailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	tx, err := h.svc.Save(c.Request.Context(), middleware.OwnerID(c), req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusCreated, "retail transaction saved", tx)
}

func (h *RetailHandler) Today(c *gin.Context) {
	list, err := h.svc.ListToday(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "today's retail transactions", list)
}

func (h *RetailHandler) Update(c *gin.Context) {
	var req retailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	tx, err := h.svc.Update(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "retail transaction updated", tx)
}

func (h *RetailHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.OwnerID(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "retail transaction deleted", nil)
}

func (h *RetailHandler) Customer(c *gin.Context) {
	list, err := h.svc.CustomerTransactions(c.Request.Context(), middleware.OwnerID(c), c.Param("mobile"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "customer transactions", list)
}

// Report returns the sales of the :period containing now; ?format=xlsx
// downloads them as a workbook.
func (h *RetailHandler) Report(c *gin.Context) {
	period := c.Param("period")
	r, err := h.svc.Report(c.Request.Context(), middleware.OwnerID(c), period)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if c.Query("format") != "xlsx" {
		respondData(c, http.StatusOK, "retail report", r)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.RetailReport(&buf, r); err != nil {
		respondError(c, h.logger, err)
		return
	}
	sendFile(c, xlsx.ContentType, fmt.Sprintf("retail-%s-%s.xlsx", period, r.From.Format(queryDateLayout)), &buf)
}
