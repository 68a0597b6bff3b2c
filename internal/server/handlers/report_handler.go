package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/render/pdf"
	"github.com/mamadbah2/dairy/internal/server/middleware"
	"github.com/mamadbah2/dairy/internal/service/reporting"
)

const queryDateLayout = "2006-01-02"

// ReportHandler serves farmer statements.
type ReportHandler struct {
	svc    *reporting.Service
	logger *zap.Logger
}

// NewReportHandler constructs the statement HTTP adapter.
func NewReportHandler(svc *reporting.Service, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, logger: logger}
}

// Statement returns the statement of a farmer. ?from and ?to (inclusive,
// YYYY-MM-DD) narrow the window; ?format=pdf downloads it.
func (h *ReportHandler) Statement(c *gin.Context) {
	id, err := farmerIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	w, err := h.window(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	st, err := h.svc.Statement(c.Request.Context(), middleware.OwnerID(c), id, w)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.write(c, fmt.Sprintf("statement-%d.pdf", id), st)
}

// TenDayStatement returns the statement of the window starting on ?day
// (1, 11 or 21) of the current month.
func (h *ReportHandler) TenDayStatement(c *gin.Context) {
	id, err := farmerIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	day, err := strconv.Atoi(c.Query("day"))
	if err != nil {
		respondError(c, h.logger, models.Invalid("day", "must be 1, 11 or 21"))
		return
	}

	st, err := h.svc.TenDayStatement(c.Request.Context(), middleware.OwnerID(c), id, day)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.write(c, fmt.Sprintf("statement-%d-day-%d.pdf", id, day), st)
}

// AllStatements downloads one statement page per farmer of the owner.
func (h *ReportHandler) AllStatements(c *gin.Context) {
	sts, err := h.svc.AllStatements(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := pdf.Statements(&buf, "All Farmers Statement", sts); err != nil {
		respondError(c, h.logger, err)
		return
	}
	sendFile(c, pdf.ContentType, "all-farmers.pdf", &buf)
}

func (h *ReportHandler) write(c *gin.Context, filename string, st reporting.Statement) {
	if c.Query("format") != "pdf" {
		respondData(c, http.StatusOK, "statement built", st)
		return
	}

	var buf bytes.Buffer
	if err := pdf.Statement(&buf, st); err != nil {
		respondError(c, h.logger, err)
		return
	}
	sendFile(c, pdf.ContentType, filename, &buf)
}

func (h *ReportHandler) window(c *gin.Context) (reporting.Window, error) {
	var w reporting.Window
	loc := h.svc.Location()
	if v := c.Query("from"); v != "" {
		from, err := time.ParseInLocation(queryDateLayout, v, loc)
		if err != nil {
			return w, models.Invalid("from", "must be a YYYY-MM-DD date")
		}
		w.From = from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.ParseInLocation(queryDateLayout, v, loc)
		if err != nil {
			return w, models.Invalid("to", "must be a YYYY-MM-DD date")
		}
		w.To = to.AddDate(0, 0, 1)
	}
	if !w.From.IsZero() && !w.To.IsZero() && !w.From.Before(w.To) {
		return w, models.Invalid("to", "must not be before from")
	}
	return w, nil
}
