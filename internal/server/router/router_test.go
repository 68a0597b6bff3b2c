package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/ledger"
	"github.com/mamadbah2/dairy/internal/render/pdf"
	"github.com/mamadbah2/dairy/internal/render/xlsx"
	"github.com/mamadbah2/dairy/internal/repository/memory"
	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/server/middleware"
	"github.com/mamadbah2/dairy/internal/service/farmers"
	"github.com/mamadbah2/dairy/internal/service/milk"
	"github.com/mamadbah2/dairy/internal/service/notify"
	"github.com/mamadbah2/dairy/internal/service/reporting"
	"github.com/mamadbah2/dairy/internal/service/retail"
)

type harness struct {
	t      *testing.T
	engine *gin.Engine
	auth   *middleware.Authenticator
}

func newHarness(t *testing.T) *harness {
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	farmerStore := memory.NewFarmerStore()
	notifier := notify.Nop{}
	reports := reporting.NewService(farmerStore, time.UTC, logger)

	h := Handlers{
		Farmers:  handlers.NewFarmerHandler(farmers.NewService(farmerStore, 3, logger), logger),
		Ledger:   handlers.NewLedgerHandler(milk.NewService(farmerStore, ledger.NewEngine(), notifier, 3, logger), reports, logger),
		Reports:  handlers.NewReportHandler(reports, logger),
		Retail:   handlers.NewRetailHandler(retail.NewService(memory.NewRetailStore(), time.UTC, logger), logger),
		Messages: handlers.NewMessageHandler(notifier, logger),
	}
	auth := middleware.NewAuthenticator(config.AuthConfig{JWTSecret: "test-secret", Issuer: "dairy"}, logger)
	return &harness{t: t, engine: New(h, auth, logger), auth: auth}
}

func (h *harness) do(owner, method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		token, err := h.auth.Issue(owner, middleware.RoleSubAdmin, time.Hour)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func decodeFarmer(t *testing.T, w *httptest.ResponseRecorder) models.Farmer {
	t.Helper()
	var resp struct {
		Data models.Farmer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

var newFarmer = map[string]any{
	"farmerId":     1,
	"farmerName":   "Sunita",
	"mobileNumber": "9000000001",
	"address":      "Ward 1",
	"milkType":     "cow",
	"gender":       "female",
	"joiningDate":  "2024-01-01T00:00:00Z",
}

func TestHealthz(t *testing.T) {
	w := newHarness(t).do("", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequiresToken(t *testing.T) {
	w := newHarness(t).do("", http.MethodGet, "/api/farmers", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLedgerFlow(t *testing.T) {
	h := newHarness(t)

	w := h.do("owner", http.MethodPost, "/api/farmers", newFarmer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusConflict, h.do("owner", http.MethodPost, "/api/farmers", newFarmer).Code)

	w = h.do("owner", http.MethodPost, "/api/farmers/1/loans", map[string]any{"loanAmount": "1000", "loanDate": "2025-03-01T00:00:00Z"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "1000", decodeFarmer(t, w).TotalLoanRemaining.String())

	w = h.do("owner", http.MethodPost, "/api/farmers/1/transactions", map[string]any{
		"transactionDate": "2025-03-02T06:00:00Z",
		"transactionTime": "morning",
		"milkType":        "cow",
		"milkQuantity":    10,
		"pricePerLitre":   30,
		"fatPercentage":   4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	f := decodeFarmer(t, w)
	assert.Equal(t, "700", f.TotalLoanRemaining.String())
	assert.Equal(t, "300", f.TotalLoanPaidBack.String())
	require.Len(t, f.Transactions, 1)

	w = h.do("owner", http.MethodPost, "/api/farmers/1/transactions", map[string]any{
		"transactionDate": "2025-03-02T06:00:00Z",
		"milkQuantity":    -1,
		"pricePerLitre":   30,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), models.CodeAmountInvalid)

	w = h.do("owner", http.MethodPut, "/api/farmers/1/transactions/"+f.Transactions[0].ID, map[string]any{
		"transactionDate": "2025-03-02T06:00:00Z",
		"milkQuantity":    5,
		"pricePerLitre":   20,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "900", decodeFarmer(t, w).TotalLoanRemaining.String())

	w = h.do("owner", http.MethodGet, "/api/loans?active=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var loans struct {
		Data []milk.LoanView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loans))
	require.Len(t, loans.Data, 1)

	w = h.do("owner", http.MethodPost, "/api/farmers/1/loans/"+loans.Data[0].Loan.ID+"/deduct", map[string]any{"amount": "900"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeFarmer(t, w).TotalLoanRemaining.IsZero())

	// another owner cannot see the farmer
	assert.Equal(t, http.StatusNotFound, h.do("other", http.MethodGet, "/api/farmers/1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do("owner", http.MethodGet, "/api/farmers/abc", nil).Code)
}

func TestReportsAndExports(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do("owner", http.MethodPost, "/api/farmers", newFarmer).Code)
	w := h.do("owner", http.MethodPost, "/api/farmers/1/transactions", map[string]any{
		"transactionDate": "2025-03-02T18:00:00Z",
		"milkType":        "buffalo",
		"milkQuantity":    4,
		"pricePerLitre":   50,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do("owner", http.MethodGet, "/api/farmers/1/statement?from=2025-03-01&to=2025-03-02", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st struct {
		Data reporting.Statement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.Len(t, st.Data.Groups, 1)
	assert.Equal(t, "200", st.Data.TotalAmount.String())

	w = h.do("owner", http.MethodGet, "/api/farmers/1/statement?format=pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdf.ContentType, w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, h.do("owner", http.MethodGet, "/api/farmers/1/statement?from=yesterday", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do("owner", http.MethodGet, "/api/farmers/1/statement/ten-day?day=5", nil).Code)
	assert.Equal(t, http.StatusOK, h.do("owner", http.MethodGet, "/api/farmers/1/statement/ten-day?day=11", nil).Code)

	w = h.do("owner", http.MethodGet, "/api/statements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdf.ContentType, w.Header().Get("Content-Type"))

	for _, path := range []string{"/api/farmers/1/export", "/api/farmers/1/workbook", "/api/loans/report"} {
		w = h.do("owner", http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, xlsx.ContentType, w.Header().Get("Content-Type"), path)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment", path)
	}

	w = h.do("owner", http.MethodGet, "/api/transactions/today", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRetailRoutes(t *testing.T) {
	h := newHarness(t)

	w := h.do("owner", http.MethodPost, "/api/retail", map[string]any{
		"customerName": "Kiran",
		"mobileNumber": "900",
		"items":        []map[string]any{{"productName": "paneer", "quantity": 1, "pamount": 120}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do("owner", http.MethodGet, "/api/retail/report/daily", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"120"`)

	w = h.do("owner", http.MethodGet, "/api/retail/report/weekly?format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsx.ContentType, w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, h.do("owner", http.MethodGet, "/api/retail/report/hourly", nil).Code)
	assert.Equal(t, http.StatusOK, h.do("owner", http.MethodGet, "/api/retail/customers/900", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do("owner", http.MethodDelete, "/api/retail/missing", nil).Code)
}

func TestSendMessageWithoutChannel(t *testing.T) {
	h := newHarness(t)
	w := h.do("owner", http.MethodPost, "/api/messages", map[string]any{"to": "9000000001", "message": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = h.do("owner", http.MethodPost, "/api/messages", map[string]any{"to": "9000000001"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
