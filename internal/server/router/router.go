package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/server/middleware"
)

// Handlers groups the HTTP adapters mounted by the router.
type Handlers struct {
	Farmers  *handlers.FarmerHandler
	Ledger   *handlers.LedgerHandler
	Reports  *handlers.ReportHandler
	Retail   *handlers.RetailHandler
	Messages *handlers.MessageHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, auth *middleware.Authenticator, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", auth.Authenticate(), middleware.RequireRole(middleware.RoleSubAdmin))

	api.POST("/farmers", h.Farmers.Create)
	api.GET("/farmers", h.Farmers.List)
	api.GET("/farmers/:farmerId", h.Farmers.Get)
	api.PUT("/farmers/:farmerId", h.Farmers.Update)
	api.DELETE("/farmers/:farmerId", h.Farmers.Delete)
	api.GET("/farmers/:farmerId/export", h.Farmers.ExportDetails)
	api.GET("/farmers/:farmerId/workbook", h.Farmers.ExportWorkbook)

	api.POST("/farmers/:farmerId/transactions", h.Ledger.RecordMilk)
	api.PUT("/farmers/:farmerId/transactions/:transactionId", h.Ledger.ReviseMilk)
	api.DELETE("/farmers/:farmerId/transactions/:transactionId", h.Ledger.DeleteMilk)
	api.GET("/transactions/today", h.Ledger.TodayMilk)

	api.POST("/farmers/:farmerId/loans", h.Ledger.CreateLoan)
	api.PUT("/farmers/:farmerId/loans/:loanId", h.Ledger.UpdateLoan)
	api.DELETE("/farmers/:farmerId/loans/:loanId", h.Ledger.DeleteLoan)
	api.POST("/farmers/:farmerId/loans/:loanId/deduct", h.Ledger.DeductLoan)
	api.GET("/loans", h.Ledger.ListLoans)
	api.GET("/loans/report", h.Ledger.LoanReport)

	api.GET("/farmers/:farmerId/statement", h.Reports.Statement)
	api.GET("/farmers/:farmerId/statement/ten-day", h.Reports.TenDayStatement)
	api.GET("/statements", h.Reports.AllStatements)

	api.POST("/retail", h.Retail.Create)
	api.GET("/retail/today", h.Retail.Today)
	api.PUT("/retail/:id", h.Retail.Update)
	api.DELETE("/retail/:id", h.Retail.Delete)
	api.GET("/retail/report/:period", h.Retail.Report)
	api.GET("/retail/customers/:mobile", h.Retail.Customer)

	api.POST("/messages", h.Messages.SendMessage)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}
