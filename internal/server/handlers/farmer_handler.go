package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/render/xlsx"
	"github.com/mamadbah2/dairy/internal/server/middleware"
	"github.com/mamadbah2/dairy/internal/service/farmers"
)

type farmerRequest struct {
	FarmerID     int64     `json:"farmerId"`
	Name         string    `json:"farmerName"`
	MobileNumber string    `json:"mobileNumber"`
	Address      string    `json:"address"`
	MilkType     string    `json:"milkType"`
	Gender       string    `json:"gender"`
	JoiningDate  time.Time `json:"joiningDate"`
}

func (r farmerRequest) profile() farmers.Profile {
	return farmers.Profile{
		Name:         r.Name,
		MobileNumber: r.MobileNumber,
		Address:      r.Address,
		MilkType:     r.MilkType,
		Gender:       r.Gender,
		JoiningDate:  r.JoiningDate,
	}
}

// FarmerHandler serves the farmer registry.
type FarmerHandler struct {
	svc    *farmers.Service
	logger *zap.Logger
}

// NewFarmerHandler constructs the farmer HTTP adapter.
func NewFarmerHandler(svc *farmers.Service, logger *zap.Logger) *FarmerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FarmerHandler{svc: svc, logger: logger}
}

func (h *FarmerHandler) Create(c *gin.Context) {
	var req farmerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	f, err := h.svc.AddFarmer(c.Request.Context(), middleware.OwnerID(c), req.FarmerID, req.profile())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusCreated, "farmer added", f)
}

func (h *FarmerHandler) List(c *gin.Context) {
	list, err := h.svc.ListFarmers(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "farmers fetched", list)
}

func (h *FarmerHandler) Get(c *gin.Context) {
	id, err := farmerIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	f, err := h.svc.GetFarmer(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "farmer fetched", f)
}

func (h *FarmerHandler) Update(c *gin.Context) {
	id, err := farmerIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req farmerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	f, err := h.svc.UpdateProfile(c.Request.Context(), middleware.OwnerID(c), id, req.profile())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "farmer updated", f)
}

func (h *FarmerHandler) Delete(c *gin.Context) {
	id, err := farmerIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.svc.DeleteFarmer(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, "farmer deleted", nil)
}

// ExportDetails downloads the farmer profile and loan totals as a workbook.
func (h *FarmerHandler) ExportDetails(c *gin.Context) {
	h.export(c, "farmer", xlsx.FarmerDetails)
}

// ExportWorkbook downloads the profile, milk rows and loan rows of a farmer.
func (h *FarmerHandler) ExportWorkbook(c *gin.Context) {
	h.export(c, "farmer-ledger", xlsx.FarmerWorkbook)
}

func (h *FarmerHandler) export(c *gin.Context, prefix string, render func(io.Writer, *models.Farmer) error) {
	id, err := farmerIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	f, err := h.svc.GetFarmer(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, f); err != nil {
		respondError(c, h.logger, err)
		return
	}
	sendFile(c, xlsx.ContentType, fmt.Sprintf("%s-%d.xlsx", prefix, id), &buf)
}
