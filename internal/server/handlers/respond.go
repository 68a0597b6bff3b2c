package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// statusFor maps domain error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, models.ErrPersistence):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)

	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(status, gin.H{"error": verr.Error(), "field": verr.Field, "code": verr.Code})
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": http.StatusText(status)})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

func respondData(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{"message": message, "data": data})
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

// farmerIDParam reads the :farmerId path segment.
func farmerIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("farmerId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.Invalid("farmerId", "must be a positive number")
	}
	return id, nil
}

func sendFile(c *gin.Context, contentType, filename string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
