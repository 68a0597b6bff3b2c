package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.Required("milkQuantity"), http.StatusBadRequest},
		{"not found", models.NotFound("farmer", "7"), http.StatusNotFound},
		{"conflict", fmt.Errorf("save: %w", models.ErrConflict), http.StatusConflict},
		{"duplicate", fmt.Errorf("farmer 7: %w", models.ErrDuplicate), http.StatusConflict},
		{"persistence", fmt.Errorf("find: %w: %w", models.ErrPersistence, errors.New("timeout")), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
