package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/notify"
)

// MessageHandler sends manual WhatsApp messages on behalf of an operator.
type MessageHandler struct {
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewMessageHandler constructs the outbound message HTTP adapter.
func NewMessageHandler(notifier notify.Notifier, logger *zap.Logger) *MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageHandler{notifier: notifier, logger: logger}
}

// SendMessage forwards an outbound message to the configured channel.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid outbound payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.notifier.SendOutbound(c.Request.Context(), req); err != nil {
		if errors.Is(err, notify.ErrDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}

	c.Status(http.StatusAccepted)
}
