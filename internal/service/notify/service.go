// Package notify sends operator and farmer notifications over WhatsApp.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
	client "github.com/mamadbah2/dairy/pkg/clients/whatsapp"
)

// ErrDisabled is returned by SendOutbound when no channel is configured.
var ErrDisabled = errors.New("notifications are not configured")

// Notifier describes the messages the rest of the application emits.
type Notifier interface {
	// LoanCleared tells a farmer one of their loans is fully repaid.
	LoanCleared(ctx context.Context, farmer *models.Farmer, loan models.Loan) error
	// NotifyManager sends a free-form message to the configured manager number.
	NotifyManager(ctx context.Context, message string) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// WhatsAppNotifier is the production implementation backed by WhatsApp Cloud API.
type WhatsAppNotifier struct {
	cfg    config.WhatsAppConfig
	client client.Client
	logger *zap.Logger
}

// NewWhatsAppNotifier wires a new notifier instance.
func NewWhatsAppNotifier(cfg config.WhatsAppConfig, client client.Client, logger *zap.Logger) *WhatsAppNotifier {
	svc := &WhatsAppNotifier{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

func (s *WhatsAppNotifier) LoanCleared(ctx context.Context, farmer *models.Farmer, loan models.Loan) error {
	if farmer.MobileNumber == "" {
		s.logger.Debug("farmer has no mobile number, skipping loan cleared message",
			zap.Int64("farmer_id", farmer.FarmerID))
		return nil
	}

	body := fmt.Sprintf("Dear %s, your loan of Rs %s taken on %s is fully repaid. Outstanding balance: Rs %s.",
		farmer.Name,
		loan.OriginalAmount.StringFixed(2),
		loan.LoanDate.Format("02 Jan 2006"),
		farmer.TotalLoanRemaining.StringFixed(2),
	)
	return s.send(ctx, farmer.MobileNumber, body, false)
}

func (s *WhatsAppNotifier) NotifyManager(ctx context.Context, message string) error {
	if s.cfg.ManagerNumber == "" {
		s.logger.Debug("no manager number configured, dropping message")
		return nil
	}
	return s.send(ctx, s.cfg.ManagerNumber, message, false)
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *WhatsAppNotifier) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return s.send(ctx, req.To, req.Message, req.PreviewURL)
}

func (s *WhatsAppNotifier) send(ctx context.Context, to, body string, preview bool) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         to,
		Body:       body,
		PreviewURL: preview,
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", to, err)
	}

	if len(resp.Messages) > 0 {
		s.logger.Info("whatsapp message sent", zap.String("message_id", resp.Messages[0].ID))
	}
	return nil
}

// Nop drops every notification. It is used when WhatsApp is not configured.
type Nop struct{}

func (Nop) LoanCleared(context.Context, *models.Farmer, models.Loan) error { return nil }

func (Nop) NotifyManager(context.Context, string) error { return nil }

func (Nop) SendOutbound(context.Context, models.OutboundMessageRequest) error { return ErrDisabled }
