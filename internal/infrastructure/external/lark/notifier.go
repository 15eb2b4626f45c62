package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// NotifierConfig selects where payment follow-ups are posted
type NotifierConfig struct {
	ReceiveIDType string
	ReceiveID     string
	Timeout       time.Duration
}

// Notifier posts payment reminders and escalations to a Lark chat
type Notifier struct {
	send   createMessageFunc
	config NotifierConfig
	logger *zap.Logger
}

// NewNotifier creates a Notifier backed by the Lark IM API
func NewNotifier(client *lark.Client, config NotifierConfig, logger *zap.Logger) *Notifier {
	return newNotifier(imSender(client), config, logger)
}

func newNotifier(send createMessageFunc, config NotifierConfig, logger *zap.Logger) *Notifier {
	if config.ReceiveIDType == "" {
		config.ReceiveIDType = larkim.ReceiveIdTypeChatId
	}
	return &Notifier{
		send:   send,
		config: config,
		logger: logger,
	}
}

// NotifyPayment sends notice as a text message
func (n *Notifier) NotifyPayment(ctx context.Context, notice port.PaymentNotice) error {
	content, err := json.Marshal(map[string]string{"text": FormatNotice(notice)})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if n.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.config.Timeout)
		defer cancel()
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(n.config.ReceiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.config.ReceiveID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.send(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send payment notice",
			zap.String("invoice_number", notice.InvoiceNumber),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		n.logger.Error("Lark API returned failure",
			zap.String("invoice_number", notice.InvoiceNumber),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	n.logger.Info("Payment notice sent",
		zap.String("kind", notice.Kind),
		zap.String("invoice_number", notice.InvoiceNumber),
		zap.String("message_id", messageID))
	return nil
}

// FormatNotice renders the message body
func FormatNotice(notice port.PaymentNotice) string {
	var b strings.Builder

	title := "Payment reminder"
	if notice.Kind == entity.FollowUpEscalation {
		title = "Payment escalation"
	}
	fmt.Fprintf(&b, "%s: invoice %s\n", title, notice.InvoiceNumber)
	fmt.Fprintf(&b, "Client: %s\n", notice.ClientName)
	fmt.Fprintf(&b, "Trip: %s (fleet %s)\n", notice.TripID, notice.FleetNumber)
	fmt.Fprintf(&b, "Amount: %s %s\n", notice.Amount, notice.Currency)
	if notice.DaysOverdue > 0 {
		fmt.Fprintf(&b, "Due: %s (%d days overdue)\n", notice.DueDate, notice.DaysOverdue)
	} else {
		fmt.Fprintf(&b, "Due: %s\n", notice.DueDate)
	}
	if notice.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", notice.Note)
	}
	fmt.Fprintf(&b, "Sent by: %s", notice.SentBy)
	return b.String()
}

// Verify interface compliance
var _ port.Notifier = (*Notifier)(nil)
