package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

func sampleNotice() port.PaymentNotice {
	return port.PaymentNotice{
		Kind:          entity.FollowUpReminder,
		InvoiceNumber: "INV-202603-001",
		TripID:        "trip-1",
		FleetNumber:   "21H",
		ClientName:    "Acme Mining",
		Amount:        "3300.00",
		Currency:      "USD",
		DueDate:       "2026-04-09",
		DaysOverdue:   10,
		Note:          "Second request",
		SentBy:        "Tendai",
	}
}

func TestFormatNotice(t *testing.T) {
	text := FormatNotice(sampleNotice())
	assert.Contains(t, text, "Payment reminder: invoice INV-202603-001")
	assert.Contains(t, text, "Amount: 3300.00 USD")
	assert.Contains(t, text, "(10 days overdue)")
	assert.Contains(t, text, "Note: Second request")

	n := sampleNotice()
	n.Kind = entity.FollowUpEscalation
	n.DaysOverdue = 0
	n.Note = ""
	text = FormatNotice(n)
	assert.Contains(t, text, "Payment escalation")
	assert.NotContains(t, text, "overdue")
	assert.NotContains(t, text, "Note:")
}

func TestNotifier_NotifyPayment(t *testing.T) {
	var captured *larkim.CreateMessageReq
	send := func(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error) {
		captured = req
		return &larkim.CreateMessageResp{CodeError: larkcore.CodeError{Code: 0}}, nil
	}

	n := newNotifier(send, NotifierConfig{ReceiveID: "oc_finance"}, zap.NewNop())
	require.NoError(t, n.NotifyPayment(context.Background(), sampleNotice()))

	require.NotNil(t, captured)
	assert.Equal(t, "oc_finance", *captured.Body.ReceiveId)
	assert.Equal(t, larkim.MsgTypeText, *captured.Body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*captured.Body.Content), &content))
	assert.Contains(t, content["text"], "INV-202603-001")
}

func TestNotifier_Failures(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		send := func(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error) {
			return nil, errors.New("connection reset")
		}
		n := newNotifier(send, NotifierConfig{ReceiveID: "oc_finance"}, zap.NewNop())
		err := n.NotifyPayment(context.Background(), sampleNotice())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("api error code", func(t *testing.T) {
		send := func(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error) {
			return &larkim.CreateMessageResp{CodeError: larkcore.CodeError{Code: 230002, Msg: "bot not in chat"}}, nil
		}
		n := newNotifier(send, NotifierConfig{ReceiveID: "oc_finance"}, zap.NewNop())
		err := n.NotifyPayment(context.Background(), sampleNotice())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bot not in chat")
	})
}
