package port

import (
	"context"

	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// IdentityProvider resolves the caller of a request
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (entity.Actor, error)
}

// PaymentNotice is the message sent when an invoice is chased
type PaymentNotice struct {
	Kind          string
	InvoiceNumber string
	TripID        string
	FleetNumber   string
	ClientName    string
	Amount        string
	Currency      string
	DueDate       string
	DaysOverdue   int
	Note          string
	SentBy        string
}

// Notifier delivers payment follow-ups to the finance team
type Notifier interface {
	NotifyPayment(ctx context.Context, notice PaymentNotice) error
}

// ReportFormat selects the rendered document type
type ReportFormat string

const (
	ReportFormatXLSX ReportFormat = "xlsx"
	ReportFormatPDF  ReportFormat = "pdf"
)

// TripReport is the data rendered into a trip financial report
type TripReport struct {
	Trip    *entity.Trip
	Invoice *entity.Invoice
	Aging   *entity.PaymentAging
}

// ReportRenderer renders a trip report into a document
type ReportRenderer interface {
	Format() ReportFormat
	Render(report *TripReport) ([]byte, error)
}

// Metrics records business events
type Metrics interface {
	WorkflowTransition(from, to string)
	CostFlagged(category string)
	FlagResolved()
	AuditRecorded(kind string)
	InvoiceEvent(event string)
}
