package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the client invoice raised for a completed trip
type Invoice struct {
	ID                string          `json:"id"`
	TripID            string          `json:"trip_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	DueDate           time.Time       `json:"due_date"`
	ClientReference   string          `json:"client_reference,omitempty"`
	Currency          string          `json:"currency"`
	BaseAmount        decimal.Decimal `json:"base_amount"`
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
	Discount          decimal.Decimal `json:"discount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ValidationNotes   string          `json:"validation_notes,omitempty"`
	ProofOfDelivery   []string        `json:"proof_of_delivery,omitempty"`
	SignedInvoice     []string        `json:"signed_invoice,omitempty"`
	FinalArrival      *time.Time      `json:"final_arrival,omitempty"`
	FinalOffload      *time.Time      `json:"final_offload,omitempty"`
	FinalDeparture    *time.Time      `json:"final_departure,omitempty"`
	PaymentStatus     string          `json:"payment_status"`
	PaymentDate       *time.Time      `json:"payment_date,omitempty"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	PaymentReference  string          `json:"payment_reference,omitempty"`
	FollowUps         []*FollowUp     `json:"follow_ups,omitempty"`
	SubmittedBy       string          `json:"submitted_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsPaid reports whether payment has been recorded
func (i *Invoice) IsPaid() bool {
	return i.PaymentStatus == PaymentStatusPaid
}

// FollowUp is a reminder or escalation sent for an unpaid invoice
type FollowUp struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Type      string    `json:"type"`
	Note      string    `json:"note,omitempty"`
	SentBy    string    `json:"sent_by"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentAging describes how long an invoice has been outstanding
type PaymentAging struct {
	DaysSinceInvoice int  `json:"days_since_invoice"`
	DaysTillDue      int  `json:"days_till_due"`
	IsOverdue        bool `json:"is_overdue"`
}
