// Package invoicing raises the client invoice for a completed trip and tracks
// its payment.
package invoicing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/registry"
	"github.com/garyjia/trip-finance/internal/domain/workflow"
	"github.com/garyjia/trip-finance/pkg/utils"
)

// DefaultPaymentTerms is added to the invoice date when no due date is given
const DefaultPaymentTerms = 30 * 24 * time.Hour

const day = 24 * time.Hour

// SubmitRequest carries the invoice fields entered by the operator
type SubmitRequest struct {
	InvoiceNumber     string          `json:"invoice_number" validate:"required"`
	InvoiceDate       time.Time       `json:"invoice_date" validate:"required"`
	DueDate           *time.Time      `json:"due_date"`
	ClientReference   string          `json:"client_reference"`
	AdditionalCharges decimal.Decimal `json:"additional_charges" validate:"gte=0"`
	Discount          decimal.Decimal `json:"discount" validate:"gte=0"`
	ValidationNotes   string          `json:"validation_notes"`
	ProofOfDelivery   []string        `json:"proof_of_delivery"`
	SignedInvoice     []string        `json:"signed_invoice"`
	FinalArrival      *time.Time      `json:"final_arrival"`
	FinalOffload      *time.Time      `json:"final_offload"`
	FinalDeparture    *time.Time      `json:"final_departure"`
}

// Tracker validates invoices against the workflow position of their trip
type Tracker struct {
	engine   *workflow.Engine
	validate *validator.Validate
}

// NewTracker creates a Tracker
func NewTracker(engine *workflow.Engine) *Tracker {
	return &Tracker{engine: engine, validate: utils.NewValidator()}
}

// Submit builds the invoice for the trip in wc. The workflow must be at or past
// the submit-invoice step.
func (t *Tracker) Submit(wc workflow.Context, req SubmitRequest, actor string, now time.Time) (*entity.Invoice, error) {
	trip := wc.Data.Trip
	if trip == nil {
		return nil, apperr.Invalid("trip", apperr.KindRequired, "trip is required")
	}
	if !t.engine.IsAtOrPast(wc, registry.StepSubmitInvoice) {
		return nil, &apperr.GatingError{
			Step:      string(t.engine.CurrentStep(wc).ID),
			Condition: "workflow has not reached " + string(registry.StepSubmitInvoice),
		}
	}
	if wc.Data.Invoice != nil {
		return nil, apperr.Conflict("trip %s already has invoice %s", trip.ID, wc.Data.Invoice.InvoiceNumber)
	}

	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	verr := apperr.NewValidationError()
	verr.Collect(t.validate.Struct(req))

	due := req.InvoiceDate.Add(DefaultPaymentTerms)
	if req.DueDate != nil {
		due = *req.DueDate
	}
	if !req.InvoiceDate.IsZero() && !due.After(req.InvoiceDate) {
		verr.Add("due_date", apperr.KindOutOfOrder, "Due date must be after invoice date")
	}

	validateTimeline(verr, req)

	pod := nonEmpty(req.ProofOfDelivery)
	if len(pod) == 0 {
		pod = nonEmpty(trip.ProofOfDelivery)
	}
	if len(pod) == 0 {
		verr.Add("proof_of_delivery", apperr.KindRequired, "Proof of delivery document is required")
	}

	total := trip.BaseRevenue.Add(req.AdditionalCharges).Sub(req.Discount)
	if total.IsNegative() && !verr.Has("discount") {
		verr.Add("discount", apperr.KindInvalid, "Discount exceeds the invoice amount")
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return &entity.Invoice{
		ID:                uuid.NewString(),
		TripID:            trip.ID,
		InvoiceNumber:     req.InvoiceNumber,
		InvoiceDate:       req.InvoiceDate,
		DueDate:           due,
		ClientReference:   strings.TrimSpace(req.ClientReference),
		Currency:          trip.RevenueCurrency,
		BaseAmount:        trip.BaseRevenue,
		AdditionalCharges: req.AdditionalCharges,
		Discount:          req.Discount,
		TotalAmount:       total,
		ValidationNotes:   req.ValidationNotes,
		ProofOfDelivery:   pod,
		SignedInvoice:     nonEmpty(req.SignedInvoice),
		FinalArrival:      req.FinalArrival,
		FinalOffload:      req.FinalOffload,
		FinalDeparture:    req.FinalDeparture,
		PaymentStatus:     entity.PaymentStatusUnpaid,
		SubmittedBy:       actor,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// validateTimeline requires arrival <= offload <= departure for the timestamps given
func validateTimeline(verr *apperr.ValidationError, req SubmitRequest) {
	if req.FinalArrival != nil && req.FinalOffload != nil && req.FinalOffload.Before(*req.FinalArrival) {
		verr.Add("final_offload", apperr.KindOutOfOrder, "Offload cannot be before arrival")
	}
	if req.FinalOffload != nil && req.FinalDeparture != nil && req.FinalDeparture.Before(*req.FinalOffload) {
		verr.Add("final_departure", apperr.KindOutOfOrder, "Departure cannot be before offload")
	}
	if req.FinalArrival != nil && req.FinalDeparture != nil && req.FinalDeparture.Before(*req.FinalArrival) {
		verr.Add("final_departure", apperr.KindOutOfOrder, "Departure cannot be before arrival")
	}
}

// InvoiceNumberPrefix is the INV-YYYYMM- prefix shared by a month's
// auto-assigned numbers. The month is taken in UTC.
func InvoiceNumberPrefix(invoiceDate time.Time) string {
	return "INV-" + invoiceDate.UTC().Format("200601") + "-"
}

// InvoiceNumber formats the auto-assigned number for the seq-th invoice of a month
func InvoiceNumber(invoiceDate time.Time, seq int) string {
	return fmt.Sprintf("%s%03d", InvoiceNumberPrefix(invoiceDate), seq)
}

// TrackPayment ages the invoice at now. Paid invoices are aged at their payment date.
func TrackPayment(inv *entity.Invoice, now time.Time) entity.PaymentAging {
	at := now
	if inv.IsPaid() && inv.PaymentDate != nil {
		at = *inv.PaymentDate
	}
	tillDue := floorDays(inv.DueDate.Sub(at))
	return entity.PaymentAging{
		DaysSinceInvoice: floorDays(at.Sub(inv.InvoiceDate)),
		DaysTillDue:      tillDue,
		IsOverdue:        tillDue < 0,
	}
}

// MarkPaid records payment. Both the date and method are required.
func MarkPaid(inv *entity.Invoice, paymentDate *time.Time, method, reference string, now time.Time) error {
	verr := apperr.NewValidationError()
	if paymentDate == nil || paymentDate.IsZero() {
		verr.Add("payment_date", apperr.KindRequired, "Payment date is required")
	}
	if strings.TrimSpace(method) == "" {
		verr.Add("payment_method", apperr.KindRequired, "Payment method is required")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}
	if inv.IsPaid() {
		return apperr.Conflict("invoice %s is already paid", inv.InvoiceNumber)
	}

	inv.PaymentStatus = entity.PaymentStatusPaid
	inv.PaymentDate = paymentDate
	inv.PaymentMethod = strings.TrimSpace(method)
	inv.PaymentReference = strings.TrimSpace(reference)
	inv.UpdatedAt = now
	return nil
}

// Reminder builds a payment reminder follow-up
func Reminder(inv *entity.Invoice, note, actor string, now time.Time) (*entity.FollowUp, error) {
	return followUp(inv, entity.FollowUpReminder, note, actor, now)
}

// Escalation builds an escalation follow-up. The second value reports whether
// the invoice was overdue; escalating early is allowed.
func Escalation(inv *entity.Invoice, note, actor string, now time.Time) (*entity.FollowUp, bool, error) {
	f, err := followUp(inv, entity.FollowUpEscalation, note, actor, now)
	if err != nil {
		return nil, false, err
	}
	return f, TrackPayment(inv, now).IsOverdue, nil
}

func followUp(inv *entity.Invoice, kind, note, actor string, now time.Time) (*entity.FollowUp, error) {
	if inv == nil {
		return nil, apperr.NotFound("invoice", "")
	}
	return &entity.FollowUp{
		ID:        uuid.NewString(),
		InvoiceID: inv.ID,
		Type:      kind,
		Note:      strings.TrimSpace(note),
		SentBy:    actor,
		CreatedAt: now,
	}, nil
}

func floorDays(d time.Duration) int {
	return int(math.Floor(float64(d) / float64(day)))
}

func nonEmpty(refs []string) []string {
	var out []string
	for _, r := range refs {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
