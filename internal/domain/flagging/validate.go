package flagging

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// costFields mirrors the mandatory cost entry fields for struct validation
type costFields struct {
	Category        string          `json:"category" validate:"required"`
	SubCategory     string          `json:"sub_category" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency        string          `json:"currency" validate:"required,len=3,uppercase"`
	ReferenceNumber string          `json:"reference_number" validate:"required"`
	Date            *time.Time      `json:"date" validate:"required"`
}

// Validate checks a cost entry before flag evaluation.
// On first save an entry must carry an attachment or a missing-document reason;
// in edit mode that check is skipped.
func (e *Engine) Validate(entry *entity.CostEntry, intent Intent) error {
	verr := apperr.NewValidationError()

	verr.Collect(e.validate.Struct(costFields{
		Category:        strings.TrimSpace(entry.Category),
		SubCategory:     strings.TrimSpace(entry.SubCategory),
		Amount:          entry.Amount,
		Currency:        entry.Currency,
		ReferenceNumber: strings.TrimSpace(entry.ReferenceNumber),
		Date:            entry.Date,
	}))

	if entry.Category == entity.CategorySystemCosts && !entry.IsSystemGenerated {
		verr.Add("category", apperr.KindReserved, "System Costs are generated automatically and cannot be entered manually")
	}

	if intent.ManualFlag && strings.TrimSpace(intent.ManualReason) == "" {
		verr.Add("flag_reason", apperr.KindRequired, "Flag reason is required when manually flagging")
	}

	if !intent.Editing && !entry.IsSystemGenerated && !entry.HasAttachments() &&
		strings.TrimSpace(entry.NoDocumentReason) == "" {
		verr.Add("documentation", apperr.KindMissingDocumentation,
			"Attach a receipt or explain why no document is available")
	}

	return verr.OrNil()
}
