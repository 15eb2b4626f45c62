package export

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/trip-finance/internal/application/port"
)

// field is one label/value line of the report header
type field struct {
	Label string
	Value string
}

var costHeaders = []string{"Category", "Sub-category", "Reference", "Date", "Amount", "Currency", "Flag", "Source"}

func summaryFields(r *port.TripReport) []field {
	t := r.Trip
	costs := t.TotalCosts()
	margin := t.BaseRevenue.Sub(costs)

	fields := []field{
		{"Trip", t.ID},
		{"Fleet number", t.FleetNumber},
		{"Driver", t.DriverName},
		{"Client", fmt.Sprintf("%s (%s)", t.ClientName, t.ClientType)},
		{"Route", t.Route},
		{"Status", string(t.Status)},
		{"Distance (km)", t.DistanceKm.String()},
		{"Base revenue", money(t.BaseRevenue, t.RevenueCurrency)},
		{"Total costs", money(costs, t.RevenueCurrency)},
		{"Margin", money(margin, t.RevenueCurrency)},
		{"Flagged items", fmt.Sprintf("%d (%d unresolved)", t.FlaggedCount(), len(t.UnresolvedFlags()))},
	}
	if t.CompletedAt != nil {
		fields = append(fields, field{"Completed", t.CompletedAt.Format("2006-01-02") + " by " + t.CompletedBy})
	}

	if inv := r.Invoice; inv != nil {
		fields = append(fields,
			field{"Invoice", inv.InvoiceNumber},
			field{"Invoice date", inv.InvoiceDate.Format("2006-01-02")},
			field{"Due date", inv.DueDate.Format("2006-01-02")},
			field{"Invoice total", money(inv.TotalAmount, inv.Currency)},
			field{"Payment status", inv.PaymentStatus},
		)
	}
	if a := r.Aging; a != nil {
		aging := fmt.Sprintf("%d days since invoice", a.DaysSinceInvoice)
		if a.IsOverdue {
			aging += fmt.Sprintf(", %d days overdue", -a.DaysTillDue)
		}
		fields = append(fields, field{"Aging", aging})
	}
	return fields
}

func costRows(r *port.TripReport) [][]string {
	rows := make([][]string, 0, len(r.Trip.Costs))
	for _, c := range r.Trip.Costs {
		date := ""
		if c.Date != nil {
			date = c.Date.Format("2006-01-02")
		}
		flag := ""
		switch {
		case c.IsUnresolvedFlag():
			flag = "open: " + c.FlagReason
		case c.IsFlagged:
			flag = "resolved"
		}
		source := "manual"
		if c.IsSystemGenerated {
			source = "system"
		}
		rows = append(rows, []string{
			c.Category, c.SubCategory, c.ReferenceNumber, date,
			c.Amount.StringFixed(2), c.Currency, flag, source,
		})
	}
	return rows
}

func money(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}
