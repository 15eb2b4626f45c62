// Package costgen derives the system-generated cost entries of a trip from its
// distance, duration and the configured rate table.
package costgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/registry"
)

var (
	hoursPerDay = decimal.NewFromInt(24)

	// idNamespace scopes the deterministic ids of generated entries
	idNamespace = uuid.MustParse("6f1c5a52-3b7e-4d8a-9a0e-2f4b8c6d1e07")
)

// Input is everything the generator reads
type Input struct {
	TripID        string
	DistanceKm    decimal.Decimal
	DurationHours decimal.Decimal
	Rates         registry.RateTable
	Date          *time.Time
	Now           time.Time
}

// InputForTrip builds generator input from a trip and its rate table
func InputForTrip(trip *entity.Trip, rates registry.RateTable, now time.Time) Input {
	date := trip.EndDate
	if date == nil {
		date = trip.StartDate
	}
	return Input{
		TripID:        trip.ID,
		DistanceKm:    trip.DistanceKm,
		DurationHours: trip.DurationHours(),
		Rates:         rates,
		Date:          date,
		Now:           now,
	}
}

// Days converts hours to billable days, rounding partial days up
func Days(hours decimal.Decimal) decimal.Decimal {
	if !hours.IsPositive() {
		return decimal.Zero
	}
	return hours.Div(hoursPerDay).Ceil()
}

type line struct {
	kind        entity.SystemCostType
	subCategory string
	notes       string
	amount      decimal.Decimal
	trace       string
}

// Generate returns the system cost set in fixed order: repair, tyre, GIT, fuel, driver.
// Calling it twice with the same input yields identical entries.
func Generate(in Input) []*entity.CostEntry {
	r := in.Rates
	sym := currencySymbol(r.Currency)
	km := in.DistanceKm
	if km.IsNegative() {
		km = decimal.Zero
	}
	days := Days(in.DurationHours)
	litres := km.Mul(r.Consumption())

	lines := []line{
		{
			kind:        entity.SystemCostRepair,
			subCategory: "Repair & Maintenance per KM",
			notes:       "Vehicle repair allocation",
			amount:      km.Mul(r.PerKmRepair),
			trace:       fmt.Sprintf("%skm × %s%s/km", km.String(), sym, r.PerKmRepair.StringFixed(2)),
		},
		{
			kind:        entity.SystemCostTyre,
			subCategory: "Tyre Cost per KM",
			notes:       "Tyre wear allocation",
			amount:      km.Mul(r.PerKmTyre),
			trace:       fmt.Sprintf("%skm × %s%s/km", km.String(), sym, r.PerKmTyre.StringFixed(2)),
		},
		{
			kind:        entity.SystemCostGIT,
			subCategory: "GIT Insurance",
			notes:       "General Insurance & Tax",
			amount:      days.Mul(r.PerDayGIT),
			trace:       fmt.Sprintf("%s × %s%s/day", dayLabel(days), sym, r.PerDayGIT.StringFixed(2)),
		},
		{
			kind:        entity.SystemCostFuel,
			subCategory: "Fuel Estimate",
			notes:       "Estimated fuel cost",
			amount:      litres.Mul(r.FuelRate),
			trace: fmt.Sprintf("%skm × %sL/km × %s%s/L", km.String(), r.Consumption().String(),
				sym, r.FuelRate.StringFixed(2)),
		},
		{
			kind:        entity.SystemCostDriver,
			subCategory: "Wages",
			notes:       "Driver compensation",
			amount:      days.Mul(r.DriverRate),
			trace:       fmt.Sprintf("%s × %s%s/day", dayLabel(days), sym, r.DriverRate.StringFixed(2)),
		},
	}

	entries := make([]*entity.CostEntry, 0, len(lines))
	for _, l := range lines {
		amount := l.amount.Round(2)
		entries = append(entries, &entity.CostEntry{
			ID:                SystemCostID(in.TripID, l.kind),
			TripID:            in.TripID,
			Category:          entity.CategorySystemCosts,
			SubCategory:       l.subCategory,
			Amount:            amount,
			Currency:          r.Currency,
			ReferenceNumber:   "SYS-" + strings.ToUpper(string(l.kind)),
			Date:              in.Date,
			Notes:             l.notes,
			IsSystemGenerated: true,
			SystemCostType:    l.kind,
			CalculationTrace:  fmt.Sprintf("%s = %s%s", l.trace, sym, amount.StringFixed(2)),
			CreatedAt:         in.Now,
			UpdatedAt:         in.Now,
		})
	}
	return entries
}

// Replace returns costs with every system-generated entry swapped for generated.
// Operator entries keep their relative order and come first.
func Replace(costs []*entity.CostEntry, generated []*entity.CostEntry) []*entity.CostEntry {
	out := make([]*entity.CostEntry, 0, len(costs)+len(generated))
	for _, c := range costs {
		if !c.IsSystemGenerated {
			out = append(out, c)
		}
	}
	return append(out, generated...)
}

// SystemCostID returns the stable id of a generated entry
func SystemCostID(tripID string, kind entity.SystemCostType) string {
	return uuid.NewSHA1(idNamespace, []byte(tripID+"/"+string(kind))).String()
}

func currencySymbol(currency string) string {
	switch currency {
	case entity.CurrencyZAR:
		return "R"
	case entity.CurrencyUSD:
		return "$"
	default:
		return currency + " "
	}
}

func dayLabel(days decimal.Decimal) string {
	if days.Equal(decimal.NewFromInt(1)) {
		return "1 day"
	}
	return days.String() + " days"
}
