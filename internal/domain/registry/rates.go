package registry

import (
	"github.com/shopspring/decimal"
)

// DefaultFuelConsumptionPerKm is the assumed litres per km used for the fuel estimate
var DefaultFuelConsumptionPerKm = decimal.RequireFromString("0.35")

// RateTable holds the system cost rates for one currency
type RateTable struct {
	Currency             string          `json:"currency"`
	PerKmRepair          decimal.Decimal `json:"per_km_repair"`
	PerKmTyre            decimal.Decimal `json:"per_km_tyre"`
	PerDayGIT            decimal.Decimal `json:"per_day_git"`
	FuelRate             decimal.Decimal `json:"fuel_rate"`
	DriverRate           decimal.Decimal `json:"driver_rate"`
	FuelConsumptionPerKm decimal.Decimal `json:"fuel_consumption_per_km"`
}

// Consumption returns the configured consumption or the default
func (r RateTable) Consumption() decimal.Decimal {
	if r.FuelConsumptionPerKm.IsPositive() {
		return r.FuelConsumptionPerKm
	}
	return DefaultFuelConsumptionPerKm
}

// Thresholds are the variance limits kept for variance-based flag rules
type Thresholds struct {
	CostVariancePercent     decimal.Decimal `json:"cost_variance_percent"`
	TimeVarianceHours       decimal.Decimal `json:"time_variance_hours"`
	FuelConsumptionPer100Km decimal.Decimal `json:"fuel_consumption_per_100km"`
}

func defaultRates() map[string]RateTable {
	return map[string]RateTable{
		"ZAR": {
			Currency:             "ZAR",
			PerKmRepair:          decimal.RequireFromString("2.05"),
			PerKmTyre:            decimal.RequireFromString("0.64"),
			PerDayGIT:            decimal.RequireFromString("134.82"),
			FuelRate:             decimal.RequireFromString("23.50"),
			DriverRate:           decimal.RequireFromString("300.15"),
			FuelConsumptionPerKm: DefaultFuelConsumptionPerKm,
		},
		"USD": {
			Currency:             "USD",
			PerKmRepair:          decimal.RequireFromString("0.11"),
			PerKmTyre:            decimal.RequireFromString("0.03"),
			PerDayGIT:            decimal.RequireFromString("10.21"),
			FuelRate:             decimal.RequireFromString("1.30"),
			DriverRate:           decimal.RequireFromString("16.88"),
			FuelConsumptionPerKm: DefaultFuelConsumptionPerKm,
		},
	}
}
