package registry

import "github.com/shopspring/decimal"

// DefaultSteps returns the standard trip workflow
func DefaultSteps() []WorkflowStep {
	noFlags := NoUnresolvedFlags()
	return []WorkflowStep{
		{
			ID:         StepCreateTrip,
			Name:       "Create Trip",
			Order:      1,
			Required:   true,
			Validation: []Predicate{RequiresFields("trip.id", "trip.fleet_number", "trip.route", "trip.client_name")},
		},
		{
			ID:         StepAddCosts,
			Name:       "Add Costs",
			Order:      2,
			Required:   true,
			Validation: []Predicate{Custom(CustomCostsConsistent)},
		},
		{
			ID:         StepGenerateSystemCosts,
			Name:       "System Costs",
			Order:      3,
			Required:   true,
			Validation: []Predicate{Custom(CustomSystemCostsGenerated)},
		},
		{
			ID:       StepResolveFlags,
			Name:     "Resolve Flags",
			Order:    4,
			Required: true,
			Next:     &noFlags,
		},
		{
			ID:         StepCompleteTrip,
			Name:       "Complete Trip",
			Order:      5,
			Required:   true,
			Validation: []Predicate{RequiresFields("trip.proof_of_delivery"), NoUnresolvedFlags()},
		},
		{
			ID:         StepSubmitInvoice,
			Name:       "Submit Invoice",
			Order:      6,
			Required:   true,
			Validation: []Predicate{RequiresFields("invoice.invoice_number")},
		},
		{
			ID:       StepTrackPayment,
			Name:     "Track Payment",
			Order:    7,
			Required: false,
		},
		{
			ID:       StepReporting,
			Name:     "Reporting",
			Order:    8,
			Required: false,
		},
	}
}

func defaultThresholds() Thresholds {
	return Thresholds{
		CostVariancePercent:     decimal.NewFromInt(15),
		TimeVarianceHours:       decimal.NewFromInt(24),
		FuelConsumptionPer100Km: decimal.NewFromInt(40),
	}
}

func defaultApprovalLimits() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"operator": decimal.NewFromInt(5000),
		"manager":  decimal.NewFromInt(50000),
		"admin":    decimal.NewFromInt(250000),
	}
}

func defaultCostCategories() map[string][]string {
	return map[string][]string{
		"Border Costs": {
			"Beitbridge Border Fee", "Gate Pass", "Coupon", "Carbon Tax Horse", "CVG Horse", "CVG Trailer",
			"Road Access", "Bridge Fee", "Road Toll Fee", "Transit Permit Horse", "Transit Permit Trailer",
			"Electronic Seal", "EME Permit", "Zim Clearing", "Zim Supervision", "SA Clearing",
			"Runner Fee Beitbridge", "Runner Fee Zambia Kazungula", "Runner Fee Chirundu",
		},
		"Parking": {"Bulawayo", "Gweru", "Harare", "Mutare", "Beitbridge", "Masvingo", "Kwekwe", "Victoria Falls"},
		"Diesel":  {"Engen Beitbridge - Horse", "Engen Beitbridge - Reefer", "RAM Petroleum Harare - Horse", "RAM Petroleum Harare - Reefer"},
		"Non-Value-Added Costs": {
			"Fines", "Penalties", "Passport Stamping", "Push Documents", "Jump Queue", "Dismiss Inspection", "Parcels", "Labour",
		},
		"Trip Allowances": {"Food", "Airtime", "Taxi"},
		"Tolls":           {"Tolls BB to JHB", "Tolls Cape Town to JHB", "Tolls JHB to CPT", "Tolls Mutare to BB", "Tolls BB to Harare", "Tolls Zambia"},
		"System Costs": {
			"Repair & Maintenance per KM", "Tyre Cost per KM", "GIT Insurance", "Fuel Estimate", "Wages",
		},
	}
}

// CostCategories returns the category catalogue
func (r *Registry) CostCategories() map[string][]string {
	out := make(map[string][]string, len(r.costCategories))
	for c, subs := range r.costCategories {
		out[c] = append([]string(nil), subs...)
	}
	return out
}
