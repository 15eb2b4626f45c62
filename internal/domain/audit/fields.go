package audit

import (
	"time"

	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// editableField reads one editable trip field as a string and copies it between trips
type editableField struct {
	name  string
	value func(t *entity.Trip) string
	copy  func(dst, src *entity.Trip)
}

// editableFields is the closed set of trip fields the audited edit path may change
var editableFields = []editableField{
	{"fleet_number", func(t *entity.Trip) string { return t.FleetNumber }, func(d, s *entity.Trip) { d.FleetNumber = s.FleetNumber }},
	{"driver_name", func(t *entity.Trip) string { return t.DriverName }, func(d, s *entity.Trip) { d.DriverName = s.DriverName }},
	{"client_name", func(t *entity.Trip) string { return t.ClientName }, func(d, s *entity.Trip) { d.ClientName = s.ClientName }},
	{"client_type", func(t *entity.Trip) string { return string(t.ClientType) }, func(d, s *entity.Trip) { d.ClientType = s.ClientType }},
	{"start_date", func(t *entity.Trip) string { return formatDate(t.StartDate) }, func(d, s *entity.Trip) { d.StartDate = s.StartDate }},
	{"end_date", func(t *entity.Trip) string { return formatDate(t.EndDate) }, func(d, s *entity.Trip) { d.EndDate = s.EndDate }},
	{"route", func(t *entity.Trip) string { return t.Route }, func(d, s *entity.Trip) { d.Route = s.Route }},
	{"description", func(t *entity.Trip) string { return t.Description }, func(d, s *entity.Trip) { d.Description = s.Description }},
	{"base_revenue", func(t *entity.Trip) string { return t.BaseRevenue.StringFixed(2) }, func(d, s *entity.Trip) { d.BaseRevenue = s.BaseRevenue }},
	{"revenue_currency", func(t *entity.Trip) string { return t.RevenueCurrency }, func(d, s *entity.Trip) { d.RevenueCurrency = s.RevenueCurrency }},
	{"distance_km", func(t *entity.Trip) string { return t.DistanceKm.String() }, func(d, s *entity.Trip) { d.DistanceKm = s.DistanceKm }},
}

// EditableFields returns the names of fields the audited edit path covers
func EditableFields() []string {
	names := make([]string, 0, len(editableFields))
	for _, f := range editableFields {
		names = append(names, f.name)
	}
	return names
}

// ApplyEditable copies every editable field from src onto dst
func ApplyEditable(dst, src *entity.Trip) {
	for _, f := range editableFields {
		f.copy(dst, src)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
