package model

import (
	"fmt"
	"regexp"
	"strings"
)

// MaintenanceInterval service intervals for one make/model
type MaintenanceInterval struct {
	OilChangeKm  int `json:"oil_change_km" mapstructure:"oil_change_km"`
	TimingBeltKm int `json:"timing_belt_km" mapstructure:"timing_belt_km"`
}

// IntervalTable is keyed "<MAKE>/<MODEL>". Keys are stored upper-cased.
type IntervalTable map[string]MaintenanceInterval

// IntervalKey builds the normalized lookup key
func IntervalKey(brand, model string) string {
	return strings.ToUpper(strings.TrimSpace(brand)) + "/" + strings.ToUpper(strings.TrimSpace(model))
}

// Lookup is case-insensitive on make and model.
func (t IntervalTable) Lookup(brand, model string) (MaintenanceInterval, bool) {
	iv, ok := t[IntervalKey(brand, model)]
	return iv, ok
}

// Normalize returns a copy with upper-cased keys and non-positive intervals dropped.
func (t IntervalTable) Normalize() IntervalTable {
	out := make(IntervalTable, len(t))
	for k, v := range t {
		if v.OilChangeKm <= 0 && v.TimingBeltKm <= 0 {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

// DefaultIntervals built-in table used when no intervals file is configured
func DefaultIntervals() IntervalTable {
	return IntervalTable{
		"FORD/TRANSIT":      {OilChangeKm: 20000, TimingBeltKm: 150000},
		"TESLA/MODEL 3":     {OilChangeKm: 40000, TimingBeltKm: 500000},
		"MERCEDES/SPRINTER": {OilChangeKm: 25000, TimingBeltKm: 200000},
		"TOYOTA/COROLLA":    {OilChangeKm: 15000, TimingBeltKm: 150000},
		"NISSAN/NV200":      {OilChangeKm: 20000, TimingBeltKm: 120000},
		"RENAULT/KANGOO":    {OilChangeKm: 20000, TimingBeltKm: 120000},
		"VOLVO/FH":          {OilChangeKm: 60000, TimingBeltKm: 0},
	}
}

// VINInfo decoded make/model/year
type VINInfo struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

var vinCatalog = map[string]VINInfo{
	"ABC123456": {Make: "FORD", Model: "TRANSIT", Year: 2020},
	"XYZ987654": {Make: "TESLA", Model: "MODEL 3", Year: 2022},
}

// DecodeVIN looks the VIN up in the local decode table
func DecodeVIN(vin string) (VINInfo, bool) {
	info, ok := vinCatalog[strings.ToUpper(strings.TrimSpace(vin))]
	return info, ok
}

// RuleSeverity 保养建议级别
type RuleSeverity string

const (
	RuleMandatory   RuleSeverity = "MANDATORY"
	RuleRecommended RuleSeverity = "RECOMMENDED"
)

// MaintenanceRule recommended task for a make/model/year
type MaintenanceRule struct {
	Task      string       `json:"task"`
	KmRange   string       `json:"km_range"`
	TimeRange string       `json:"time_range"`
	Severity  RuleSeverity `json:"severity"`
}

var maintenanceRules = map[string][]MaintenanceRule{
	"Ford_Transit_2020": {
		{Task: "Oil and filter change", KmRange: "15.000 km", TimeRange: "1 year", Severity: RuleMandatory},
		{Task: "Brake inspection", KmRange: "30.000 km", TimeRange: "2 years", Severity: RuleRecommended},
		{Task: "Timing belt replacement", KmRange: "200.000 km", TimeRange: "10 years", Severity: RuleMandatory},
	},
	"Mercedes_Sprinter_2018": {
		{Task: "Major B service", KmRange: "60.000 km", TimeRange: "3 years", Severity: RuleMandatory},
		{Task: "Running gear inspection", KmRange: "20.000 km", TimeRange: "1 year", Severity: RuleRecommended},
	},
	"Toyota_Corolla_2023": {
		{Task: "Tire rotation", KmRange: "10.000 km", TimeRange: "6 months", Severity: RuleRecommended},
		{Task: "Spark plug replacement", KmRange: "90.000 km", TimeRange: "N/A", Severity: RuleMandatory},
	},
}

var whitespace = regexp.MustCompile(`\s+`)

// RecommendationKey builds "Make_Model_Year" with whitespace collapsed to underscores
func RecommendationKey(brand, model string, year int) string {
	return whitespace.ReplaceAllString(fmt.Sprintf("%s_%s_%d", brand, model, year), "_")
}

// RecommendedMaintenance returns the rules for the vehicle, or an empty list.
func RecommendedMaintenance(brand, model string, year int) []MaintenanceRule {
	rules := maintenanceRules[RecommendationKey(brand, model, year)]
	return append([]MaintenanceRule{}, rules...)
}
