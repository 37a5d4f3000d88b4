package estimation

import "github.com/m-mizutani/claimpilot/pkg/model"

const (
	defaultEstimate = 3000.0
	defaultCoverage = 0.75
)

var damageBands = map[model.IncidentType]map[model.Severity]model.Range{
	model.IncidentCarAccident: {
		model.SeverityMinor:     {Min: 500, Max: 2000},
		model.SeverityModerate:  {Min: 2000, Max: 8000},
		model.SeveritySevere:    {Min: 8000, Max: 25000},
		model.SeverityTotalLoss: {Min: 25000, Max: 100000},
	},
	model.IncidentHomeDamage: {
		model.SeverityMinor:        {Min: 1000, Max: 5000},
		model.SeverityModerate:     {Min: 5000, Max: 15000},
		model.SeveritySevere:       {Min: 15000, Max: 50000},
		model.SeverityCatastrophic: {Min: 50000, Max: 500000},
	},
	model.IncidentPropertyDamage: {
		model.SeverityMinor:    {Min: 300, Max: 1500},
		model.SeverityModerate: {Min: 1500, Max: 5000},
		model.SeveritySevere:   {Min: 5000, Max: 20000},
	},
	model.IncidentMedical: {
		model.SeverityMinor:    {Min: 500, Max: 3000},
		model.SeverityModerate: {Min: 3000, Max: 10000},
		model.SeveritySevere:   {Min: 10000, Max: 50000},
		model.SeverityCritical: {Min: 50000, Max: 500000},
	},
}

var coverageTable = map[model.IncidentType]float64{
	model.IncidentCarAccident:    0.80,
	model.IncidentHomeDamage:     0.90,
	model.IncidentPropertyDamage: 0.75,
	model.IncidentMedical:        0.85,
	model.IncidentTheft:          0.70,
	model.IncidentOther:          0.75,
}

// threshold maps a lower bound (inclusive) to a severity
type threshold struct {
	min      float64
	severity model.Severity
}

// amountThresholds are checked from the top down
var amountThresholds = map[model.IncidentType][]threshold{
	model.IncidentCarAccident: {
		{25000, model.SeverityTotalLoss},
		{8000, model.SeveritySevere},
		{2000, model.SeverityModerate},
	},
	model.IncidentHomeDamage: {
		{50000, model.SeverityCatastrophic},
		{15000, model.SeveritySevere},
		{5000, model.SeverityModerate},
	},
	model.IncidentMedical: {
		{50000, model.SeverityCritical},
		{10000, model.SeveritySevere},
		{3000, model.SeverityModerate},
	},
}

type share struct {
	category string
	ratio    float64
}

var breakdownShares = map[model.IncidentType][]share{
	model.IncidentCarAccident: {
		{"parts", 0.60},
		{"labor", 0.30},
		{"paint_and_materials", 0.10},
	},
	model.IncidentHomeDamage: {
		{"materials", 0.50},
		{"labor", 0.40},
		{"permits_and_fees", 0.10},
	},
	model.IncidentMedical: {
		{"medical_treatment", 0.70},
		{"medications", 0.15},
		{"rehabilitation", 0.15},
	},
}

var defaultShares = []share{
	{"repair_costs", 0.80},
	{"service_fees", 0.20},
}

var (
	severeKeywords   = []string{"total", "destroyed", "severe", "major", "extensive", "critical"}
	moderateKeywords = []string{"moderate", "significant", "substantial"}
)

func isHighSeverity(s model.Severity) bool {
	switch s {
	case model.SeveritySevere, model.SeverityTotalLoss, model.SeverityCatastrophic, model.SeverityCritical:
		return true
	}
	return false
}
