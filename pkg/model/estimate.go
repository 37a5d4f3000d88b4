package model

import (
	"math"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type Severity string

const (
	SeverityMinor        Severity = "minor"
	SeverityModerate     Severity = "moderate"
	SeveritySevere       Severity = "severe"
	SeverityTotalLoss    Severity = "total_loss"
	SeverityCatastrophic Severity = "catastrophic"
	SeverityCritical     Severity = "critical"
)

var severities = []Severity{
	SeverityMinor, SeverityModerate, SeveritySevere,
	SeverityTotalLoss, SeverityCatastrophic, SeverityCritical,
}

// Severities lists every known severity level
func Severities() []Severity {
	return append([]Severity(nil), severities...)
}

func (s Severity) Validate() error {
	for _, v := range severities {
		if s == v {
			return nil
		}
	}
	return goerr.Wrap(ErrValidation, "unknown severity", goerr.V("severity", s))
}

// CostItem is one line of an estimate breakdown
type CostItem struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Range is a min/max damage band for a severity level
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Midpoint of the band
func (r Range) Midpoint() float64 { return (r.Min + r.Max) / 2 }

type Estimate struct {
	ClaimID              ClaimID      `json:"claim_id"`
	IncidentType         IncidentType `json:"incident_type"`
	Severity             Severity     `json:"severity"`
	SeverityRange        *Range       `json:"severity_range,omitempty"`
	TotalEstimatedDamage float64      `json:"total_estimated_damage"`
	CoveragePercentage   float64      `json:"coverage_percentage"`
	Deductible           float64      `json:"deductible"`
	EstimatedPayout      float64      `json:"estimated_payout"`
	Breakdown            []CostItem   `json:"breakdown"`
	Confidence           float64      `json:"confidence"`
	Notes                string       `json:"notes"`
	CreatedAt            time.Time    `json:"created_at"`
}

// Validate checks the arithmetic relations between total, deductible, payout and breakdown.
func (e *Estimate) Validate() error {
	for name, v := range map[string]float64{
		"total":      e.TotalEstimatedDamage,
		"coverage":   e.CoveragePercentage,
		"deductible": e.Deductible,
		"payout":     e.EstimatedPayout,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return goerr.Wrap(ErrValidation, "estimate value is not finite", goerr.V("field", name), goerr.V("value", v))
		}
	}
	if e.TotalEstimatedDamage < 0 {
		return goerr.Wrap(ErrValidation, "negative total", goerr.V("total", e.TotalEstimatedDamage))
	}
	if e.CoveragePercentage < 0 || e.CoveragePercentage > 1 {
		return goerr.Wrap(ErrValidation, "coverage out of range", goerr.V("coverage", e.CoveragePercentage))
	}
	if !(math.Abs(e.Deductible+e.EstimatedPayout-e.TotalEstimatedDamage) < 0.01) {
		return goerr.Wrap(ErrValidation, "deductible and payout do not sum to total",
			goerr.V("deductible", e.Deductible),
			goerr.V("payout", e.EstimatedPayout),
			goerr.V("total", e.TotalEstimatedDamage),
		)
	}

	var sum float64
	for _, item := range e.Breakdown {
		sum += item.Amount
	}
	if len(e.Breakdown) > 0 && !(math.Abs(sum-e.TotalEstimatedDamage) < 0.01*float64(len(e.Breakdown))) {
		return goerr.Wrap(ErrValidation, "breakdown does not sum to total",
			goerr.V("sum", sum),
			goerr.V("total", e.TotalEstimatedDamage),
		)
	}
	return nil
}
