package model

import "time"

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeOf maps a [0,1] quality score to a letter grade
func GradeOf(score float64) Grade {
	switch {
	case score >= 0.9:
		return GradeA
	case score >= 0.8:
		return GradeB
	case score >= 0.7:
		return GradeC
	case score >= 0.6:
		return GradeD
	default:
		return GradeF
	}
}

type QualityCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

type DataQuality struct {
	Score  float64        `json:"score"`
	Grade  Grade          `json:"grade"`
	Checks []QualityCheck `json:"checks"`
}

// Failed lists the names of failed checks in evaluation order
func (q DataQuality) Failed() []string {
	var names []string
	for _, c := range q.Checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

type PIIFinding struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type ComplianceResult struct {
	ClaimID           ClaimID         `json:"claim_id"`
	RequiredFields    map[string]bool `json:"required_fields"`
	MissingFields     []string        `json:"missing_fields"`
	PresentFields     []string        `json:"present_fields"`
	DataQuality       DataQuality     `json:"data_quality"`
	PIIFound          []PIIFinding    `json:"pii_found"`
	CompletenessScore float64         `json:"completeness_score"`
	SubmissionReady   bool            `json:"submission_ready"`
	Recommendations   []string        `json:"recommendations"`
	Summary           string          `json:"summary"`
	CheckedAt         time.Time       `json:"checked_at"`
}
