package model

import (
	"path/filepath"
	"strings"
)

// Document is an attachment handed to the intake agent
type Document struct {
	Name string
	Data []byte
}

// NewTextDocument wraps plain text as a .txt document
func NewTextDocument(text string) *Document {
	return &Document{Name: "message.txt", Data: []byte(text)}
}

// Ext returns the lower-cased file extension including the dot
func (d *Document) Ext() string {
	return strings.ToLower(filepath.Ext(d.Name))
}

// Extraction holds the structured fields recovered from a document
type Extraction struct {
	IncidentType       IncidentType `json:"incident_type"`
	Date               string       `json:"date"`
	Location           string       `json:"location"`
	Parties            []Party      `json:"parties_involved"`
	DamagesDescription string       `json:"damages_description"`
	Amounts            []float64    `json:"amounts"`
	RawText            string       `json:"raw_text"`
	Confidence         float64      `json:"confidence_score"`
}

// HighestAmount returns the largest monetary amount found
func (x *Extraction) HighestAmount() (float64, bool) {
	if len(x.Amounts) == 0 {
		return 0, false
	}
	max := x.Amounts[0]
	for _, v := range x.Amounts[1:] {
		if v > max {
			max = v
		}
	}
	return max, true
}

type Draft struct {
	ClaimID     ClaimID `json:"claim_id"`
	HTML        string  `json:"html"`
	Summary     string  `json:"summary"`
	ArchivedAt  string  `json:"archived_at,omitempty"`
	GeneratedAt string  `json:"generated_at"`
}

type EmailSource string

const (
	EmailFromLLM      EmailSource = "llm"
	EmailFromTemplate EmailSource = "template"
)

// Email is a cover email to send to the insurer with the claim
type Email struct {
	ClaimID         ClaimID     `json:"claim_id"`
	Subject         string      `json:"subject"`
	To              string      `json:"to"`
	CC              string      `json:"cc"`
	Body            string      `json:"body"`
	AttachmentsNote string      `json:"attachments_note"`
	Source          EmailSource `json:"source"`
	GeneratedAt     string      `json:"generated_at"`
}

type SeverityTier string

const (
	SeverityTierHigh   SeverityTier = "High"
	SeverityTierMedium SeverityTier = "Medium"
	SeverityTierLow    SeverityTier = "Low"
)

type Analysis struct {
	ClaimID            ClaimID      `json:"claim_id"`
	Severity           SeverityTier `json:"severity"`
	Completeness       string       `json:"completeness"`
	RecommendedActions []string     `json:"recommended_actions"`
	MissingInformation []string     `json:"missing_information"`
	Status             ClaimStatus  `json:"status"`
}
