package model

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type ClaimID string

var claimIDPattern = regexp.MustCompile(`C-\d{4}-[A-Z0-9]{8}`)

// NewClaimID generates an identifier of the form C-<year>-<8 uppercase hex>
func NewClaimID(now time.Time) ClaimID {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return ClaimID(fmt.Sprintf("C-%d-%s", now.Year(), suffix))
}

// FindClaimID returns the first claim identifier embedded in text, or empty
func FindClaimID(text string) ClaimID {
	return ClaimID(claimIDPattern.FindString(text))
}

func (x ClaimID) String() string { return string(x) }

type ClaimStatus string

const (
	ClaimStatusOpen        ClaimStatus = "Open"
	ClaimStatusProcessing  ClaimStatus = "Processing"
	ClaimStatusClosed      ClaimStatus = "Closed"
	ClaimStatusPendingInfo ClaimStatus = "Pending Info"
)

var ErrInvalidClaimStatus = goerr.Wrap(ErrValidation, "invalid claim status")

// Validate checks if the status is one of the known values
func (s ClaimStatus) Validate() error {
	switch s {
	case ClaimStatusOpen, ClaimStatusProcessing, ClaimStatusClosed, ClaimStatusPendingInfo:
		return nil
	default:
		return goerr.Wrap(ErrInvalidClaimStatus, "unknown status", goerr.V("status", s))
	}
}

// ParseClaimStatus accepts a status name case-insensitively
func ParseClaimStatus(s string) (ClaimStatus, error) {
	for _, st := range []ClaimStatus{ClaimStatusOpen, ClaimStatusProcessing, ClaimStatusClosed, ClaimStatusPendingInfo} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", ClaimStatus(s).Validate()
}

type IncidentType string

const (
	IncidentCarAccident    IncidentType = "Car Accident"
	IncidentHomeDamage     IncidentType = "Home Damage"
	IncidentTheft          IncidentType = "Theft"
	IncidentMedical        IncidentType = "Medical"
	IncidentPropertyDamage IncidentType = "Property Damage"
	IncidentOther          IncidentType = "Other"
)

var incidentTypes = []IncidentType{
	IncidentCarAccident,
	IncidentHomeDamage,
	IncidentTheft,
	IncidentMedical,
	IncidentPropertyDamage,
	IncidentOther,
}

func IncidentTypes() []IncidentType {
	return append([]IncidentType(nil), incidentTypes...)
}

// LookupIncidentType matches s against the known incident types ignoring case and surrounding space
func LookupIncidentType(s string) (IncidentType, bool) {
	s = strings.TrimSpace(s)
	for _, t := range incidentTypes {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

type Party struct {
	Name            string `json:"name"`
	Role            string `json:"role"`
	Contact         string `json:"contact,omitempty"`
	InsuranceNumber string `json:"insurance_number,omitempty"`
}

type Claim struct {
	ID                 ClaimID      `json:"claim_id"`
	IncidentType       IncidentType `json:"incident_type"`
	Date               string       `json:"date"`
	Location           string       `json:"location"`
	Parties            []Party      `json:"parties_involved"`
	DamagesDescription string       `json:"damages_description"`
	EstimatedDamage    string       `json:"estimated_damage,omitempty"`
	Confidence         float64      `json:"confidence_score"`
	Status             ClaimStatus  `json:"status"`
	Summary            string       `json:"summary"`
	RawText            string       `json:"raw_text,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EstimatedAmount parses EstimatedDamage. ok is false when the claim carries no usable amount.
func (c *Claim) EstimatedAmount() (float64, bool) {
	return ParseAmount(c.EstimatedDamage)
}

// MaxAmount is the largest monetary value accepted from documents and claims
const MaxAmount = 1e12

// ParseAmount parses a monetary string such as "$1,234.56". Negative, non-finite and values above
// MaxAmount are rejected.
func ParseAmount(s string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > MaxAmount {
		return 0, false
	}
	return v, true
}

// FormatAmount renders v as "$1,234.56", negatives as "-$1,234.56" and non-finite values as "n/a"
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	v = RoundCents(v)
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// RoundCents rounds to 2 decimal places
func RoundCents(v float64) float64 {
	scaled := v * 100
	if math.IsInf(scaled, 0) {
		return v
	}
	return math.Round(scaled) / 100
}

// Clone returns a deep copy of the claim
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	n := *c
	n.Parties = append([]Party(nil), c.Parties...)
	return &n
}
