package compliance

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

const (
	fieldClaimID  = "claim_id"
	fieldIncident = "incident_type"
	fieldDate     = "date"
	fieldLocation = "location"
	fieldDamages  = "damages_description"

	checkParties     = "parties_present"
	checkEstimate    = "damage_estimate_present"
	checkDescription = "detailed_description"
	checkLocation    = "specific_location"
	checkConfidence  = "high_confidence"
)

var requiredFields = []string{fieldClaimID, fieldIncident, fieldDate, fieldLocation, fieldDamages}

var piiPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"Credit Card", regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)},
	{"Email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)},
}

var checkRecommendations = map[string]string{
	checkParties:     "Add information about parties involved",
	checkEstimate:    "Request damage estimation from FinTrack",
	checkDescription: "Provide more detailed damage description",
	checkLocation:    "Specify exact location of incident",
}

// Service checks claims for submission readiness
type Service struct {
	policy *rego.PreparedEvalQuery
	now    func() time.Time
}

type Option func(*options)

type options struct {
	policyDir string
	now       func() time.Time
}

// WithPolicyDir loads the readiness policy from .rego files in dir instead of the built-in one
func WithPolicyDir(dir string) Option {
	return func(o *options) {
		o.policyDir = dir
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func New(ctx context.Context, opts ...Option) (*Service, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	policy, err := loadPolicy(ctx, o.policyDir)
	if err != nil {
		return nil, err
	}

	return &Service{policy: policy, now: o.now}, nil
}

// Validate runs field, quality and PII checks over the claim. draft may be nil.
func (s *Service) Validate(ctx context.Context, claim *model.Claim, draft *model.Draft) (*model.ComplianceResult, error) {
	if claim == nil {
		return nil, goerr.Wrap(model.ErrInputMissing, "claim is required for compliance check")
	}

	result := &model.ComplianceResult{
		ClaimID:        claim.ID,
		RequiredFields: map[string]bool{},
		MissingFields:  []string{},
		PresentFields:  []string{},
		PIIFound:       []model.PIIFinding{},
		CheckedAt:      s.now(),
	}

	values := map[string]string{
		fieldClaimID:  string(claim.ID),
		fieldIncident: string(claim.IncidentType),
		fieldDate:     claim.Date,
		fieldLocation: claim.Location,
		fieldDamages:  claim.DamagesDescription,
	}
	for _, field := range requiredFields {
		present := strings.TrimSpace(values[field]) != ""
		result.RequiredFields[field] = present
		if present {
			result.PresentFields = append(result.PresentFields, field)
		} else {
			result.MissingFields = append(result.MissingFields, field)
		}
	}

	result.DataQuality = assessQuality(claim)
	result.PIIFound = detectPII(strings.Join([]string{claim.RawText, claim.DamagesDescription, claim.Summary}, " "))

	ratio := float64(len(result.PresentFields)) / float64(len(requiredFields))
	result.CompletenessScore = math.Round((claim.Confidence*0.6+ratio*0.4)*100) / 100

	ready, err := evalReady(ctx, s.policy, policyInput(claim, draft, result))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decide submission readiness", goerr.V("claim_id", claim.ID))
	}
	result.SubmissionReady = ready

	result.Recommendations = recommendations(result)
	result.Summary = summary(result)

	logging.From(ctx).Debug("compliance checked",
		"claim_id", claim.ID,
		"ready", result.SubmissionReady,
		"missing", result.MissingFields,
		"quality", result.DataQuality.Score,
	)

	return result, nil
}

func assessQuality(claim *model.Claim) model.DataQuality {
	location := strings.TrimSpace(claim.Location)
	checks := []model.QualityCheck{
		{Name: checkParties, Passed: len(claim.Parties) > 0},
		{Name: checkEstimate, Passed: strings.TrimSpace(claim.EstimatedDamage) != ""},
		{Name: checkDescription, Passed: len(claim.DamagesDescription) > 50},
		{Name: checkLocation, Passed: location != "" && !strings.Contains(strings.ToLower(location), "not specified")},
		{Name: checkConfidence, Passed: claim.Confidence >= 0.7},
	}

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}
	score := float64(passed) / float64(len(checks))

	return model.DataQuality{
		Score:  score,
		Grade:  model.GradeOf(score),
		Checks: checks,
	}
}

func detectPII(text string) []model.PIIFinding {
	found := []model.PIIFinding{}
	for _, p := range piiPatterns {
		if matches := p.re.FindAllString(text, -1); len(matches) > 0 {
			found = append(found, model.PIIFinding{Type: p.name, Count: len(matches)})
		}
	}
	return found
}

func policyInput(claim *model.Claim, draft *model.Draft, result *model.ComplianceResult) map[string]any {
	pii := make([]map[string]any, 0, len(result.PIIFound))
	for _, f := range result.PIIFound {
		pii = append(pii, map[string]any{"type": f.Type, "count": f.Count})
	}
	return map[string]any{
		"claim_id":       string(claim.ID),
		"missing_fields": result.MissingFields,
		"pii_found":      pii,
		"quality_score":  result.DataQuality.Score,
		"confidence":     claim.Confidence,
		"draft_present":  draft != nil,
	}
}

func recommendations(result *model.ComplianceResult) []string {
	var recs []string
	if len(result.MissingFields) > 0 {
		recs = append(recs, "Add missing required fields: "+strings.Join(result.MissingFields, ", "))
	}
	for _, name := range result.DataQuality.Failed() {
		if rec, ok := checkRecommendations[name]; ok {
			recs = append(recs, rec)
		}
	}
	for _, f := range result.PIIFound {
		recs = append(recs, fmt.Sprintf("Redact %s from claim documents", f.Type))
	}
	if len(recs) == 0 {
		recs = append(recs, "Claim is ready for submission!")
	}
	return recs
}

func summary(result *model.ComplianceResult) string {
	if result.SubmissionReady {
		return fmt.Sprintf("Compliance check passed! Your claim has a %.0f%% completeness score and %s quality grade. "+
			"All required fields are present and no PII issues detected. This claim is ready for submission.",
			result.CompletenessScore*100, result.DataQuality.Grade)
	}
	return fmt.Sprintf("Compliance check found some issues. Your claim has a %.0f%% completeness score and %s quality grade. "+
		"Please review the recommendations before submission.",
		result.CompletenessScore*100, result.DataQuality.Grade)
}
