package estimation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Service computes damage, deductible and payout from rule tables
type Service struct {
	now func() time.Time
}

func New() *Service {
	return &Service{now: time.Now}
}

// Estimate derives severity, total damage, coverage split and cost breakdown for the claim
func (s *Service) Estimate(ctx context.Context, claim *model.Claim, opts interfaces.EstimateOptions) (*model.Estimate, error) {
	if claim == nil {
		return nil, goerr.Wrap(model.ErrInputMissing, "claim is required for estimation")
	}

	coverage, ok := coverageTable[claim.IncidentType]
	if !ok {
		coverage = defaultCoverage
	}
	if opts.Coverage != nil {
		if c := *opts.Coverage; math.IsNaN(c) || c < 0 || c > 1 {
			return nil, goerr.Wrap(model.ErrValidation, "coverage must be between 0 and 1", goerr.V("coverage", *opts.Coverage))
		}
		coverage = *opts.Coverage
	}

	severity := opts.Severity
	if severity != "" {
		if err := severity.Validate(); err != nil {
			return nil, err
		}
	} else {
		severity = assessSeverity(claim)
	}

	total, band := damageEstimate(claim, severity)
	deductible := model.RoundCents(total * (1 - coverage))
	payout := model.RoundCents(total - deductible)

	est := &model.Estimate{
		ClaimID:              claim.ID,
		IncidentType:         claim.IncidentType,
		Severity:             severity,
		SeverityRange:        band,
		TotalEstimatedDamage: total,
		CoveragePercentage:   coverage,
		Deductible:           deductible,
		EstimatedPayout:      payout,
		Breakdown:            breakdown(claim.IncidentType, total),
		Confidence:           estimateConfidence(claim),
		Notes:                notes(severity, coverage),
		CreatedAt:            s.now(),
	}

	if err := est.Validate(); err != nil {
		return nil, goerr.Wrap(err, "inconsistent estimate", goerr.V("claim_id", claim.ID))
	}

	logging.From(ctx).Debug("estimate computed",
		"claim_id", claim.ID,
		"severity", severity,
		"total", total,
		"payout", payout,
	)
	return est, nil
}

// Compare produces one estimate per requested severity. Unknown severities are rejected, estimates
// that fail are skipped.
func (s *Service) Compare(ctx context.Context, claim *model.Claim, severities []model.Severity) (map[model.Severity]*model.Estimate, error) {
	if claim == nil {
		return nil, goerr.Wrap(model.ErrInputMissing, "claim is required for estimation")
	}
	if len(severities) == 0 {
		return nil, goerr.Wrap(model.ErrInputMissing, "at least one severity is required")
	}

	for _, sev := range severities {
		if err := sev.Validate(); err != nil {
			return nil, err
		}
	}

	result := make(map[model.Severity]*model.Estimate, len(severities))
	for _, sev := range severities {
		est, err := s.Estimate(ctx, claim, interfaces.EstimateOptions{Severity: sev})
		if err != nil {
			logging.From(ctx).Warn("skip severity in comparison", "severity", sev, "error", err)
			continue
		}
		result[sev] = est
	}
	return result, nil
}

// Summary describes the estimate in one paragraph
func Summary(est *model.Estimate) string {
	return fmt.Sprintf(
		"Based on the damage assessment, the total estimated cost is %s. With %.0f%% insurance coverage, "+
			"your deductible (out-of-pocket cost) is %s, and the insurance payout will be %s.",
		model.FormatAmount(est.TotalEstimatedDamage),
		est.CoveragePercentage*100,
		model.FormatAmount(est.Deductible),
		model.FormatAmount(est.EstimatedPayout),
	)
}

func assessSeverity(claim *model.Claim) model.Severity {
	if amount, ok := claim.EstimatedAmount(); ok {
		if levels, ok := amountThresholds[claim.IncidentType]; ok {
			for _, t := range levels {
				if amount >= t.min {
					return t.severity
				}
			}
			return model.SeverityMinor
		}
	}

	damages := strings.ToLower(claim.DamagesDescription)
	if containsAny(damages, severeKeywords) {
		return model.SeveritySevere
	}
	if containsAny(damages, moderateKeywords) {
		return model.SeverityModerate
	}
	return model.SeverityMinor
}

func damageEstimate(claim *model.Claim, severity model.Severity) (float64, *model.Range) {
	var band *model.Range
	if bands, ok := damageBands[claim.IncidentType]; ok {
		if r, ok := bands[severity]; ok {
			band = &r
		}
	}

	if amount, ok := claim.EstimatedAmount(); ok {
		return amount, band
	}
	if band != nil {
		return band.Midpoint(), band
	}
	return defaultEstimate, nil
}

// breakdown splits total by category shares. The last item absorbs rounding so the items sum to total.
func breakdown(incident model.IncidentType, total float64) []model.CostItem {
	shares, ok := breakdownShares[incident]
	if !ok {
		shares = defaultShares
	}

	items := make([]model.CostItem, 0, len(shares))
	var allocated float64
	for i, sh := range shares {
		amount := model.RoundCents(total * sh.ratio)
		if i == len(shares)-1 {
			amount = model.RoundCents(total - allocated)
		}
		allocated += amount
		items = append(items, model.CostItem{Category: sh.category, Amount: amount})
	}
	return items
}

func estimateConfidence(claim *model.Claim) float64 {
	c := 0.5
	if claim.EstimatedDamage != "" {
		c += 0.3
	}
	c += claim.Confidence * 0.2
	return math.Min(model.RoundCents(c), 1.0)
}

func notes(severity model.Severity, coverage float64) string {
	parts := []string{
		fmt.Sprintf("Estimated damage severity: %s", severity),
		fmt.Sprintf("Insurance coverage: %.0f%%", coverage*100),
	}
	if isHighSeverity(severity) {
		parts = append(parts, "High-severity claim - may require detailed inspection")
	}
	if coverage < 0.80 {
		parts = append(parts, "Lower coverage percentage - higher out-of-pocket cost")
	}
	return strings.Join(parts, " | ")
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
